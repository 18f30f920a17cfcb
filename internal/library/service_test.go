package library

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/larkvale/metamerge/internal/database"
	"github.com/larkvale/metamerge/internal/merge"
	"github.com/larkvale/metamerge/internal/source"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return NewService(db)
}

func createAlbum(t *testing.T, svc *Service, artist, title string, year int) *Album {
	t.Helper()
	album := &Album{Artist: artist, Title: title, Year: year}
	if err := svc.Create(context.Background(), album); err != nil {
		t.Fatalf("creating album: %v", err)
	}
	return album
}

func TestCreateAndGet(t *testing.T) {
	svc := setupService(t)
	album := createAlbum(t, svc, "Radiohead", "OK Computer", 1997)

	if album.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := svc.GetByID(context.Background(), album.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Artist != "Radiohead" || got.Title != "OK Computer" || got.Year != 1997 {
		t.Errorf("got %+v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := setupService(t)

	if err := svc.Create(context.Background(), &Album{Title: "No Artist"}); err == nil {
		t.Error("expected error for missing artist")
	}
	if err := svc.Create(context.Background(), &Album{Artist: "No Title"}); err == nil {
		t.Error("expected error for missing title")
	}
}

func TestListQueryMatching(t *testing.T) {
	svc := setupService(t)
	createAlbum(t, svc, "Radiohead", "OK Computer", 1997)
	createAlbum(t, svc, "Radiohead", "Kid A", 2000)
	createAlbum(t, svc, "Low", "Things We Lost in the Fire", 2001)

	all, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("empty query returned %d albums, want 3", len(all))
	}

	matched, err := svc.List(context.Background(), "radioh")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(matched) != 2 {
		t.Errorf("query matched %d albums, want 2", len(matched))
	}

	byTitle, err := svc.List(context.Background(), "Kid A")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byTitle) != 1 {
		t.Errorf("title query matched %d albums, want 1", len(byTitle))
	}
}

func TestQueryProducesEntities(t *testing.T) {
	svc := setupService(t)
	album := createAlbum(t, svc, "Low", "Double Negative", 2018)

	entities, err := svc.Query(context.Background(), "Low")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("got %d entities, want 1", len(entities))
	}
	e := entities[0]
	if e.ID != album.ID {
		t.Errorf("entity ID = %s, want %s", e.ID, album.ID)
	}
	if e.Fields["artist"] != "Low" || e.Fields["album"] != "Double Negative" {
		t.Errorf("entity fields = %v", e.Fields)
	}
	if e.Fields["year"] != 2018 {
		t.Errorf("entity year = %v, want 2018", e.Fields["year"])
	}
}

func TestApplyStoresFieldsAndSourceIDs(t *testing.T) {
	svc := setupService(t)
	album := createAlbum(t, svc, "Radiohead", "OK Computr", 1997)

	result := &merge.Result{
		EntityID: album.ID,
		Fields: source.Fields{
			"album":      "OK Computer",
			"genre":      "Rock",
			"mb_albumid": "mbid-1",
		},
		Origins: []merge.FieldOrigin{
			{Field: "album", Source: "musicbrainz"},
			{Field: "genre", Source: "musicbrainz"},
			{Field: "mb_albumid", Source: "musicbrainz"},
		},
		SourceIDs: map[source.Name]string{"musicbrainz": "mbid-1"},
	}

	if err := svc.Apply(context.Background(), album.Entity(), result); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := svc.GetByID(context.Background(), album.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "OK Computer" {
		t.Errorf("title = %q, want corrected value", got.Title)
	}
	if got.Fields["genre"] != "Rock" {
		t.Errorf("genre = %v, want Rock", got.Fields["genre"])
	}
	if got.SourceIDs["musicbrainz"] != "mbid-1" {
		t.Errorf("source id = %q, want mbid-1", got.SourceIDs["musicbrainz"])
	}
}

func TestApplyOverwritesExistingFields(t *testing.T) {
	svc := setupService(t)
	album := createAlbum(t, svc, "Low", "HEY WHAT", 2021)

	first := &merge.Result{
		EntityID:  album.ID,
		Fields:    source.Fields{"genre": "Rock"},
		SourceIDs: map[source.Name]string{"deezer": "d-1"},
	}
	if err := svc.Apply(context.Background(), album.Entity(), first); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	second := &merge.Result{
		EntityID:  album.ID,
		Fields:    source.Fields{"genre": "Slowcore"},
		SourceIDs: map[source.Name]string{"deezer": "d-2"},
	}
	if err := svc.Apply(context.Background(), album.Entity(), second); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := svc.GetByID(context.Background(), album.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Fields["genre"] != "Slowcore" {
		t.Errorf("genre = %v, want Slowcore", got.Fields["genre"])
	}
	if got.SourceIDs["deezer"] != "d-2" {
		t.Errorf("source id = %q, want d-2", got.SourceIDs["deezer"])
	}
}

func TestApplyValueListRoundTrip(t *testing.T) {
	svc := setupService(t)
	album := createAlbum(t, svc, "Boards of Canada", "Geogaddi", 2002)

	result := &merge.Result{
		EntityID: album.ID,
		Fields:   source.Fields{"genre": []any{"IDM", "Downtempo"}},
	}
	if err := svc.Apply(context.Background(), album.Entity(), result); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := svc.GetByID(context.Background(), album.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	list, ok := got.Fields["genre"].([]any)
	if !ok || len(list) != 2 || list[0] != "IDM" {
		t.Errorf("genre = %#v, want [IDM Downtempo]", got.Fields["genre"])
	}
}

func TestApplyCoreFieldValueLists(t *testing.T) {
	svc := setupService(t)
	album := createAlbum(t, svc, "Radiohead", "OK Computr", 1997)

	result := &merge.Result{
		EntityID: album.ID,
		Fields: source.Fields{
			"artist": []any{"Radiohead", "Radio-head"},
			"album":  []any{"OK Computer"},
			"year":   1997,
		},
	}
	if err := svc.Apply(context.Background(), album.Entity(), result); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got, err := svc.GetByID(context.Background(), album.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	// Lists cannot land in the scalar columns; they must survive as
	// field rows instead of being dropped.
	if got.Artist != "Radiohead" || got.Title != "OK Computr" {
		t.Errorf("core columns changed: artist=%q title=%q", got.Artist, got.Title)
	}
	artists, ok := got.Fields["artist"].([]any)
	if !ok || len(artists) != 2 || artists[1] != "Radio-head" {
		t.Errorf("artist field = %#v, want both values", got.Fields["artist"])
	}
	albums, ok := got.Fields["album"].([]any)
	if !ok || len(albums) != 1 || albums[0] != "OK Computer" {
		t.Errorf("album field = %#v, want [OK Computer]", got.Fields["album"])
	}
	if _, stored := got.Fields["year"]; stored {
		t.Errorf("scalar year should stay in its column, got field %v", got.Fields["year"])
	}
}

func TestDelete(t *testing.T) {
	svc := setupService(t)
	album := createAlbum(t, svc, "Low", "Trust", 2002)

	if err := svc.Delete(context.Background(), album.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(context.Background(), album.ID); err == nil {
		t.Error("expected error deleting missing album")
	}
}
