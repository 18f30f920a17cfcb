package musicbrainz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/larkvale/metamerge/internal/source"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/release":
			q := r.URL.Query().Get("query")
			if strings.Contains(q, "unknown") {
				w.Write([]byte(`{"count":0,"releases":[]}`)) //nolint:errcheck
				return
			}
			w.Write(loadFixture(t, "search_ok_computer.json")) //nolint:errcheck

		case strings.HasPrefix(r.URL.Path, "/release/"):
			id := strings.TrimPrefix(r.URL.Path, "/release/")
			switch id {
			case "missing":
				w.WriteHeader(http.StatusNotFound)
			case "broken":
				w.WriteHeader(http.StatusServiceUnavailable)
			default:
				w.Write(loadFixture(t, "release_ok_computer.json")) //nolint:errcheck
			}

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	limiter := source.NewRateLimiterMap()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithBaseURL(limiter, logger, baseURL)
}

func TestName(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")
	if a.Name() != source.NameMusicBrainz {
		t.Errorf("expected %q, got %q", source.NameMusicBrainz, a.Name())
	}
}

func TestOwnedFields(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")
	owned := a.OwnedFields()
	if len(owned) != 1 || owned[0] != FieldAlbumID {
		t.Errorf("owned fields = %v, want [%s]", owned, FieldAlbumID)
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	candidates, err := a.Search(context.Background(), source.Fields{
		"artist": "Radiohead",
		"album":  "OK Computer",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}

	first := candidates[0]
	if first.ID != "b1392450-e666-3926-a536-22c65f834433" {
		t.Errorf("candidate ID = %q", first.ID)
	}
	if first.Fields["album"] != "OK Computer" {
		t.Errorf("album = %v", first.Fields["album"])
	}
	if first.Fields["artist"] != "Radiohead" {
		t.Errorf("artist = %v", first.Fields["artist"])
	}
	if first.Fields["year"] != 1997 {
		t.Errorf("year = %v, want 1997", first.Fields["year"])
	}
	if first.Fields[FieldAlbumID] != first.ID {
		t.Errorf("owned field %s = %v, want candidate ID", FieldAlbumID, first.Fields[FieldAlbumID])
	}
	if first.Fields["label"] != "Parlophone" {
		t.Errorf("label = %v", first.Fields["label"])
	}
}

func TestSearchNoResults(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	candidates, err := a.Search(context.Background(), source.Fields{
		"artist": "unknown",
		"album":  "unknown",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates, want 0", len(candidates))
	}
}

func TestSearchEmptyFields(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")

	candidates, err := a.Search(context.Background(), source.Fields{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if candidates != nil {
		t.Errorf("expected nil for empty fields, got %v", candidates)
	}
}

func TestLookupByID(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	cand, err := a.LookupByID(context.Background(), "b1392450-e666-3926-a536-22c65f834433")
	if err != nil {
		t.Fatalf("LookupByID: %v", err)
	}
	if cand.Fields["album"] != "OK Computer" {
		t.Errorf("album = %v", cand.Fields["album"])
	}
	if cand.Fields["country"] != "GB" {
		t.Errorf("country = %v", cand.Fields["country"])
	}
}

func TestLookupNotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.LookupByID(context.Background(), "missing")
	var notFound *source.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.ID != "missing" {
		t.Errorf("error ID = %q", notFound.ID)
	}
}

func TestServerErrorBecomesUnavailable(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.LookupByID(context.Background(), "broken")
	var unavail *source.UnavailableError
	if !errors.As(err, &unavail) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
}

func TestJoinCredit(t *testing.T) {
	credits := []artistCredit{
		{Name: "Queen", JoinPhrase: " & "},
		{Name: "David Bowie", JoinPhrase: ""},
	}
	if got := joinCredit(credits); got != "Queen & David Bowie" {
		t.Errorf("joinCredit = %q", got)
	}
}
