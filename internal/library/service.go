package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/larkvale/metamerge/internal/merge"
	"github.com/larkvale/metamerge/internal/source"
)

const albumColumns = `id, artist, title, year, created_at, updated_at`

// Service provides album storage. It is the entity provider and the
// persistence sink for the merge engine.
type Service struct {
	db *sql.DB
}

// NewService creates a library service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

var _ merge.Sink = (*Service)(nil)

// Create inserts a new album.
func (s *Service) Create(ctx context.Context, album *Album) error {
	if album.Artist == "" {
		return fmt.Errorf("album artist is required")
	}
	if album.Title == "" {
		return fmt.Errorf("album title is required")
	}

	if album.ID == "" {
		album.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	album.CreatedAt = now
	album.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO albums (id, artist, title, year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		album.ID, album.Artist, album.Title, nullableInt(album.Year),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating album: %w", err)
	}
	return nil
}

// GetByID retrieves an album with its fields and source IDs.
func (s *Service) GetByID(ctx context.Context, id string) (*Album, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE id = ?`, id)
	album, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("album not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting album by id: %w", err)
	}
	if err := s.loadDetails(ctx, album); err != nil {
		return nil, err
	}
	return album, nil
}

// List returns albums matching a free-form query, ordered by artist and
// title. An empty query returns the whole library.
func (s *Service) List(ctx context.Context, query string) ([]*Album, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if query == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+albumColumns+` FROM albums ORDER BY artist, title`)
	} else {
		like := "%" + query + "%"
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+albumColumns+` FROM albums
			 WHERE artist LIKE ? OR title LIKE ?
			 ORDER BY artist, title`, like, like)
	}
	if err != nil {
		return nil, fmt.Errorf("listing albums: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var albums []*Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning album: %w", err)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating albums: %w", err)
	}

	for _, album := range albums {
		if err := s.loadDetails(ctx, album); err != nil {
			return nil, err
		}
	}
	return albums, nil
}

// Query returns the entities matching a free-form query, in stable
// order, ready for a merge run.
func (s *Service) Query(ctx context.Context, query string) ([]merge.Entity, error) {
	albums, err := s.List(ctx, query)
	if err != nil {
		return nil, err
	}
	entities := make([]merge.Entity, 0, len(albums))
	for _, album := range albums {
		entities = append(entities, album.Entity())
	}
	return entities, nil
}

// Apply stores a merge result for an entity. The whole update runs in
// one transaction so a failure leaves the album untouched.
func (s *Service) Apply(ctx context.Context, entity merge.Entity, result *merge.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	origins := make(map[string]source.Name, len(result.Origins))
	for _, o := range result.Origins {
		origins[o.Field] = o.Source
	}

	now := time.Now().UTC().Format(time.RFC3339)

	for field, value := range result.Fields {
		if isCoreColumnValue(field, value) {
			// applyCore writes it into the album row below
			continue
		}
		encoded, err := encodeValue(value)
		if err != nil {
			return fmt.Errorf("encoding field %s: %w", field, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO album_fields (album_id, field, value, source)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (album_id, field) DO UPDATE SET value = excluded.value, source = excluded.source
		`, entity.ID, field, encoded, string(origins[field]))
		if err != nil {
			return fmt.Errorf("storing field %s: %w", field, err)
		}
	}

	if err := s.applyCore(ctx, tx, entity.ID, result, now); err != nil {
		return err
	}

	for name, id := range result.SourceIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO album_source_ids (album_id, source, external_id)
			VALUES (?, ?, ?)
			ON CONFLICT (album_id, source) DO UPDATE SET external_id = excluded.external_id
		`, entity.ID, string(name), id)
		if err != nil {
			return fmt.Errorf("storing source id for %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing merge result: %w", err)
	}
	return nil
}

// isCoreColumnValue reports whether the value fits a first-class album
// column. Value lists from the "all" strategy do not fit the scalar
// columns and go to the field table like any other field.
func isCoreColumnValue(field string, value any) bool {
	switch field {
	case "artist", "album":
		s, ok := value.(string)
		return ok && s != ""
	case "year":
		_, ok := asInt(value)
		return ok
	}
	return false
}

// applyCore updates the first-class album columns when the result set
// them to scalar values.
func (s *Service) applyCore(ctx context.Context, tx *sql.Tx, id string, result *merge.Result, now string) error {
	sets := "updated_at = ?"
	args := []any{now}

	if artist, ok := result.Fields["artist"].(string); ok && artist != "" {
		sets += ", artist = ?"
		args = append(args, artist)
	}
	if title, ok := result.Fields["album"].(string); ok && title != "" {
		sets += ", title = ?"
		args = append(args, title)
	}
	if year, ok := asInt(result.Fields["year"]); ok {
		sets += ", year = ?"
		args = append(args, year)
	}
	args = append(args, id)

	if _, err := tx.ExecContext(ctx, `UPDATE albums SET `+sets+` WHERE id = ?`, args...); err != nil {
		return fmt.Errorf("updating album: %w", err)
	}
	return nil
}

// Delete removes an album and its dependent rows.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting album: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("album not found: %s", id)
	}
	return nil
}

func (s *Service) loadDetails(ctx context.Context, album *Album) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field, value FROM album_fields WHERE album_id = ?`, album.ID)
	if err != nil {
		return fmt.Errorf("loading album fields: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	album.Fields = make(source.Fields)
	for rows.Next() {
		var field, encoded string
		if err := rows.Scan(&field, &encoded); err != nil {
			return fmt.Errorf("scanning album field: %w", err)
		}
		album.Fields[field] = decodeValue(encoded)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating album fields: %w", err)
	}

	idRows, err := s.db.QueryContext(ctx,
		`SELECT source, external_id FROM album_source_ids WHERE album_id = ?`, album.ID)
	if err != nil {
		return fmt.Errorf("loading source ids: %w", err)
	}
	defer idRows.Close() //nolint:errcheck

	album.SourceIDs = make(map[source.Name]string)
	for idRows.Next() {
		var name, id string
		if err := idRows.Scan(&name, &id); err != nil {
			return fmt.Errorf("scanning source id: %w", err)
		}
		album.SourceIDs[source.Name(name)] = id
	}
	return idRows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlbum(row rowScanner) (*Album, error) {
	var (
		album     Album
		year      sql.NullInt64
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&album.ID, &album.Artist, &album.Title, &year, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	album.Year = int(year.Int64)
	album.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	album.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &album, nil
}

// encodeValue stores strings bare and everything else as JSON, so the
// common case stays readable in the database.
func encodeValue(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeValue reverses encodeValue. Values that do not parse as JSON
// are plain strings.
func decodeValue(s string) any {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '[', '{', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '-':
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
