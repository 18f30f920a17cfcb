package source

import (
	"context"
	"fmt"
)

// Name uniquely identifies a metadata source.
type Name string

// Known source names.
const (
	NameMusicBrainz Name = "musicbrainz"
	NameDeezer      Name = "deezer"
)

// AllNames returns all known source names in display order.
func AllNames() []Name {
	return []Name{
		NameMusicBrainz,
		NameDeezer,
	}
}

// DisplayName returns a human-readable name for the source.
func (n Name) DisplayName() string {
	switch n {
	case NameMusicBrainz:
		return "MusicBrainz"
	case NameDeezer:
		return "Deezer"
	default:
		return string(n)
	}
}

// Fields is a metadata field mapping. Values are strings, numbers, or
// string slices; the merge engine treats them opaquely.
type Fields map[string]any

// Clone returns a shallow copy of the field mapping.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// String returns the field's value as a string, or "" when absent or
// not a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Candidate is one result returned by a source for one entity. It is
// created per lookup and discarded after resolution.
type Candidate struct {
	// ID is the source-native identifier for this result.
	ID string

	// Fields is the metadata this candidate would contribute.
	Fields Fields
}

// Source is the interface all metadata source adapters implement.
type Source interface {
	// Name returns the unique source identifier.
	Name() Name

	// SupportsLookup reports whether the source can resolve one of its
	// own identifiers directly.
	SupportsLookup() bool

	// SupportsSearch reports whether the source can search by entity fields.
	SupportsSearch() bool

	// OwnedFields returns the field names this source is the canonical
	// owner of, typically identifier fields such as "mb_albumid".
	OwnedFields() []string

	// LookupByID fetches the candidate for a source-native identifier.
	// Returns ErrNotFound when the source has no data for the ID.
	LookupByID(ctx context.Context, id string) (*Candidate, error)

	// Search queries the source with the entity's known fields and
	// returns zero or more candidates, ranked or unranked.
	Search(ctx context.Context, fields Fields) ([]Candidate, error)
}

// UnavailableError indicates a transient source failure (rate-limited,
// timeout, server error).
type UnavailableError struct {
	Source Name
	Cause  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// NotFoundError indicates the source has no data for the requested ID.
type NotFoundError struct {
	Source Name
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("source %s: release %s not found", e.Source, e.ID)
}
