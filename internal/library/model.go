package library

import (
	"time"

	"github.com/larkvale/metamerge/internal/merge"
	"github.com/larkvale/metamerge/internal/source"
)

// Album is one library entry. Artist and Title are first-class columns;
// everything else lives in the field mapping.
type Album struct {
	ID        string    `json:"id"`
	Artist    string    `json:"artist"`
	Title     string    `json:"title"`
	Year      int       `json:"year,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Fields holds the stored metadata beyond the core columns.
	Fields source.Fields `json:"fields,omitempty"`

	// SourceIDs maps source names to previously matched identifiers.
	SourceIDs map[source.Name]string `json:"source_ids,omitempty"`
}

// Entity converts the album into the merge engine's entity view. Core
// columns are projected into the field mapping under their tag names.
func (a *Album) Entity() merge.Entity {
	fields := make(source.Fields, len(a.Fields)+3)
	for k, v := range a.Fields {
		fields[k] = v
	}
	fields["artist"] = a.Artist
	fields["album"] = a.Title
	if a.Year != 0 {
		fields["year"] = a.Year
	}

	ids := make(map[source.Name]string, len(a.SourceIDs))
	for k, v := range a.SourceIDs {
		ids[k] = v
	}

	return merge.Entity{
		ID:        a.ID,
		Fields:    fields,
		SourceIDs: ids,
	}
}
