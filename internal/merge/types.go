package merge

import (
	"context"

	"github.com/larkvale/metamerge/internal/source"
)

// Strategy selects how per-source field sets are combined.
type Strategy string

// Known merge strategies.
const (
	// StrategyPriority takes each field from the earliest configured
	// source that provides it.
	StrategyPriority Strategy = "priority"

	// StrategyAll collects every distinct value for a field across all
	// sources, in first-seen order.
	StrategyAll Strategy = "all"

	// StrategySplit applies source-specific fields from every source and
	// common fields from the primary source only.
	StrategySplit Strategy = "split"
)

// ValidStrategy returns true if s is a recognized merge strategy.
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategyPriority, StrategyAll, StrategySplit:
		return true
	}
	return false
}

// Entity is the library item being enriched. The merge core only reads
// it; updates are proposed through a Result and applied by the caller.
type Entity struct {
	// ID is the stable local identifier.
	ID string

	// Fields holds the currently known metadata.
	Fields source.Fields

	// SourceIDs maps source names to previously stored source-native
	// identifiers.
	SourceIDs map[source.Name]string
}

// Config is the immutable configuration for one merge run.
type Config struct {
	// Sources is the ordered source list. For the priority strategy the
	// first source has the highest priority.
	Sources []source.Name

	// Primary is the source whose values win for common fields under
	// the split strategy. Defaults to the last source in Sources.
	Primary source.Name

	// Strategy selects the field combination policy.
	Strategy Strategy

	// Exclude lists field names removed from every merge result.
	Exclude []string

	// MaxDistance is the auto-accept threshold. When nil, every
	// ambiguous match requires interactive selection.
	MaxDistance *float64

	// Force skips stored source identifiers and always re-searches.
	Force bool

	// Write enables persistence; when false the run is a dry run.
	Write bool
}

// PrimaryOrDefault returns the configured primary source, or the last
// source in the list when unset.
func (c Config) PrimaryOrDefault() source.Name {
	if c.Primary != "" {
		return c.Primary
	}
	if len(c.Sources) == 0 {
		return ""
	}
	return c.Sources[len(c.Sources)-1]
}

// Validate checks the configuration before any entity is processed.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return &ConfigError{Reason: "no sources configured"}
	}
	if !ValidStrategy(c.Strategy) {
		return &ConfigError{Reason: "unknown merge strategy " + string(c.Strategy)}
	}
	if c.Primary != "" {
		found := false
		for _, n := range c.Sources {
			if n == c.Primary {
				found = true
				break
			}
		}
		if !found {
			return &ConfigError{Reason: "primary source " + string(c.Primary) + " is not in the source list"}
		}
	}
	if c.MaxDistance != nil && (*c.MaxDistance < 0 || *c.MaxDistance > 1) {
		return &ConfigError{Reason: "max distance must be between 0 and 1"}
	}
	return nil
}

func (c Config) excluded(field string) bool {
	for _, e := range c.Exclude {
		if e == field {
			return true
		}
	}
	return false
}

// ScoredCandidate pairs a candidate with its distance from the entity.
// Lower distance means more similar.
type ScoredCandidate struct {
	Candidate source.Candidate
	Distance  float64
}

// AcceptedCandidate is the resolved match for one (entity, source) pair.
type AcceptedCandidate struct {
	Source    source.Name
	Candidate source.Candidate
	Distance  float64

	// Owned is the source's owned-field list, captured at resolution
	// time for the split strategy.
	Owned []string
}

// FieldOrigin records which source contributed a field value.
type FieldOrigin struct {
	Field  string      `json:"field"`
	Source source.Name `json:"source"`
}

// FieldChange is one difference between an entity's current fields and
// the merged result, for dry-run and summary reporting.
type FieldChange struct {
	Field  string `json:"field"`
	Old    string `json:"old_value"`
	New    string `json:"new_value"`
	Status string `json:"status"` // "added" or "changed"
}

// Result is the merged record proposed for one entity.
type Result struct {
	EntityID string `json:"entity_id"`

	// Fields is the final merged field mapping.
	Fields source.Fields `json:"fields"`

	// Origins records per-field provenance for reporting.
	Origins []FieldOrigin `json:"origins"`

	// SourceIDs maps each accepted source to the candidate identifier
	// it matched, for reuse on later runs.
	SourceIDs map[source.Name]string `json:"source_ids"`

	// Changes is the diff against the entity's current fields.
	Changes []FieldChange `json:"changes,omitempty"`
}

// Selection is the outcome of an interactive candidate prompt.
type Selection struct {
	Candidate *ScoredCandidate
	Skip      bool
	Abort     bool
}

// Selector prompts for a choice among ranked candidates. The call blocks
// until the user answers.
type Selector interface {
	Select(ctx context.Context, entity Entity, src source.Name, candidates []ScoredCandidate) (Selection, error)
}

// Sink persists a merged result for an entity. Implementations must
// apply the result atomically: either every field is stored or none.
type Sink interface {
	Apply(ctx context.Context, entity Entity, result *Result) error
}
