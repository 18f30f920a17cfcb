package merge

import (
	"reflect"
	"sort"

	"github.com/larkvale/metamerge/internal/source"
)

// Merge combines the accepted per-source candidates into one result
// under the configured strategy. The output is deterministic for a given
// set of accepted candidates and configuration: sources are walked in
// cfg.Sources order and fields within a source in sorted name order.
func Merge(entity Entity, accepted map[source.Name]*AcceptedCandidate, cfg Config) *Result {
	result := &Result{
		EntityID:  entity.ID,
		Fields:    make(source.Fields),
		SourceIDs: make(map[source.Name]string, len(accepted)),
	}

	for name, ac := range accepted {
		if ac.Candidate.ID != "" {
			result.SourceIDs[name] = ac.Candidate.ID
		}
	}

	switch cfg.Strategy {
	case StrategyAll:
		mergeAll(result, accepted, cfg)
	case StrategySplit:
		mergeSplit(result, accepted, cfg)
	default:
		mergePriority(result, accepted, cfg)
	}

	for field := range result.Fields {
		if cfg.excluded(field) {
			delete(result.Fields, field)
		}
	}
	filtered := result.Origins[:0]
	for _, o := range result.Origins {
		if !cfg.excluded(o.Field) {
			filtered = append(filtered, o)
		}
	}
	result.Origins = filtered

	return result
}

// mergePriority walks sources in configured order; the first source to
// provide a field wins and later sources never override it.
func mergePriority(result *Result, accepted map[source.Name]*AcceptedCandidate, cfg Config) {
	for _, name := range cfg.Sources {
		ac, ok := accepted[name]
		if !ok {
			continue
		}
		for _, field := range sortedFields(ac.Candidate.Fields) {
			if _, set := result.Fields[field]; set {
				continue
			}
			result.Fields[field] = ac.Candidate.Fields[field]
			result.Origins = append(result.Origins, FieldOrigin{Field: field, Source: name})
		}
	}
}

// mergeAll collects the distinct values each field received across all
// sources, preserving first-seen order. Every value becomes a sequence;
// the consumer decides how to flatten.
func mergeAll(result *Result, accepted map[source.Name]*AcceptedCandidate, cfg Config) {
	for _, name := range cfg.Sources {
		ac, ok := accepted[name]
		if !ok {
			continue
		}
		for _, field := range sortedFields(ac.Candidate.Fields) {
			value := ac.Candidate.Fields[field]
			existing, set := result.Fields[field].([]any)
			if !set {
				result.Fields[field] = []any{value}
				result.Origins = append(result.Origins, FieldOrigin{Field: field, Source: name})
				continue
			}
			if containsValue(existing, value) {
				continue
			}
			result.Fields[field] = append(existing, value)
			result.Origins = append(result.Origins, FieldOrigin{Field: field, Source: name})
		}
	}
}

// mergeSplit applies source-specific fields from every source that
// provided them, then common fields from the primary source only. A
// common field missing from the primary is absent from the output even
// when another source has it.
func mergeSplit(result *Result, accepted map[source.Name]*AcceptedCandidate, cfg Config) {
	owned := make(map[string]bool)
	for _, ac := range accepted {
		for _, field := range ac.Owned {
			owned[field] = true
		}
	}

	// Owned fields are disjoint by naming convention; on a collision the
	// last source in configured order wins.
	for _, name := range cfg.Sources {
		ac, ok := accepted[name]
		if !ok {
			continue
		}
		for _, field := range ac.Owned {
			value, has := ac.Candidate.Fields[field]
			if !has {
				continue
			}
			if _, set := result.Fields[field]; set {
				result.Origins = removeOrigin(result.Origins, field)
			}
			result.Fields[field] = value
			result.Origins = append(result.Origins, FieldOrigin{Field: field, Source: name})
		}
	}

	primary, ok := accepted[cfg.PrimaryOrDefault()]
	if !ok {
		return
	}
	for _, field := range sortedFields(primary.Candidate.Fields) {
		if owned[field] {
			continue
		}
		result.Fields[field] = primary.Candidate.Fields[field]
		result.Origins = append(result.Origins, FieldOrigin{Field: field, Source: primary.Source})
	}
}

func sortedFields(f source.Fields) []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func containsValue(values []any, v any) bool {
	for _, existing := range values {
		if reflect.DeepEqual(existing, v) {
			return true
		}
	}
	return false
}

func removeOrigin(origins []FieldOrigin, field string) []FieldOrigin {
	out := origins[:0]
	for _, o := range origins {
		if o.Field != field {
			out = append(out, o)
		}
	}
	return out
}
