package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/larkvale/metamerge/internal/source"
)

// DiffFields compares an entity's current fields with a merged result
// and returns the changes the result would apply. Fields the merge does
// not set are left alone, so there is no "removed" status.
func DiffFields(current, merged source.Fields) []FieldChange {
	var changes []FieldChange

	fields := make([]string, 0, len(merged))
	for f := range merged {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		oldVal := valueString(current[field])
		newVal := valueString(merged[field])
		switch {
		case oldVal == newVal:
		case oldVal == "":
			changes = append(changes, FieldChange{Field: field, New: newVal, Status: "added"})
		default:
			changes = append(changes, FieldChange{Field: field, Old: oldVal, New: newVal, Status: "changed"})
		}
	}
	return changes
}

// valueString renders a field value for display and comparison.
func valueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, "; ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, valueString(item))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprintf("%v", val)
	}
}
