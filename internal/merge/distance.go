package merge

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/larkvale/metamerge/internal/source"
)

// Comparison field weights. Title and artist dominate; duration is a
// weaker signal since sources round it differently.
const (
	titleWeight    = 0.4
	artistWeight   = 0.4
	durationWeight = 0.2

	// missingPenalty is charged when one side lacks a comparison field.
	missingPenalty = 0.5

	// durationTolerance is the difference, in seconds, at which two
	// track lengths are considered entirely dissimilar.
	durationTolerance = 30.0
)

// Distance computes a normalized dissimilarity score in [0,1] between an
// entity's fields and a candidate's fields. 0 means identical after
// normalization; unrelated records approach 1. The function is total:
// absent or unparseable fields degrade the score instead of failing.
func Distance(entity, candidate source.Fields) float64 {
	var sum, total float64
	add := func(weight, dist float64) {
		sum += weight * dist
		total += weight
	}

	add(titleWeight, fieldDistance(
		firstString(entity, "album", "title"),
		firstString(candidate, "album", "title")))
	add(artistWeight, fieldDistance(
		firstString(entity, "artist", "albumartist"),
		firstString(candidate, "artist", "albumartist")))

	ed, eok := seconds(entity["length"])
	cd, cok := seconds(candidate["length"])
	switch {
	case eok && cok:
		add(durationWeight, math.Min(1, math.Abs(ed-cd)/durationTolerance))
	case eok != cok:
		add(durationWeight, missingPenalty)
		// neither side has a duration: field not compared
	}

	return sum / total
}

func fieldDistance(a, b string) float64 {
	if a == "" || b == "" {
		return missingPenalty
	}
	return stringDistance(Normalize(a), Normalize(b))
}

// stringDistance is the Levenshtein distance between two strings,
// normalized by the longer length.
func stringDistance(a, b string) float64 {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 1
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	longest := max(len(ra), len(rb))
	return float64(prev[len(rb)]) / float64(longest)
}

// Normalize lowercases a string, folds accents, strips punctuation, and
// collapses whitespace so that "Sigur Rós" and "sigur ros" compare equal.
func Normalize(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

func firstString(f source.Fields, keys ...string) string {
	for _, k := range keys {
		if s := f.String(k); s != "" {
			return s
		}
	}
	return ""
}

// seconds coerces a field value to a duration in seconds.
func seconds(v any) (float64, bool) {
	switch d := v.(type) {
	case float64:
		return d, true
	case int:
		return float64(d), true
	case int64:
		return float64(d), true
	case string:
		if d == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(d, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
