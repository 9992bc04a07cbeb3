// Package normalize canonicalizes strings into the keys used by every index.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// punctuation lists the characters dropped from keys.
const punctuation = `-.,!/\][()`

// RangeSeparator separates the bounds of a numeric range such as "5..10".
const RangeSeparator = ".."

// MustPrefix marks a query value that must match.
const MustPrefix = "+"

var stripPunctuation = strings.NewReplacer(
	"-", "", ".", "", ",", "", "!", "", "/", "",
	`\`, "", "]", "", "[", "", "(", "", ")", "",
)

// Normalize lowercases s, strips diacritics and punctuation, and collapses whitespace.
// It is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// Lowercase first so that case mappings which introduce combining marks
	// (such as U+0130) are stripped below.
	lower := strings.ToLower(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, lower)
	if err != nil {
		folded = lower
	}

	if strings.ContainsAny(folded, punctuation) {
		folded = stripPunctuation.Replace(folded)
	}
	return strings.Join(strings.Fields(folded), " ")
}

// Value normalizes v when it is a string. Any other value yields ("", false).
func Value(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return Normalize(s), true
}

// Tokens splits the normalized form of s on whitespace.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// SplitValues comma-splits each raw value, normalizes every part and drops
// empty and duplicate parts. A leading '+' is preserved outside normalization.
func SplitValues(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{})

	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			part = strings.TrimSpace(part)
			prefix := ""
			if strings.HasPrefix(part, MustPrefix) {
				prefix = MustPrefix
				part = strings.TrimPrefix(part, MustPrefix)
			}
			key := Normalize(part)
			if key == "" {
				continue
			}
			key = prefix + key
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	return out
}

// SplitMust strips the '+' prefix of a normalized value and reports whether it was present.
func SplitMust(value string) (string, bool) {
	if strings.HasPrefix(value, MustPrefix) {
		return strings.TrimPrefix(value, MustPrefix), true
	}
	return value, false
}

// Range is an inclusive numeric interval.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within r.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// String renders r back into its "min..max" form, leaving infinite bounds empty.
func (r Range) String() string {
	format := func(f float64) string {
		if math.IsInf(f, 0) {
			return ""
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if r.Min == r.Max {
		return format(r.Min)
	}
	return format(r.Min) + RangeSeparator + format(r.Max)
}

// ParseRange parses "min..max", "min..", "..max" or a single value "v" (meaning v..v).
// Bounds must be finite; only an omitted bound is open.
func ParseRange(s string) (Range, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, false
	}

	parts := strings.SplitN(s, RangeSeparator, 2)
	if len(parts) == 1 {
		v, ok := parseBound(parts[0])
		if !ok {
			return Range{}, false
		}
		return Range{Min: v, Max: v}, true
	}

	r := Range{Min: math.Inf(-1), Max: math.Inf(1)}
	if lo := strings.TrimSpace(parts[0]); lo != "" {
		v, ok := parseBound(lo)
		if !ok {
			return Range{}, false
		}
		r.Min = v
	}
	if hi := strings.TrimSpace(parts[1]); hi != "" {
		v, ok := parseBound(hi)
		if !ok {
			return Range{}, false
		}
		r.Max = v
	}
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r, true
}

func parseBound(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// SplitRanges parses each comma-separated range of raw, skipping unparsable parts.
func SplitRanges(raw []string) []Range {
	var out []Range
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if rg, ok := ParseRange(part); ok {
				out = append(out, rg)
			}
		}
	}
	return out
}
