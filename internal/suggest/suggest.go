// Package suggest proposes close matches for mistyped names.
package suggest

import (
	"cmp"
	"slices"
	"strings"
)

// distance is the Levenshtein edit distance between a and b, byte-wise.
func distance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Closest returns up to three candidates within reach of unknown, best
// first. Comparison ignores case; ties keep candidate order.
func Closest(unknown string, candidates []string) []string {
	unknown = strings.ToLower(strings.TrimSpace(unknown))
	limit := max(2, len(unknown)/2)

	type scored struct {
		name string
		dist int
	}
	var hits []scored
	for _, c := range candidates {
		if d := distance(unknown, strings.ToLower(c)); d <= limit {
			hits = append(hits, scored{c, d})
		}
	}
	slices.SortStableFunc(hits, func(a, b scored) int { return cmp.Compare(a.dist, b.dist) })

	out := make([]string, 0, 3)
	for _, h := range hits {
		if len(out) == 3 {
			break
		}
		out = append(out, h.name)
	}
	return out
}

// Hint formats Closest as " (did you mean x?)", or "" with no match.
func Hint(unknown string, candidates []string) string {
	c := Closest(unknown, candidates)
	if len(c) == 0 {
		return ""
	}
	return " (did you mean " + strings.Join(c, " or ") + "?)"
}
