package ui

import (
	"sort"
	"strings"
)

const (
	// DefaultMaxDistance is the largest edit distance still offered as a
	// suggestion.
	DefaultMaxDistance = 3
	// DefaultMaxSuggestions caps how many suggestions are offered.
	DefaultMaxSuggestions = 3
)

// suggestion pairs a candidate with its edit distance.
type suggestion struct {
	value    string
	distance int
}

// Suggest finds allow-list entries similar to a denied entity, closest
// first. It is used to answer "table not allowed: user" with
// "Did you mean: users?". The wildcard marker never makes a useful
// suggestion and is skipped.
func Suggest(denied string, allowed []string) []string {
	target := strings.ToLower(denied)

	var matches []suggestion
	for _, candidate := range allowed {
		if candidate == "*" {
			continue
		}
		dist := LevenshteinDistance(target, strings.ToLower(candidate))
		if dist <= DefaultMaxDistance {
			matches = append(matches, suggestion{value: candidate, distance: dist})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	result := make([]string, 0, DefaultMaxSuggestions)
	for i := 0; i < len(matches) && i < DefaultMaxSuggestions; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// LevenshteinDistance returns the minimum number of single-character
// edits (insertions, deletions, substitutions) between two strings.
func LevenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, minInt(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
