package domain

import (
	"sort"
	"strings"
)

// SortedCategories returns the stack's category names in sorted order, for
// deterministic iteration over the open category set.
func SortedCategories(s Stack) []string {
	cats := make([]string, 0, len(s))
	for c := range s {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// FlattenConstraints collapses per-category constraints into one lowercase
// list of excluded technology fragments.
func FlattenConstraints(constraints map[string][]string) []string {
	var out []string
	for _, cat := range sortedKeys(constraints) {
		for _, c := range constraints[cat] {
			c = strings.ToLower(strings.TrimSpace(c))
			if c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

// Excluded reports whether a technology name matches any constraint
// fragment. Matching is case-insensitive substring, so "mongo" excludes
// "MongoDB".
func Excluded(tech string, constraints []string) bool {
	lower := strings.ToLower(tech)
	for _, c := range constraints {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
