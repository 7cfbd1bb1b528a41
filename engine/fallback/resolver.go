// Package fallback derives a recommendation purely from similarity matches
// when every generation provider has failed. It trades richness for
// availability: as long as one similar project exists, it produces a stack.
package fallback

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
)

// maxAlternatives bounds how many runner-up technologies are kept per
// category.
const maxAlternatives = 3

// Resolver aggregates matched projects' stacks by score-weighted majority.
type Resolver struct{}

// New creates a Resolver.
func New() *Resolver { return &Resolver{} }

// Resolve tallies technology occurrences across the matched projects'
// stacks, weighted by each match's similarity score. The top technology per
// category becomes the primary entry, the next ones the alternatives.
// Constraint-listed technologies are excluded from the tallies. The returned
// ProviderConfidence is the aggregation agreement strength: the mean weighted
// share captured by each category's winner.
func (r *Resolver) Resolve(matches []domain.SimilarityMatch, constraints map[string][]string) *domain.GenerationResult {
	excluded := domain.FlattenConstraints(constraints)

	byCategory := make(map[string]map[string]*tally)

	for _, m := range matches {
		// Non-positive scores still count a minimal occurrence so a
		// lone weak match can produce a stack.
		w := math.Max(float64(m.Score), 0.001)
		for cat, techs := range m.Project.Stack {
			cat = strings.ToLower(strings.TrimSpace(cat))
			if cat == "" {
				continue
			}
			for _, tech := range techs {
				tech = strings.TrimSpace(tech)
				if tech == "" || domain.Excluded(tech, excluded) {
					continue
				}
				key := strings.ToLower(tech)
				if byCategory[cat] == nil {
					byCategory[cat] = make(map[string]*tally)
				}
				if t := byCategory[cat][key]; t != nil {
					t.weight += w
				} else {
					byCategory[cat][key] = &tally{tech: tech, weight: w}
				}
			}
		}
	}

	var (
		primary      []domain.StackEntry
		alternatives = make(map[string][]domain.StackEntry)
		shareSum     float64
	)
	cats := make([]string, 0, len(byCategory))
	for c := range byCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	for _, cat := range cats {
		ranked := rankTallies(byCategory[cat])
		var total float64
		for _, t := range ranked {
			total += t.weight
		}
		primary = append(primary, domain.StackEntry{Category: cat, Technology: ranked[0].tech})
		shareSum += ranked[0].weight / total
		for _, t := range ranked[1:min(len(ranked), maxAlternatives+1)] {
			alternatives[cat] = append(alternatives[cat],
				domain.StackEntry{Category: cat, Technology: t.tech})
		}
	}

	// Everything constrained away: fall back to the top match's stack so
	// the caller still gets a non-empty recommendation.
	if len(primary) == 0 && len(matches) > 0 {
		top := matches[0].Project
		for _, cat := range domain.SortedCategories(top.Stack) {
			if len(top.Stack[cat]) > 0 {
				primary = append(primary, domain.StackEntry{
					Category:   strings.ToLower(cat),
					Technology: top.Stack[cat][0],
				})
			}
		}
		shareSum = float64(len(primary)) * 0.5
	}

	agreement := 0.0
	if len(primary) > 0 {
		agreement = shareSum / float64(len(primary))
	}

	return &domain.GenerationResult{
		PrimaryStack:       primary,
		Alternatives:       alternatives,
		Explanation:        explain(matches),
		ProviderConfidence: agreement,
		Provider:           "fallback",
	}
}

// tally accumulates score weight for one technology, keeping the display
// casing of its first occurrence.
type tally struct {
	tech   string
	weight float64
}

type tallyEntry struct {
	tech   string
	weight float64
}

func rankTallies(m map[string]*tally) []tallyEntry {
	out := make([]tallyEntry, 0, len(m))
	for _, t := range m {
		out = append(out, tallyEntry{tech: t.tech, weight: t.weight})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].weight != out[j].weight {
			return out[i].weight > out[j].weight
		}
		return strings.ToLower(out[i].tech) < strings.ToLower(out[j].tech)
	})
	return out
}

// explain synthesizes the templated, non-LLM explanation.
func explain(matches []domain.SimilarityMatch) string {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Project.Name)
	}
	return fmt.Sprintf(
		"Generation services were unavailable, so this recommendation aggregates "+
			"the stacks of %d similar projects (%s), weighting each technology by "+
			"how closely its project matches your description.",
		len(matches), strings.Join(names, ", "))
}
