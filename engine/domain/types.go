// Package domain defines core domain types, errors, and validation for the
// StackPilot recommendation pipeline. It acts as the validation gate at
// pipeline entry points.
package domain

import "time"

// Stack maps a category name ("frontend", "backend", ...) to an ordered list
// of technology names. The category set is open; new categories require no
// schema change.
type Stack map[string][]string

// ReferenceProject is one immutable record of the reference corpus. Records
// are produced wholesale by the offline data pipeline and never mutated by
// the engine.
type ReferenceProject struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Stack       Stack     `json:"stack"`
	Embedding   []float32 `json:"embedding"`
	UsageTags   []string  `json:"usage_tags,omitempty"`
}

// Technologies flattens the project's stack into a single list, category by
// category in sorted order.
func (p *ReferenceProject) Technologies() []string {
	var out []string
	for _, cat := range SortedCategories(p.Stack) {
		out = append(out, p.Stack[cat]...)
	}
	return out
}

// SimilarityMatch pairs a corpus project with its cosine similarity to the
// query description. Score is in [-1, 1], higher is better.
type SimilarityMatch struct {
	Project *ReferenceProject `json:"project"`
	Score   float32           `json:"score"`
}

// StackEntry is one technology pick within a stack.
type StackEntry struct {
	Category   string `json:"category"`
	Technology string `json:"technology"`
}

// GenerationResult is the normalized output of a generation provider or of
// the statistical fallback resolver.
type GenerationResult struct {
	PrimaryStack       []StackEntry            `json:"primary_stack"`
	Alternatives       map[string][]StackEntry `json:"alternatives"`
	Explanation        string                  `json:"explanation"`
	ProviderConfidence float64                 `json:"confidence"`

	// Provider names the hop that produced the result ("primary",
	// "secondary", or "fallback").
	Provider string `json:"provider,omitempty"`
}

// Request is the engine's input: a free-text project description plus
// optional requirements and per-category constraints (technologies the user
// wants excluded).
type Request struct {
	Description  string              `json:"description"`
	Requirements []string            `json:"requirements,omitempty"`
	Constraints  map[string][]string `json:"constraints,omitempty"`
}

// Recommendation is the engine's final output, assembled once per request and
// never persisted by the core.
type Recommendation struct {
	PrimaryStack    []StackEntry            `json:"primary_stack"`
	Alternatives    map[string][]StackEntry `json:"alternatives"`
	Explanation     string                  `json:"explanation"`
	Confidence      float64                 `json:"confidence"`
	SimilarProjects []SimilarityMatch       `json:"similar_projects"`
	UsedFallback    bool                    `json:"used_fallback"`
	GeneratedAt     time.Time               `json:"generated_at"`
}
