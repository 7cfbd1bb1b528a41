// Package match ranks reference projects against an incoming description by
// cosine similarity between the query embedding and the corpus's precomputed
// vectors. Ranking is deterministic: descending score, ties broken by corpus
// insertion order.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/StackPilotAI/stackpilot-mvp/engine/corpus"
	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
)

// Embedder computes the query embedding. Must produce vectors from the same
// model and dimensionality as the corpus.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Matcher ranks corpus projects for a query description.
type Matcher struct {
	embed  Embedder
	store  *corpus.Store
	logger *slog.Logger
}

// New creates a Matcher over the given corpus store.
func New(embed Embedder, store *corpus.Store, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{embed: embed, store: store, logger: logger}
}

// Match embeds the description and returns the top-k most similar projects
// from the current corpus snapshot. An unreachable embedding model yields
// domain.ErrEmbeddingUnavailable.
func (m *Matcher) Match(ctx context.Context, description string, k int) ([]domain.SimilarityMatch, error) {
	if strings.TrimSpace(description) == "" {
		return nil, domain.NewValidationError("description", description, domain.ErrEmptyDescription)
	}
	if err := domain.ValidateTopK(k); err != nil {
		return nil, err
	}

	snap := m.store.Current()
	if snap.Len() == 0 {
		return nil, nil
	}

	query, err := m.embed.Embed(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("match: embed query: %w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(query) != snap.Dimension() {
		return nil, fmt.Errorf("match: query dimension %d, corpus %d: %w",
			len(query), snap.Dimension(), domain.ErrEmbeddingUnavailable)
	}

	matches := Rank(query, snap, k)
	m.logger.Debug("similarity match done", "candidates", snap.Len(), "returned", len(matches))
	return matches, nil
}

// Rank is the pure ranking core: cosine similarity of query against every
// snapshot project, sorted descending, truncated to k. Exposed separately so
// determinism is testable without an embedder.
func Rank(query []float32, snap *corpus.Snapshot, k int) []domain.SimilarityMatch {
	projects := snap.Projects()
	matches := make([]domain.SimilarityMatch, len(projects))
	for i := range projects {
		matches[i] = domain.SimilarityMatch{
			Project: &projects[i],
			Score:   Cosine(query, projects[i].Embedding),
		}
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

// Cosine computes cosine similarity between two vectors. A zero-norm vector
// scores 0 rather than dividing by zero; mismatched lengths also score 0.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
