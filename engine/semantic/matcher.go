package semantic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/StackPilotAI/stackpilot-mvp/engine/corpus"
	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
)

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// searcher is the slice of VectorStore the matcher needs.
type searcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]ProjectHit, error)
}

// Matcher finds reference projects similar to a description by querying
// Qdrant instead of scanning the in-memory corpus. Hits are resolved back
// to full projects through the corpus snapshot.
type Matcher struct {
	embed  Embedder
	vs     searcher
	store  *corpus.Store
	logger *slog.Logger
}

// NewMatcher creates a Qdrant-backed matcher.
func NewMatcher(embed Embedder, vs *VectorStore, store *corpus.Store, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{embed: embed, vs: vs, store: store, logger: logger}
}

// Match returns up to k reference projects similar to description, ordered
// by descending similarity.
func (m *Matcher) Match(ctx context.Context, description string, k int) ([]domain.SimilarityMatch, error) {
	if err := domain.ValidateRequest(domain.Request{Description: description}); err != nil {
		return nil, fmt.Errorf("semantic: %w", err)
	}
	if err := domain.ValidateTopK(k); err != nil {
		return nil, fmt.Errorf("semantic: %w", err)
	}

	query, err := m.embed.Embed(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w: %v", domain.ErrEmbeddingUnavailable, err)
	}

	hits, err := m.vs.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("semantic: %w: %v", domain.ErrEmbeddingUnavailable, err)
	}

	snap := m.store.Current()
	matches := make([]domain.SimilarityMatch, 0, len(hits))
	for _, h := range hits {
		p, ok := snap.ByID(h.ID)
		if !ok {
			// Index is ahead of or behind the loaded corpus.
			m.logger.Warn("search hit not in corpus", "id", h.ID, "name", h.Name)
			continue
		}
		matches = append(matches, domain.SimilarityMatch{Project: p, Score: h.Score})
	}
	return matches, nil
}
