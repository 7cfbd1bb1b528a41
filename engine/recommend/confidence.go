package recommend

import "github.com/StackPilotAI/stackpilot-mvp/engine/domain"

// ScorerOptions are the confidence blend policy constants. They are tunable
// configuration, not contract; whatever values are deployed must stay stable
// across requests so scores are reproducible.
type ScorerOptions struct {
	// ProviderWeight and SimilarityWeight blend the provider's
	// self-reported confidence with the mean top-K similarity on the
	// generation path.
	ProviderWeight   float64
	SimilarityWeight float64
	// FallbackCeiling caps fallback-path confidence strictly below the
	// generation-path maximum, signaling degraded quality.
	FallbackCeiling float64
}

// DefaultScorerOptions returns the documented default policy:
// 0.7×provider + 0.3×similarity, fallback capped under 0.6.
func DefaultScorerOptions() ScorerOptions {
	return ScorerOptions{
		ProviderWeight:   0.7,
		SimilarityWeight: 0.3,
		FallbackCeiling:  0.6,
	}
}

// Scorer combines retrieval quality and generation confidence into one
// normalized score.
type Scorer struct {
	opts ScorerOptions
}

// NewScorer creates a Scorer, falling back to defaults for unset options.
func NewScorer(opts ScorerOptions) *Scorer {
	if opts.ProviderWeight <= 0 && opts.SimilarityWeight <= 0 {
		opts = DefaultScorerOptions()
	}
	if opts.FallbackCeiling <= 0 || opts.FallbackCeiling >= 1 {
		opts.FallbackCeiling = DefaultScorerOptions().FallbackCeiling
	}
	return &Scorer{opts: opts}
}

// Score returns a confidence in [0,1]. On the generation path it blends the
// provider's self-reported confidence with the mean similarity of the
// matches. On the fallback path the result derives solely from aggregation
// agreement (carried in gen.ProviderConfidence by the resolver) scaled into
// [0, ceiling) — always strictly below the ceiling.
func (s *Scorer) Score(matches []domain.SimilarityMatch, gen *domain.GenerationResult, usedFallback bool) float64 {
	if usedFallback {
		score := s.opts.FallbackCeiling * clamp01(gen.ProviderConfidence)
		if score >= s.opts.FallbackCeiling {
			score = s.opts.FallbackCeiling - 0.01
		}
		return clamp01(score)
	}

	return clamp01(s.opts.ProviderWeight*clamp01(gen.ProviderConfidence) +
		s.opts.SimilarityWeight*meanSimilarity(matches))
}

// meanSimilarity averages match scores, clamping negatives to zero so an
// anti-correlated corpus cannot drag a confident generation below zero.
func meanSimilarity(matches []domain.SimilarityMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	var sum float64
	for _, m := range matches {
		sum += clamp01(float64(m.Score))
	}
	return sum / float64(len(matches))
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
