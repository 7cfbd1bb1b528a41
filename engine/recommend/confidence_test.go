package recommend

import (
	"math"
	"testing"

	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
)

func matchWithScore(score float32) domain.SimilarityMatch {
	return domain.SimilarityMatch{Project: &domain.ReferenceProject{}, Score: score}
}

func TestScore_GenerationBlend(t *testing.T) {
	s := NewScorer(DefaultScorerOptions())
	matches := []domain.SimilarityMatch{matchWithScore(0.8), matchWithScore(0.6)}
	gen := &domain.GenerationResult{ProviderConfidence: 0.9}

	got := s.Score(matches, gen, false)
	want := 0.7*0.9 + 0.3*0.7
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %f, want %f", got, want)
	}
}

func TestScore_GenerationNoMatches(t *testing.T) {
	s := NewScorer(DefaultScorerOptions())
	got := s.Score(nil, &domain.GenerationResult{ProviderConfidence: 1}, false)
	if math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("got %f, want provider weight alone (0.7)", got)
	}
}

func TestScore_NegativeSimilarityClamped(t *testing.T) {
	s := NewScorer(DefaultScorerOptions())
	matches := []domain.SimilarityMatch{matchWithScore(-0.9)}
	got := s.Score(matches, &domain.GenerationResult{ProviderConfidence: 0.5}, false)
	if got < 0 || got > 1 {
		t.Fatalf("score %f out of [0,1]", got)
	}
	if math.Abs(got-0.35) > 1e-9 {
		t.Fatalf("negative similarity should contribute zero, got %f", got)
	}
}

func TestScore_FallbackStrictlyUnderCeiling(t *testing.T) {
	s := NewScorer(DefaultScorerOptions())
	ceiling := DefaultScorerOptions().FallbackCeiling

	for _, agreement := range []float64{0, 0.3, 0.99, 1.0, 2.5} {
		got := s.Score(nil, &domain.GenerationResult{ProviderConfidence: agreement}, true)
		if got >= ceiling {
			t.Errorf("agreement %f: score %f must stay strictly under ceiling %f",
				agreement, got, ceiling)
		}
		if got < 0 {
			t.Errorf("agreement %f: negative score %f", agreement, got)
		}
	}
}

func TestScore_FallbackBelowGenerationMax(t *testing.T) {
	s := NewScorer(DefaultScorerOptions())
	fallbackBest := s.Score(nil, &domain.GenerationResult{ProviderConfidence: 1}, true)
	generationBest := s.Score(
		[]domain.SimilarityMatch{matchWithScore(1)},
		&domain.GenerationResult{ProviderConfidence: 1}, false)
	if fallbackBest >= generationBest {
		t.Fatalf("fallback best %f should signal degraded quality vs generation best %f",
			fallbackBest, generationBest)
	}
}

func TestNewScorer_FillsUnsetOptions(t *testing.T) {
	s := NewScorer(ScorerOptions{})
	if s.opts.ProviderWeight != 0.7 || s.opts.FallbackCeiling != 0.6 {
		t.Fatalf("defaults not applied: %+v", s.opts)
	}
}
