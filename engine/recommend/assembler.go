// Package recommend assembles the final recommendation. It orchestrates
// similarity matching, generation, the statistical fallback, and confidence
// scoring, and enforces the response-shape invariants before returning.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
	"github.com/StackPilotAI/stackpilot-mvp/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Matcher ranks reference projects for a description. Best-effort: a Matcher
// failure degrades the pipeline, it never aborts it.
type Matcher interface {
	Match(ctx context.Context, description string, k int) ([]domain.SimilarityMatch, error)
}

// Generator runs the provider chain.
type Generator interface {
	Generate(ctx context.Context, req domain.Request, matches []domain.SimilarityMatch) (*domain.GenerationResult, error)
}

// Resolver derives a recommendation from matches alone when generation is
// down.
type Resolver interface {
	Resolve(matches []domain.SimilarityMatch, constraints map[string][]string) *domain.GenerationResult
}

// Options configures the assembler.
type Options struct {
	// TopK is how many similar projects to retrieve and return.
	TopK int
	// GroundGeneration runs retrieval before generation so the matches
	// land in the provider prompt. When false (the default) both legs run
	// concurrently and generation goes ungrounded, trading grounding for
	// latency.
	GroundGeneration bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{TopK: 5}
}

// Service is the recommendation assembler.
type Service struct {
	match   Matcher
	gen     Generator
	resolve Resolver
	scorer  *Scorer
	opts    Options
	met     *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Service. met may be nil to disable instrumentation.
func New(m Matcher, g Generator, r Resolver, scorer *Scorer, opts Options, met *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if scorer == nil {
		scorer = NewScorer(DefaultScorerOptions())
	}
	if opts.TopK < 1 {
		opts.TopK = DefaultOptions().TopK
	}
	return &Service{match: m, gen: g, resolve: r, scorer: scorer, opts: opts, met: met, logger: logger}
}

type genOutcome struct {
	result *domain.GenerationResult
	err    error
}

// Assemble runs the full pipeline for one request. It returns a complete
// Recommendation or a terminal error; never partial data. The only terminal
// error on a valid request is domain.ErrNoSignalAvailable.
func (s *Service) Assemble(ctx context.Context, req domain.Request) (*domain.Recommendation, error) {
	ctx, span := otel.Tracer("engine/recommend").Start(ctx, "recommend.assemble")
	defer span.End()
	start := time.Now()

	if err := domain.ValidateRequest(req); err != nil {
		return nil, err
	}

	var (
		matches []domain.SimilarityMatch
		gen     *domain.GenerationResult
		genErr  error
	)

	if s.opts.GroundGeneration {
		matches = s.matchBestEffort(ctx, req)
		gen, genErr = s.gen.Generate(ctx, req, matches)
	} else {
		// Retrieval and generation are independent; run both legs and
		// join before scoring. Cancellation of ctx reaches both.
		genCh := make(chan genOutcome, 1)
		go func() {
			g, err := s.gen.Generate(ctx, req, nil)
			genCh <- genOutcome{g, err}
		}()
		matches = s.matchBestEffort(ctx, req)
		out := <-genCh
		gen, genErr = out.result, out.err
	}

	usedFallback := false
	if genErr != nil {
		if len(matches) == 0 {
			s.observe("failed", start)
			return nil, fmt.Errorf("recommend: generation failed and no similar projects: %w",
				domain.ErrNoSignalAvailable)
		}
		s.logger.Warn("generation failed, using statistical fallback", "err", genErr)
		gen = s.resolve.Resolve(matches, req.Constraints)
		usedFallback = true
	}

	// Fail closed if an upstream component violated the invariant despite
	// reporting success.
	if len(gen.PrimaryStack) == 0 {
		s.observe("failed", start)
		return nil, fmt.Errorf("recommend: %s path returned %w: %w",
			gen.Provider, domain.ErrEmptyPrimaryStack, domain.ErrNoSignalAvailable)
	}

	confidence := s.scorer.Score(matches, gen, usedFallback)
	span.SetAttributes(
		attribute.Bool("recommend.fallback", usedFallback),
		attribute.Float64("recommend.confidence", confidence),
		attribute.Int("recommend.similar_projects", len(matches)),
	)

	outcome := "generated"
	if usedFallback {
		outcome = "fallback"
	}
	s.observe(outcome, start)
	s.logger.Info("recommendation assembled",
		"outcome", outcome,
		"provider", gen.Provider,
		"confidence", confidence,
		"similar_projects", len(matches),
		"duration", time.Since(start),
	)

	return &domain.Recommendation{
		PrimaryStack:    gen.PrimaryStack,
		Alternatives:    gen.Alternatives,
		Explanation:     gen.Explanation,
		Confidence:      confidence,
		SimilarProjects: matches,
		UsedFallback:    usedFallback,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// matchBestEffort retrieves similarity matches, absorbing failures: the
// pipeline proceeds without similarity context rather than aborting.
func (s *Service) matchBestEffort(ctx context.Context, req domain.Request) []domain.SimilarityMatch {
	matches, err := s.match.Match(ctx, req.Description, s.opts.TopK)
	if err != nil {
		s.logger.Warn("similarity matching unavailable, continuing without", "err", err)
		if s.met != nil {
			s.met.MatcherFailures.Inc()
		}
		return nil
	}
	return matches
}

func (s *Service) observe(outcome string, start time.Time) {
	if s.met == nil {
		return
	}
	s.met.Requests.WithLabelValues(outcome).Inc()
	s.met.RequestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
