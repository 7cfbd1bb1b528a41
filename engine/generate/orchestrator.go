// Package generate orchestrates the generation providers. It builds a
// structured prompt, calls the primary provider with a bounded timeout, and
// on any failure makes exactly one fallback attempt against the secondary
// provider. There is no retry within a provider and no chain beyond
// primary→secondary.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
	"github.com/StackPilotAI/stackpilot-mvp/pkg/metrics"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Provider is a black-box text-generation backend. Complete returns the raw
// JSON payload; the orchestrator owns parsing and validation so every
// provider is held to the same contract.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) ([]byte, error)
}

// Hop tags the two steps of the fixed provider chain.
type Hop string

const (
	HopPrimary   Hop = "primary"
	HopSecondary Hop = "secondary"
)

// FailedError reports total generation failure, carrying both attempt
// reasons for diagnostics. errors.Is(err, domain.ErrGenerationFailed) holds.
type FailedError struct {
	Primary   error
	Secondary error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("generate: primary: %v; secondary: %v", e.Primary, e.Secondary)
}

func (e *FailedError) Is(target error) bool {
	return target == domain.ErrGenerationFailed
}

// Options configures the orchestrator.
type Options struct {
	// Timeout bounds each provider attempt separately.
	Timeout time.Duration
	// Rate limits outbound provider calls (requests/second); zero
	// disables limiting.
	Rate  float64
	Burst int
	// Breaker settings shared by both per-provider breakers.
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:         20 * time.Second,
		Rate:            5,
		Burst:           10,
		BreakerFailures: 5,
		BreakerOpenFor:  30 * time.Second,
	}
}

// Orchestrator runs the primary→secondary provider chain.
type Orchestrator struct {
	primary   Provider
	secondary Provider
	opts      Options
	limiter   *rate.Limiter
	breakers  map[Hop]*gobreaker.CircuitBreaker[[]byte]
	met       *metrics.Metrics
	logger    *slog.Logger
}

// New creates an Orchestrator. secondary may be nil, in which case the chain
// is a single hop. met may be nil to disable instrumentation.
func New(primary, secondary Provider, opts Options, met *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	o := &Orchestrator{
		primary:   primary,
		secondary: secondary,
		opts:      opts,
		met:       met,
		logger:    logger,
		breakers:  make(map[Hop]*gobreaker.CircuitBreaker[[]byte]),
	}
	if opts.Rate > 0 {
		o.limiter = rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst)
	}
	for hop, p := range map[Hop]Provider{HopPrimary: primary, HopSecondary: secondary} {
		if p == nil {
			continue
		}
		o.breakers[hop] = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name: string(hop) + ":" + p.Name(),
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= opts.BreakerFailures
			},
			Timeout: opts.BreakerOpenFor,
		})
	}
	return o
}

// Generate runs the chain for a request, optionally grounded on similarity
// matches. A tripped breaker, timeout, transport error, or malformed payload
// all count as a failed hop.
func (o *Orchestrator) Generate(ctx context.Context, req domain.Request, matches []domain.SimilarityMatch) (*domain.GenerationResult, error) {
	prompt := BuildPrompt(req, matches)

	result, primaryErr := o.attempt(ctx, HopPrimary, o.primary, prompt)
	if primaryErr == nil {
		return result, nil
	}
	o.logger.Warn("primary provider failed, trying secondary",
		"provider", o.primary.Name(), "err", primaryErr)

	if o.secondary == nil {
		return nil, &FailedError{Primary: primaryErr, Secondary: fmt.Errorf("no secondary provider configured")}
	}

	result, secondaryErr := o.attempt(ctx, HopSecondary, o.secondary, prompt)
	if secondaryErr == nil {
		return result, nil
	}
	return nil, &FailedError{Primary: primaryErr, Secondary: secondaryErr}
}

func (o *Orchestrator) attempt(ctx context.Context, hop Hop, p Provider, prompt string) (*domain.GenerationResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	if o.limiter != nil {
		if err := o.limiter.Wait(attemptCtx); err != nil {
			return nil, fmt.Errorf("%s %s: rate limit: %w", hop, p.Name(), err)
		}
	}

	start := time.Now()
	raw, err := o.breakers[hop].Execute(func() ([]byte, error) {
		return p.Complete(attemptCtx, prompt)
	})
	if err != nil {
		o.countAttempt(hop, "error")
		return nil, fmt.Errorf("%s %s: %w", hop, p.Name(), err)
	}

	result, err := ParseResult(raw)
	if err != nil {
		o.countAttempt(hop, "malformed")
		return nil, fmt.Errorf("%s %s: %w", hop, p.Name(), err)
	}
	result.Provider = string(hop)
	o.countAttempt(hop, "ok")
	o.logger.Info("generation succeeded",
		"hop", hop, "provider", p.Name(), "duration", time.Since(start))
	return result, nil
}

func (o *Orchestrator) countAttempt(hop Hop, status string) {
	if o.met != nil {
		o.met.ProviderAttempts.WithLabelValues(string(hop), status).Inc()
	}
}
