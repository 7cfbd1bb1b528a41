package generate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
)

// --- mocks ---

type stubProvider struct {
	name    string
	payload []byte
	err     error
	delay   time.Duration
	calls   int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(ctx context.Context, _ string) ([]byte, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.payload, s.err
}

var goodPayload = []byte(`{
	"primary_stack": [{"category": "frontend", "technology": "React"}],
	"alternatives": {"frontend": [{"category": "frontend", "technology": "Vue"}]},
	"explanation": "React fits a component-heavy UI.",
	"confidence": 0.82
}`)

func testReq() domain.Request {
	return domain.Request{Description: "A real-time chat application for remote teams"}
}

func newOrchestrator(primary, secondary Provider) *Orchestrator {
	opts := DefaultOptions()
	opts.Timeout = 200 * time.Millisecond
	opts.Rate = 0 // no limiter in unit tests
	return New(primary, secondary, opts, nil, nil)
}

// --- tests ---

func TestGenerate_PrimarySucceeds(t *testing.T) {
	primary := &stubProvider{name: "alpha", payload: goodPayload}
	secondary := &stubProvider{name: "beta", payload: goodPayload}
	o := newOrchestrator(primary, secondary)

	res, err := o.Generate(context.Background(), testReq(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Provider != "primary" {
		t.Errorf("provider tag = %q, want primary", res.Provider)
	}
	if secondary.calls != 0 {
		t.Error("secondary must not be called when primary succeeds")
	}
	if res.PrimaryStack[0].Technology != "React" || res.ProviderConfidence != 0.82 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestGenerate_FallsBackToSecondary(t *testing.T) {
	secondaryPayload := []byte(`{
		"primary_stack": [{"category": "backend", "technology": "Go"}],
		"explanation": "from secondary",
		"confidence": 0.6
	}`)
	primary := &stubProvider{name: "alpha", err: errors.New("connection refused")}
	secondary := &stubProvider{name: "beta", payload: secondaryPayload}
	o := newOrchestrator(primary, secondary)

	res, err := o.Generate(context.Background(), testReq(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Provider != "secondary" || res.Explanation != "from secondary" {
		t.Errorf("result should come verbatim from secondary: %+v", res)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("calls = %d/%d, want exactly one each", primary.calls, secondary.calls)
	}
}

func TestGenerate_MalformedPrimaryTriggersSecondary(t *testing.T) {
	primary := &stubProvider{name: "alpha", payload: []byte(`{"primary_stack": []}`)}
	secondary := &stubProvider{name: "beta", payload: goodPayload}
	o := newOrchestrator(primary, secondary)

	res, err := o.Generate(context.Background(), testReq(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Provider != "secondary" {
		t.Errorf("provider tag = %q, want secondary", res.Provider)
	}
}

func TestGenerate_BothFail(t *testing.T) {
	primary := &stubProvider{name: "alpha", err: errors.New("timeout")}
	secondary := &stubProvider{name: "beta", payload: []byte(`garbage`)}
	o := newOrchestrator(primary, secondary)

	_, err := o.Generate(context.Background(), testReq(), nil)
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("got %v, want ErrGenerationFailed", err)
	}

	var fe *FailedError
	if !errors.As(err, &fe) {
		t.Fatal("error should be a *FailedError")
	}
	if fe.Primary == nil || fe.Secondary == nil {
		t.Fatalf("both attempt reasons must be carried: %+v", fe)
	}
	if !strings.Contains(fe.Primary.Error(), "timeout") {
		t.Errorf("primary reason lost: %v", fe.Primary)
	}
	if !errors.Is(fe.Secondary, domain.ErrMalformedResponse) {
		t.Errorf("secondary reason should be malformed response: %v", fe.Secondary)
	}
}

func TestGenerate_NoSecondaryConfigured(t *testing.T) {
	primary := &stubProvider{name: "alpha", err: errors.New("down")}
	o := newOrchestrator(primary, nil)

	_, err := o.Generate(context.Background(), testReq(), nil)
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("got %v, want ErrGenerationFailed", err)
	}
}

func TestGenerate_PerAttemptTimeout(t *testing.T) {
	primary := &stubProvider{name: "slow", payload: goodPayload, delay: time.Second}
	secondary := &stubProvider{name: "beta", payload: goodPayload}
	o := newOrchestrator(primary, secondary)

	start := time.Now()
	res, err := o.Generate(context.Background(), testReq(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Provider != "secondary" {
		t.Errorf("slow primary should time out and fall back, got %q", res.Provider)
	}
	if time.Since(start) > 800*time.Millisecond {
		t.Errorf("timeout not bounded per attempt: took %v", time.Since(start))
	}
}

func TestGenerate_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	primary := &stubProvider{name: "alpha", err: errors.New("down")}
	secondary := &stubProvider{name: "beta", payload: goodPayload}
	opts := DefaultOptions()
	opts.Timeout = 100 * time.Millisecond
	opts.Rate = 0
	opts.BreakerFailures = 2
	o := New(primary, secondary, opts, nil, nil)

	for i := 0; i < 5; i++ {
		if _, err := o.Generate(context.Background(), testReq(), nil); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if primary.calls > 3 {
		t.Errorf("breaker should stop hammering the dead primary, calls = %d", primary.calls)
	}
}

func TestGenerate_CancellationPropagates(t *testing.T) {
	primary := &stubProvider{name: "slow", payload: goodPayload, delay: time.Second}
	o := newOrchestrator(primary, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := o.Generate(ctx, testReq(), nil)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("cancellation did not propagate promptly: %v", time.Since(start))
	}
}
