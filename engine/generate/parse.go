package generate

import (
	"fmt"
	"strings"

	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
	"github.com/goccy/go-json"
)

// providerPayload is the shape every provider must return.
type providerPayload struct {
	PrimaryStack []domain.StackEntry            `json:"primary_stack"`
	Alternatives map[string][]domain.StackEntry `json:"alternatives"`
	Explanation  string                         `json:"explanation"`
	Confidence   float64                        `json:"confidence"`
}

// ParseResult maps a raw provider payload onto a GenerationResult. Anything
// that cannot be mapped to the expected shape is a provider failure
// (domain.ErrMalformedResponse), never partial data: no parsable JSON, an
// empty primary stack, or blank entries all reject the payload. A duplicated
// category in primary_stack keeps the first entry; confidence is clamped to
// [0,1].
func ParseResult(raw []byte) (*domain.GenerationResult, error) {
	var p providerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	primary := make([]domain.StackEntry, 0, len(p.PrimaryStack))
	seen := make(map[string]bool, len(p.PrimaryStack))
	for _, e := range p.PrimaryStack {
		cat := strings.ToLower(strings.TrimSpace(e.Category))
		tech := strings.TrimSpace(e.Technology)
		if cat == "" || tech == "" {
			return nil, fmt.Errorf("%w: blank primary stack entry", domain.ErrMalformedResponse)
		}
		if seen[cat] {
			continue
		}
		seen[cat] = true
		primary = append(primary, domain.StackEntry{Category: cat, Technology: tech})
	}
	if len(primary) == 0 {
		return nil, fmt.Errorf("%w: empty primary stack", domain.ErrMalformedResponse)
	}

	alternatives := make(map[string][]domain.StackEntry, len(p.Alternatives))
	for cat, entries := range p.Alternatives {
		cat = strings.ToLower(strings.TrimSpace(cat))
		if cat == "" {
			continue
		}
		for _, e := range entries {
			tech := strings.TrimSpace(e.Technology)
			if tech == "" {
				continue
			}
			alternatives[cat] = append(alternatives[cat], domain.StackEntry{Category: cat, Technology: tech})
		}
	}

	return &domain.GenerationResult{
		PrimaryStack:       primary,
		Alternatives:       alternatives,
		Explanation:        strings.TrimSpace(p.Explanation),
		ProviderConfidence: clamp01(p.Confidence),
	}, nil
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
