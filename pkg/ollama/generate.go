package ollama

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// GenerateClient is a generation provider backed by Ollama's /api/generate
// endpoint, requesting JSON-formatted output. It satisfies the orchestrator's
// Provider contract.
type GenerateClient struct {
	name    string
	baseURL string
	model   string
	client  *http.Client
}

// NewGenerateClient creates a named Ollama generation provider.
func NewGenerateClient(name, baseURL, model string) *GenerateClient {
	return &GenerateClient{
		name:    name,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// Name identifies the provider in logs and error chains.
func (c *GenerateClient) Name() string { return c.name }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Complete sends the prompt and returns the model's raw JSON payload. The
// orchestrator owns parsing; any transport or status failure is returned
// as-is.
func (c *GenerateClient) Complete(ctx context.Context, prompt string) ([]byte, error) {
	body, _ := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama generate: status %d", resp.StatusCode)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama generate decode: %w", err)
	}
	return []byte(result.Response), nil
}
