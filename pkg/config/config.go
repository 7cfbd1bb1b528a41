// Package config loads layered service configuration: built-in defaults,
// an optional YAML file, then STACKPILOT_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar points at an explicit config file.
const ConfigPathEnvVar = "STACKPILOT_CONFIG"

// DefaultConfigPaths are searched in order when no explicit path is given.
var DefaultConfigPaths = []string{"stackpilot.yaml", "/etc/stackpilot/config.yaml"}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	CORSOrigin      string        `koanf:"cors_origin"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type CorpusConfig struct {
	Path          string `koanf:"path"`
	ReloadSubject string `koanf:"reload_subject"`
}

type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

type QdrantConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Addr       string `koanf:"addr"`
	Collection string `koanf:"collection"`
}

type OllamaConfig struct {
	URL        string `koanf:"url"`
	EmbedModel string `koanf:"embed_model"`
}

// ProviderConfig describes one generation provider endpoint.
type ProviderConfig struct {
	URL   string `koanf:"url"`
	Model string `koanf:"model"`
}

type GenerateConfig struct {
	Primary         ProviderConfig `koanf:"primary"`
	Secondary       ProviderConfig `koanf:"secondary"`
	Timeout         time.Duration  `koanf:"timeout"`
	Rate            float64        `koanf:"rate"`
	Burst           int            `koanf:"burst"`
	BreakerFailures uint32         `koanf:"breaker_failures"`
	BreakerOpenFor  time.Duration  `koanf:"breaker_open_for"`
}

type RecommendConfig struct {
	TopK             int     `koanf:"top_k"`
	GroundGeneration bool    `koanf:"ground_generation"`
	ProviderWeight   float64 `koanf:"provider_weight"`
	SimilarityWeight float64 `koanf:"similarity_weight"`
	FallbackCeiling  float64 `koanf:"fallback_ceiling"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Corpus    CorpusConfig    `koanf:"corpus"`
	NATS      NATSConfig      `koanf:"nats"`
	Qdrant    QdrantConfig    `koanf:"qdrant"`
	Ollama    OllamaConfig    `koanf:"ollama"`
	Generate  GenerateConfig  `koanf:"generate"`
	Recommend RecommendConfig `koanf:"recommend"`
	Log       LogConfig       `koanf:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			CORSOrigin:      "*",
			ShutdownTimeout: 10 * time.Second,
		},
		Corpus: CorpusConfig{
			Path:          "corpus.json",
			ReloadSubject: "stackpilot.corpus.reload",
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
		},
		Qdrant: QdrantConfig{
			Enabled:    false,
			Addr:       "localhost:6334",
			Collection: "stackpilot_projects",
		},
		Ollama: OllamaConfig{
			URL:        "http://localhost:11434",
			EmbedModel: "nomic-embed-text",
		},
		Generate: GenerateConfig{
			Primary:         ProviderConfig{URL: "http://localhost:11434", Model: "llama3.1"},
			Secondary:       ProviderConfig{URL: "http://localhost:11434", Model: "llama3.2:3b"},
			Timeout:         20 * time.Second,
			Rate:            5,
			Burst:           10,
			BreakerFailures: 5,
			BreakerOpenFor:  30 * time.Second,
		},
		Recommend: RecommendConfig{
			TopK:             5,
			GroundGeneration: false,
			ProviderWeight:   0.7,
			SimilarityWeight: 0.3,
			FallbackCeiling:  0.6,
		},
		Log: LogConfig{Level: "info"},
	}
}

// envPaths maps STACKPILOT_* environment variables to koanf paths. Explicit
// mapping keeps multi-word keys unambiguous.
var envPaths = map[string]string{
	"STACKPILOT_SERVER_ADDR":                 "server.addr",
	"STACKPILOT_SERVER_CORS_ORIGIN":          "server.cors_origin",
	"STACKPILOT_SERVER_SHUTDOWN_TIMEOUT":     "server.shutdown_timeout",
	"STACKPILOT_CORPUS_PATH":                 "corpus.path",
	"STACKPILOT_CORPUS_RELOAD_SUBJECT":       "corpus.reload_subject",
	"STACKPILOT_NATS_ENABLED":                "nats.enabled",
	"STACKPILOT_NATS_URL":                    "nats.url",
	"STACKPILOT_QDRANT_ENABLED":              "qdrant.enabled",
	"STACKPILOT_QDRANT_ADDR":                 "qdrant.addr",
	"STACKPILOT_QDRANT_COLLECTION":           "qdrant.collection",
	"STACKPILOT_OLLAMA_URL":                  "ollama.url",
	"STACKPILOT_OLLAMA_EMBED_MODEL":          "ollama.embed_model",
	"STACKPILOT_GENERATE_PRIMARY_URL":        "generate.primary.url",
	"STACKPILOT_GENERATE_PRIMARY_MODEL":      "generate.primary.model",
	"STACKPILOT_GENERATE_SECONDARY_URL":      "generate.secondary.url",
	"STACKPILOT_GENERATE_SECONDARY_MODEL":    "generate.secondary.model",
	"STACKPILOT_GENERATE_TIMEOUT":            "generate.timeout",
	"STACKPILOT_GENERATE_RATE":               "generate.rate",
	"STACKPILOT_GENERATE_BURST":              "generate.burst",
	"STACKPILOT_GENERATE_BREAKER_FAILURES":   "generate.breaker_failures",
	"STACKPILOT_GENERATE_BREAKER_OPEN_FOR":   "generate.breaker_open_for",
	"STACKPILOT_RECOMMEND_TOP_K":             "recommend.top_k",
	"STACKPILOT_RECOMMEND_GROUND_GENERATION": "recommend.ground_generation",
	"STACKPILOT_RECOMMEND_PROVIDER_WEIGHT":   "recommend.provider_weight",
	"STACKPILOT_RECOMMEND_SIMILARITY_WEIGHT": "recommend.similarity_weight",
	"STACKPILOT_RECOMMEND_FALLBACK_CEILING":  "recommend.fallback_ceiling",
	"STACKPILOT_LOG_LEVEL":                   "log.level",
}

// Load builds the configuration: defaults, then the YAML file at path (or a
// discovered default path when path is empty), then environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	// Unmapped STACKPILOT_* variables are ignored.
	envProvider := env.Provider("STACKPILOT_", ".", func(s string) string {
		return envPaths[s]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr must not be empty")
	}
	if c.Corpus.Path == "" {
		return fmt.Errorf("config: corpus.path must not be empty")
	}
	if c.Recommend.TopK < 1 {
		return fmt.Errorf("config: recommend.top_k must be >= 1, got %d", c.Recommend.TopK)
	}
	for name, w := range map[string]float64{
		"recommend.provider_weight":   c.Recommend.ProviderWeight,
		"recommend.similarity_weight": c.Recommend.SimilarityWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("config: %s must be in [0, 1], got %g", name, w)
		}
	}
	if c.Recommend.FallbackCeiling <= 0 || c.Recommend.FallbackCeiling >= 1 {
		return fmt.Errorf("config: recommend.fallback_ceiling must be in (0, 1), got %g",
			c.Recommend.FallbackCeiling)
	}
	if c.Generate.Timeout <= 0 {
		return fmt.Errorf("config: generate.timeout must be positive, got %s", c.Generate.Timeout)
	}
	return nil
}
