// Package main implements the StackPilot recommendation API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/StackPilotAI/stackpilot-mvp/engine/corpus"
	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
	"github.com/StackPilotAI/stackpilot-mvp/engine/fallback"
	"github.com/StackPilotAI/stackpilot-mvp/engine/generate"
	"github.com/StackPilotAI/stackpilot-mvp/engine/match"
	"github.com/StackPilotAI/stackpilot-mvp/engine/recommend"
	"github.com/StackPilotAI/stackpilot-mvp/engine/semantic"
	"github.com/StackPilotAI/stackpilot-mvp/pkg/config"
	"github.com/StackPilotAI/stackpilot-mvp/pkg/metrics"
	"github.com/StackPilotAI/stackpilot-mvp/pkg/mid"
	"github.com/StackPilotAI/stackpilot-mvp/pkg/ollama"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults to stackpilot.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	met := metrics.New()

	// --- Load the reference corpus ---
	snap, err := corpus.LoadFile(cfg.Corpus.Path)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	store := corpus.NewStore(snap, cfg.Corpus.Path, logger)
	met.CorpusProjects.Set(float64(snap.Len()))
	logger.Info("corpus loaded", "projects", snap.Len(), "dimension", snap.Dimension())

	// --- Subscribe to corpus reload announcements (optional) ---
	if cfg.NATS.Enabled {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("stackpilot-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()

		sub, err := store.Watch(nc, cfg.Corpus.ReloadSubject)
		if err != nil {
			return fmt.Errorf("corpus watch: %w", err)
		}
		defer sub.Unsubscribe()
		logger.Info("watching corpus reloads", "subject", cfg.Corpus.ReloadSubject)
	}

	// --- Embedding client ---
	embed := ollama.NewEmbedClient(cfg.Ollama.URL, cfg.Ollama.EmbedModel)
	embed.Observe = met.EmbedDuration.Observe

	// --- Similarity matcher: Qdrant-backed or in-memory ---
	var matcher recommend.Matcher
	if cfg.Qdrant.Enabled {
		vs, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer vs.Close()
		matcher = semantic.NewMatcher(embed, vs, store, logger)
		logger.Info("using qdrant matcher", "addr", cfg.Qdrant.Addr, "collection", cfg.Qdrant.Collection)
	} else {
		matcher = match.New(embed, store, logger)
	}

	// --- Generation chain ---
	primary := ollama.NewGenerateClient("primary", cfg.Generate.Primary.URL, cfg.Generate.Primary.Model)
	var secondary generate.Provider
	if cfg.Generate.Secondary.Model != "" {
		secondary = ollama.NewGenerateClient("secondary", cfg.Generate.Secondary.URL, cfg.Generate.Secondary.Model)
	}
	orch := generate.New(primary, secondary, generate.Options{
		Timeout:         cfg.Generate.Timeout,
		Rate:            cfg.Generate.Rate,
		Burst:           cfg.Generate.Burst,
		BreakerFailures: cfg.Generate.BreakerFailures,
		BreakerOpenFor:  cfg.Generate.BreakerOpenFor,
	}, met, logger)

	// --- Assembler ---
	scorer := recommend.NewScorer(recommend.ScorerOptions{
		ProviderWeight:   cfg.Recommend.ProviderWeight,
		SimilarityWeight: cfg.Recommend.SimilarityWeight,
		FallbackCeiling:  cfg.Recommend.FallbackCeiling,
	})
	svc := recommend.New(matcher, orch, fallback.New(), scorer, recommend.Options{
		TopK:             cfg.Recommend.TopK,
		GroundGeneration: cfg.Recommend.GroundGeneration,
	}, met, logger)

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth(store))
	mux.Handle("GET /metrics", met.Handler())
	mux.HandleFunc("POST /api/v1/recommend", handleRecommend(svc, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.OTel("stackpilot-api"),
		mid.Logger(logger),
		mid.CORS(cfg.Server.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func handleHealth(store *corpus.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := store.Current()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":          "ok",
			"corpus_projects": snap.Len(),
			"corpus_loaded":   snap.LoadedAt(),
		})
	}
}

// RecommendRequest is the JSON body for POST /api/v1/recommend.
type RecommendRequest struct {
	Description  string              `json:"description"`
	Requirements []string            `json:"requirements,omitempty"`
	Constraints  map[string][]string `json:"constraints,omitempty"`
}

// SimilarProject summarizes one corpus hit in the response.
type SimilarProject struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float32 `json:"similarity"`
}

// RecommendResponse is the JSON response for POST /api/v1/recommend.
type RecommendResponse struct {
	PrimaryStack    []domain.StackEntry            `json:"primary_stack"`
	Alternatives    map[string][]domain.StackEntry `json:"alternatives,omitempty"`
	Explanation     string                         `json:"explanation"`
	Confidence      float64                        `json:"confidence"`
	SimilarProjects []SimilarProject               `json:"similar_projects"`
	UsedFallback    bool                           `json:"used_fallback"`
	GeneratedAt     time.Time                      `json:"generated_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func handleRecommend(svc *recommend.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RecommendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		rec, err := svc.Assemble(r.Context(), domain.Request{
			Description:  req.Description,
			Requirements: req.Requirements,
			Constraints:  req.Constraints,
		})
		if err != nil {
			var ve *domain.ValidationError
			switch {
			case errors.As(err, &ve):
				writeError(w, http.StatusBadRequest, ve.Error())
			case errors.Is(err, domain.ErrNoSignalAvailable):
				logger.Warn("no signal available", "err", err)
				writeError(w, http.StatusServiceUnavailable, "no recommendation signal available")
			default:
				logger.Error("recommend failed", "err", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		similar := make([]SimilarProject, len(rec.SimilarProjects))
		for i, m := range rec.SimilarProjects {
			similar[i] = SimilarProject{ID: m.Project.ID, Name: m.Project.Name, Score: m.Score}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(RecommendResponse{
			PrimaryStack:    rec.PrimaryStack,
			Alternatives:    rec.Alternatives,
			Explanation:     rec.Explanation,
			Confidence:      rec.Confidence,
			SimilarProjects: similar,
			UsedFallback:    rec.UsedFallback,
			GeneratedAt:     rec.GeneratedAt,
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
