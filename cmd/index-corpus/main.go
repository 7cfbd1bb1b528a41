// Package main implements the offline corpus indexing tool. It reads raw
// reference projects, embeds their descriptions, writes a snapshot file the
// API server can load, and optionally mirrors the vectors into Qdrant and
// announces the new snapshot over NATS.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/StackPilotAI/stackpilot-mvp/engine/corpus"
	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
	"github.com/StackPilotAI/stackpilot-mvp/engine/semantic"
	"github.com/StackPilotAI/stackpilot-mvp/pkg/fn"
	"github.com/StackPilotAI/stackpilot-mvp/pkg/ollama"
)

func main() {
	var (
		in         = flag.String("in", "", "raw corpus JSON (projects without embeddings)")
		out        = flag.String("out", "corpus.json", "snapshot output path")
		ollamaURL  = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		model      = flag.String("model", "nomic-embed-text", "embedding model")
		workers    = flag.Int("workers", 4, "concurrent embedding calls")
		qdrantAddr = flag.String("qdrant", "", "Qdrant gRPC address (skip upsert when empty)")
		collection = flag.String("collection", "stackpilot_projects", "Qdrant collection")
		natsURL    = flag.String("nats", "", "NATS URL to announce the snapshot on (skip when empty)")
		subject    = flag.String("subject", corpus.DefaultReloadSubject, "NATS announce subject")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: index-corpus -in raw.json [-out corpus.json]")
		os.Exit(2)
	}

	if err := run(context.Background(), options{
		in:         *in,
		out:        *out,
		ollamaURL:  *ollamaURL,
		model:      *model,
		workers:    *workers,
		qdrantAddr: *qdrantAddr,
		collection: *collection,
		natsURL:    *natsURL,
		subject:    *subject,
	}, logger); err != nil {
		logger.Error("indexing failed", "err", err)
		os.Exit(1)
	}
}

type options struct {
	in, out          string
	ollamaURL, model string
	workers          int
	qdrantAddr       string
	collection       string
	natsURL, subject string
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	raw, err := os.ReadFile(opts.in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var projects []domain.ReferenceProject
	if err := json.Unmarshal(raw, &projects); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}
	logger.Info("embedding corpus", "projects", len(projects), "model", opts.model)

	embed := ollama.NewEmbedClient(opts.ollamaURL, opts.model)

	// Offline path, so retries are fine here.
	results := fn.ParMapResult(projects, opts.workers, func(p domain.ReferenceProject) fn.Result[domain.ReferenceProject] {
		return fn.Retry(ctx, fn.DefaultRetry, func(ctx context.Context) fn.Result[domain.ReferenceProject] {
			vec, err := embed.Embed(ctx, p.Description)
			if err != nil {
				return fn.Err[domain.ReferenceProject](fmt.Errorf("embed %s: %w", p.ID, err))
			}
			p.Embedding = vec
			return fn.Ok(p)
		})
	})
	embedded, err := fn.Collect(results)
	if err != nil {
		return err
	}

	// Snapshot validation catches duplicate IDs and dimension drift before
	// anything is written.
	snap, err := corpus.NewSnapshot(embedded)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(map[string]any{"projects": embedded}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(opts.out, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	logger.Info("snapshot written", "path", opts.out, "projects", snap.Len(), "dimension", snap.Dimension())

	if opts.qdrantAddr != "" {
		vs, err := semantic.New(opts.qdrantAddr, opts.collection)
		if err != nil {
			return err
		}
		defer vs.Close()
		if err := vs.EnsureCollection(ctx, snap.Dimension()); err != nil {
			return err
		}
		if err := vs.UpsertProjects(ctx, embedded); err != nil {
			return err
		}
		logger.Info("vectors upserted", "collection", opts.collection)
	}

	if opts.natsURL != "" {
		nc, err := nats.Connect(opts.natsURL, nats.Name("stackpilot-index-corpus"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		if err := corpus.Announce(ctx, nc, opts.subject, corpus.ReloadEvent{
			Path:     opts.out,
			Projects: snap.Len(),
			Source:   "index-corpus",
		}); err != nil {
			return fmt.Errorf("announce snapshot: %w", err)
		}
		logger.Info("snapshot announced", "subject", opts.subject)
	}

	return nil
}
