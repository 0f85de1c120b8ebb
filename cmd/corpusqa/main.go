// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	corpusqa "github.com/poiesic/corpusqa"
	"github.com/poiesic/corpusqa/ai"
	"github.com/poiesic/corpusqa/answer"
	"github.com/poiesic/corpusqa/core"
	"github.com/poiesic/corpusqa/ingestion"
	"github.com/poiesic/corpusqa/storage/badger"
)

func main() {
	app := &cli.App{
		Name:  "corpusqa",
		Usage: "Retrieval-augmented question answering over a document corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "init-db",
				Usage:  "Create the database schema (idempotent)",
				Action: initDBCommand,
				Flags:  append(dbFlags(), aiFlags()...),
			},
			{
				Name:    "ingest",
				Aliases: []string{"backfill"},
				Usage:   "Ingest source objects under a prefix into the corpus",
				Action:  ingestCommand,
				Flags: append(append(dbFlags(), aiFlags()...),
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Source directory to ingest from",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Only ingest objects whose key starts with this prefix",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of objects ingested in parallel",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum embedding attempts per object",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 500 * time.Millisecond,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N objects",
						Value: 10,
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Ask a question; prints the answer as JSON",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: append(append(dbFlags(), aiFlags()...),
					&cli.IntFlag{
						Name:    "k",
						Aliases: []string{"n"},
						Usage:   "Nominal number of hits to retrieve",
						Value:   answer.DefaultK,
					},
					&cli.Float64Flag{
						Name:  "max-cosine-dist",
						Usage: "Abstain when the best hit is farther than this",
						Value: answer.DefaultMaxCosineDist,
					},
					&cli.IntFlag{
						Name:  "min-hits",
						Usage: "Minimum selected-document hits required to answer",
						Value: answer.DefaultMinHits,
					},
					&cli.IntFlag{
						Name:  "doc-ctx-chunks",
						Usage: "Chunks of the selected document fed to generation",
						Value: answer.DefaultDocContextChunks,
					},
					&cli.StringSliceFlag{
						Name:  "filter",
						Usage: "Restrict retrieval to chunks with this metadata value (key=value, repeatable)",
					},
				),
			},
			{
				Name:   "feedback",
				Usage:  "Record feedback on an answer",
				Action: feedbackCommand,
				Flags: append(append(dbFlags(), aiFlags()...),
					&cli.StringFlag{Name: "session", Usage: "Session identifier"},
					&cli.StringFlag{Name: "query", Usage: "The question that was asked", Required: true},
					&cli.StringFlag{Name: "answer", Usage: "The answer that was given", Required: true},
					&cli.IntFlag{Name: "rating", Usage: "Rating: -1, 0, or 1", Required: true},
					&cli.StringFlag{Name: "notes", Usage: "Free-form notes"},
				),
			},
			{
				Name:  "deadletter",
				Usage: "Inspect and requeue parked ingest deliveries",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List parked deliveries as JSON lines",
						Action: deadLetterListCommand,
						Flags:  deadLetterFlags(),
					},
					{
						Name:      "requeue",
						Usage:     "Reprocess a parked delivery by ID",
						ArgsUsage: "<id>",
						Action:    deadLetterRequeueCommand,
						Flags: append(append(append(dbFlags(), aiFlags()...), deadLetterFlags()...),
							&cli.StringFlag{
								Name:     "source",
								Aliases:  []string{"s"},
								Usage:    "Source directory the delivery came from",
								Required: true,
							},
						),
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "dsn",
			Usage:   "PostgreSQL connection string",
			EnvVars: []string{"CORPUSQA_DSN"},
			Value:   "postgres://localhost:5432/corpusqa",
		},
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "Model service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "generator-model",
			Usage: "Generation model name",
			Value: "qwen2.5:3b",
		},
		&cli.IntFlag{
			Name:  "dimensions",
			Usage: "Embedding vector dimension",
			Value: 1024,
		},
	}
}

func deadLetterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the dead-letter BadgerDB directory",
			Required: true,
		},
	}
}

// parseFilters turns repeated key=value flags into a metadata filter.
func parseFilters(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", pair)
		}
		filters[key] = value
	}
	return filters, nil
}

func buildAIConfig(c *cli.Context) (*ai.Config, error) {
	cfg := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGeneratorModel(c.String("generator-model")),
		ai.WithEmbeddingDimensions(c.Int("dimensions")),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return cfg, nil
}

func openCorpus(ctx context.Context, c *cli.Context) (*corpusqa.Corpus, error) {
	aiConfig, err := buildAIConfig(c)
	if err != nil {
		return nil, err
	}
	corpus, err := corpusqa.Open(ctx, c.String("dsn"), corpusqa.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	return corpus, nil
}

func initDBCommand(c *cli.Context) error {
	ctx := context.Background()

	corpus, err := openCorpus(ctx, c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	if err := corpus.InitSchema(ctx); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Schema ready.")
	return nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	corpus, err := openCorpus(ctx, c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	source, err := ingestion.NewFilesystemSource(c.String("source"))
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}

	pipeline, err := corpus.NewIngestionPipeline(source,
		ingestion.WithConcurrency(c.Int("concurrency")),
		ingestion.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	prefix := c.String("prefix")
	uris, err := source.List(ctx, prefix)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Source: %s\n", c.String("source"))
	fmt.Fprintf(os.Stderr, "Objects: %d\n\n", len(uris))

	progress := ingestion.NewProgressTracker(os.Stderr, len(uris), c.Int("report-interval"))
	progress.Start()
	result, err := pipeline.IngestPrefix(ctx, prefix, progress)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	progress.Finish()

	fmt.Fprintf(os.Stderr, "Ingested: %d, unchanged: %d, skipped: %d, failed: %d (%.1fs)\n",
		result.Ingested, result.Unchanged, result.Skipped, len(result.Failed),
		progress.Elapsed().Seconds())
	for uri, ferr := range result.Failed {
		fmt.Fprintf(os.Stderr, "  FAILED %s: %v\n", uri, ferr)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d objects failed", len(result.Failed))
	}
	return nil
}

func askCommand(c *cli.Context) error {
	ctx := context.Background()

	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	corpus, err := openCorpus(ctx, c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	filters, err := parseFilters(c.StringSlice("filter"))
	if err != nil {
		return err
	}

	cfg := answer.DefaultConfig()
	cfg.K = c.Int("k")
	cfg.MaxCosineDist = c.Float64("max-cosine-dist")
	cfg.MinHits = c.Int("min-hits")
	cfg.DocContextChunks = c.Int("doc-ctx-chunks")
	cfg.MetadataFilter = filters

	pipeline, err := corpus.NewAnswerPipeline(answer.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	result, err := pipeline.Ask(ctx, question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func feedbackCommand(c *cli.Context) error {
	ctx := context.Background()

	corpus, err := openCorpus(ctx, c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	sink, err := corpus.NewFeedbackSink()
	if err != nil {
		return err
	}

	stored, err := sink.Submit(ctx, &core.Feedback{
		SessionId: c.String("session"),
		Query:     c.String("query"),
		Answer:    c.String("answer"),
		Rating:    core.Rating(c.Int("rating")),
		Notes:     c.String("notes"),
	})
	if err != nil {
		return fmt.Errorf("feedback failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Recorded feedback %d (session %s)\n", stored.Id, stored.SessionId)
	return nil
}

func deadLetterListCommand(c *cli.Context) error {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open dead-letter store: %w", err)
	}
	defer backend.Close()

	msgs, err := badger.NewDeadLetterStore(backend).List()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, msg := range msgs {
		if err := enc.Encode(msg); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "%d parked deliveries\n", len(msgs))
	return nil
}

func deadLetterRequeueCommand(c *cli.Context) error {
	ctx := context.Background()

	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("a parked delivery ID is required")
	}

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open dead-letter store: %w", err)
	}
	defer backend.Close()
	store := badger.NewDeadLetterStore(backend)

	corpus, err := openCorpus(ctx, c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	source, err := ingestion.NewFilesystemSource(c.String("source"))
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}

	pipeline, err := corpus.NewIngestionPipeline(source)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	consumer, err := ingestion.NewConsumer(pipeline, store)
	if err != nil {
		return err
	}

	result, err := consumer.Requeue(ctx, id)
	if err != nil {
		return fmt.Errorf("requeue failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Requeued %s: %s (%d chunks)\n", result.URI, result.Status, result.Chunks)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
