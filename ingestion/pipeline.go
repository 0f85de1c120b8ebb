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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/corpusqa/ai"
	"github.com/poiesic/corpusqa/chunker"
	"github.com/poiesic/corpusqa/core"
	"github.com/poiesic/corpusqa/storage"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// Status classifies the outcome of ingesting one object.
type Status int

const (
	// StatusIngested means the document and its chunks were written.
	StatusIngested Status = iota
	// StatusUnchanged means the object's fingerprint matched the stored
	// document, so nothing was written.
	StatusUnchanged
	// StatusSkipped means the object was recorded and skipped: empty
	// after normalization, or an unsupported content type.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusIngested:
		return "ingested"
	case StatusUnchanged:
		return "unchanged"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result reports the outcome of ingesting one object.
type Result struct {
	URI    string
	Status Status
	Chunks int
	Reason string // populated for StatusSkipped
}

// BatchResult aggregates the outcomes of a prefix ingest. Failures are
// per-object; one bad object never aborts a batch.
type BatchResult struct {
	Ingested  int
	Unchanged int
	Skipped   int
	Failed    map[string]error // keyed by URI
}

// Pipeline ingests source objects into the document store.
type Pipeline struct {
	repo        storage.DocumentRepository
	embedder    ai.Embedder
	source      ObjectSource
	chunker     *chunker.Chunker
	pool        *ants.Pool
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// Option customizes pipeline construction.
type Option func(*Pipeline) error

// WithChunking overrides the default chunk window and overlap.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		ch, err := chunker.New(size, overlap)
		if err != nil {
			return err
		}
		p.chunker = ch
		return nil
	}
}

// WithRetry overrides the embedding retry policy.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.baseDelay = baseDelay
		return nil
	}
}

// WithConcurrency resizes the batch worker pool.
func WithConcurrency(size int) Option {
	return func(p *Pipeline) error {
		if size <= 0 {
			return fmt.Errorf("pool size must be positive, got %d", size)
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// NewPipeline creates an ingestion pipeline over the given store,
// embedder, and object source.
func NewPipeline(repo storage.DocumentRepository, embedder ai.Embedder, source ObjectSource, opts ...Option) (*Pipeline, error) {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ch, err := chunker.New(chunker.DefaultChunkSize, chunker.DefaultChunkOverlap)
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Pipeline{
		repo:        repo,
		embedder:    embedder,
		source:      source,
		chunker:     ch,
		pool:        pool,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// IngestObject runs the full pipeline for a single object: fetch,
// extract, normalize, chunk, embed, and store. The document upsert and
// chunk replacement happen in one transaction, so a document is never
// visible with chunks from two versions.
//
// Unsupported and empty objects are skipped, not failed. Re-delivery of
// unchanged content is detected by fingerprint and writes nothing.
func (p *Pipeline) IngestObject(ctx context.Context, uri string) (*Result, error) {
	data, contentType, err := p.source.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	text, err := ExtractText(contentType, data)
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedContentType) {
			p.logger.Warn("skipping unsupported object", "uri", uri, "contentType", contentType)
			return &Result{URI: uri, Status: StatusSkipped, Reason: err.Error()}, nil
		}
		return nil, err
	}

	normalized := chunker.Normalize(text)
	if normalized == "" {
		p.logger.Warn("skipping empty object", "uri", uri)
		return &Result{URI: uri, Status: StatusSkipped, Reason: "empty after normalization"}, nil
	}

	fingerprint := fmt.Sprintf("%016x", uint64(core.FingerprintOf(normalized)))
	existing, err := p.repo.GetDocument(ctx, uri)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup %q: %w", uri, err)
	}
	if err == nil && existing.Metadata["fingerprint"] == fingerprint {
		p.logger.Debug("object unchanged", "uri", uri)
		return &Result{URI: uri, Status: StatusUnchanged}, nil
	}

	texts := p.chunker.Chunk(normalized)
	vectors, err := p.embedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", uri, err)
	}

	doc := &core.Document{
		URI:     uri,
		Content: normalized,
		Preview: core.MakePreview(normalized),
		Metadata: map[string]string{
			"fingerprint":  fingerprint,
			"content_type": contentType,
		},
	}
	chunks := make([]*core.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = &core.Chunk{Seq: i, Text: t, Embedding: vectors[i]}
	}

	err = p.repo.WithTransaction(ctx, func(txCtx context.Context) error {
		stored, err := p.repo.UpsertDocument(txCtx, doc)
		if err != nil {
			return err
		}
		return p.repo.ReplaceChunks(txCtx, stored.Id, chunks)
	})
	if err != nil {
		return nil, fmt.Errorf("store %q: %w", uri, err)
	}

	p.logger.Info("object ingested", "uri", uri, "chunks", len(chunks))
	return &Result{URI: uri, Status: StatusIngested, Chunks: len(chunks)}, nil
}

// embedTexts embeds chunk texts, retrying transient model failures with
// exponential backoff. Non-transient errors fail immediately.
func (p *Pipeline) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var (
		vectors [][]float32
		permErr error
	)
	err := RetryWithBackoff(ctx, func() error {
		v, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			if core.IsTransient(err) {
				return err
			}
			permErr = err
			return nil
		}
		vectors = v
		return nil
	}, p.maxAttempts, p.baseDelay)
	if permErr != nil {
		return nil, permErr
	}
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// IngestPrefix lists every object under prefix and ingests them on the
// worker pool. progress may be nil.
func (p *Pipeline) IngestPrefix(ctx context.Context, prefix string, progress *ProgressTracker) (*BatchResult, error) {
	uris, err := p.source.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Failed: make(map[string]error)}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, uri := range uris {
		uri := uri
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			res, err := p.IngestObject(ctx, uri)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				p.logger.Error("object failed", "uri", uri, "err", err)
				result.Failed[uri] = err
			case res.Status == StatusIngested:
				result.Ingested++
			case res.Status == StatusUnchanged:
				result.Unchanged++
			default:
				result.Skipped++
			}
			if progress != nil {
				progress.Increment(1)
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			result.Failed[uri] = submitErr
			mu.Unlock()
		}
	}
	wg.Wait()

	p.logger.Info("batch complete", "prefix", prefix,
		"ingested", result.Ingested, "unchanged", result.Unchanged,
		"skipped", result.Skipped, "failed", len(result.Failed))
	return result, nil
}
