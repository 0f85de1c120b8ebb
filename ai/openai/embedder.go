package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/corpusqa/ai"
	"github.com/poiesic/corpusqa/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder      embeddings.Embedder
	maxEmbedChars int
	timeout       timeoutFunc
	dimensions    int
	logger        *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for embeddings
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	// Wrap in langchaingo embedder
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:      embedder,
		maxEmbedChars: config.MaxEmbedChars,
		timeout:       newTimeoutFunc(config.RequestTimeout),
		dimensions:    config.EmbeddingDimensions,
		logger:        slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}
	return out[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
// Input longer than the configured maximum is rejected, not truncated; the
// caller must re-chunk.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if len(text) > e.maxEmbedChars {
			return nil, fmt.Errorf("%w: text %d is %d chars, embedding limit is %d",
				core.ErrInvalidInput, i, len(text), e.maxEmbedChars)
		}
	}

	e.logger.Debug("generating embeddings", "count", len(texts))

	ctx, cancel := e.timeout(ctx)
	defer cancel()

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("%w: %v", core.ErrModelUnavailable, err)
	}

	for i, vector := range vectors {
		if len(vector) != e.dimensions {
			return nil, fmt.Errorf("%w: model returned %d dims for text %d, configured for %d",
				core.ErrDimensionMismatch, len(vector), i, e.dimensions)
		}
	}

	return vectors, nil
}
