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


// Package corpusqa wires the storage backend, AI provider, and the
// ingestion, answering, and feedback components into one corpus handle.
package corpusqa

import (
	"context"
	"log/slog"

	"github.com/poiesic/corpusqa/ai"
	"github.com/poiesic/corpusqa/ai/openai"
	"github.com/poiesic/corpusqa/answer"
	"github.com/poiesic/corpusqa/feedback"
	"github.com/poiesic/corpusqa/ingestion"
	"github.com/poiesic/corpusqa/storage"
	"github.com/poiesic/corpusqa/storage/postgres"
)

// Corpus is the root handle over one document store and its AI provider.
type Corpus struct {
	repo     *postgres.Repository
	provider ai.Provider
	logger   *slog.Logger
	dim      int
}

// CorpusOption configures a Corpus.
type CorpusOption func(*corpusOptions)

type corpusOptions struct {
	aiConfig *ai.Config
}

// WithAIConfig overrides the default AI provider configuration.
func WithAIConfig(cfg *ai.Config) CorpusOption {
	return func(o *corpusOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// Open connects to PostgreSQL and constructs the AI provider. The
// store's vector dimension follows the AI configuration's embedding
// dimension.
func Open(ctx context.Context, connString string, opts ...CorpusOption) (*Corpus, error) {
	options := &corpusOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	repo, err := postgres.NewRepository(ctx, connString, options.aiConfig.EmbeddingDimensions)
	if err != nil {
		return nil, err
	}

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		repo.Close()
		return nil, err
	}

	return &Corpus{
		repo:     repo,
		provider: provider,
		logger:   slog.Default(),
		dim:      options.aiConfig.EmbeddingDimensions,
	}, nil
}

// Close releases the AI provider and the storage backend.
func (c *Corpus) Close() error {
	if err := c.provider.Close(); err != nil {
		c.logger.Error("error closing AI provider", "err", err)
	}
	if err := c.repo.Close(); err != nil {
		c.logger.Error("error closing storage backend", "err", err)
		return err
	}
	return nil
}

// InitSchema creates the database schema if it does not exist.
func (c *Corpus) InitSchema(ctx context.Context) error {
	return c.repo.ApplySchema(ctx)
}

// DocumentRepository returns the document store.
func (c *Corpus) DocumentRepository() storage.DocumentRepository {
	return c.repo
}

// FeedbackRepository returns the feedback store.
func (c *Corpus) FeedbackRepository() storage.FeedbackRepository {
	return c.repo
}

// NewIngestionPipeline builds an ingestion pipeline reading from source.
func (c *Corpus) NewIngestionPipeline(source ingestion.ObjectSource, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(c.repo, c.provider.Embedder(), source, opts...)
}

// NewAnswerPipeline builds an answering pipeline over the corpus.
func (c *Corpus) NewAnswerPipeline(opts ...answer.Option) (*answer.Pipeline, error) {
	return answer.NewPipeline(c.repo, c.provider, opts...)
}

// NewFeedbackSink builds a feedback sink over the corpus.
func (c *Corpus) NewFeedbackSink() (*feedback.Sink, error) {
	return feedback.NewSink(c.repo)
}
