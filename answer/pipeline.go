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


package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/corpusqa/ai"
	"github.com/poiesic/corpusqa/core"
	"github.com/poiesic/corpusqa/storage"
)

// Citation names the document an answer is grounded in.
type Citation struct {
	DocURI string `json:"doc_uri"`
}

// Debug carries retrieval internals for logging and troubleshooting.
type Debug struct {
	Reason      string  `json:"reason,omitempty"`
	BestDist    float64 `json:"best_dist"`
	Hits        int     `json:"hits"`
	UniqueDocs  int     `json:"unique_docs,omitempty"`
	SelectedDoc string  `json:"selected_doc,omitempty"`
	ChunksUsed  int     `json:"chunks_used,omitempty"`
}

// Answer is the outcome of one question. When Abstained is true, Answer
// holds DeclineMessage and Citations is empty; otherwise Citations
// holds exactly one entry.
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Abstained bool       `json:"abstained"`
	Debug     Debug      `json:"debug"`
}

// Pipeline answers questions from the document store.
type Pipeline struct {
	repo      storage.DocumentRepository
	embedder  ai.Embedder
	generator ai.Generator
	cfg       Config
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithConfig replaces the default knobs.
func WithConfig(cfg Config) Option {
	return func(p *Pipeline) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		p.cfg = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an answering pipeline.
func NewPipeline(repo storage.DocumentRepository, provider ai.Provider, opts ...Option) (*Pipeline, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	p := &Pipeline{
		repo:      repo,
		embedder:  provider.Embedder(),
		generator: provider.Generator(),
		cfg:       DefaultConfig(),
		logger:    slog.Default().With("component", "answer"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Ask answers a question from the corpus.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	return p.AskWithMonitor(ctx, question, nil)
}

// AskWithMonitor answers a question with stage callbacks. The stages
// run in a fixed order: embed, retrieve, select, gate, then reason or
// abstain. Dependency failures return errors; abstention does not.
func (p *Pipeline) AskWithMonitor(ctx context.Context, question string, monitor Monitor) (*Answer, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, core.ErrEmptyQuestion)
	}
	monitor.Start(question)

	// embed
	embedding, err := p.embedder.EmbedText(ctx, question)
	if err != nil {
		p.logger.Error("error embedding question", "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(embedding))

	// retrieve: widened coarse pass
	hits, err := p.repo.Search(ctx, embedding, storage.SearchOptions{
		Limit:          p.cfg.CoarseK(),
		MetadataFilter: p.cfg.MetadataFilter,
	})
	if err != nil {
		p.logger.Error("error retrieving chunks", "err", err)
		return nil, err
	}
	monitor.AfterRetrieval(hits)

	if len(hits) == 0 {
		return p.abstain(monitor, Debug{Reason: "no_hits"}), nil
	}

	// select one document
	sel := selectDocument(hits, p.cfg.ContextChunks())
	monitor.AfterSelection(sel.DocURI, sel.Votes, sel.BestDist)

	uniqueDocs := make(map[string]struct{})
	for _, h := range hits {
		uniqueDocs[h.DocURI] = struct{}{}
	}

	// gate on retrieval confidence
	if sel.BestDist > p.cfg.MaxCosineDist || len(sel.Hits) < p.cfg.MinHits {
		p.logger.Info("abstaining on weak retrieval",
			"bestDist", sel.BestDist, "maxCosineDist", p.cfg.MaxCosineDist,
			"docHits", len(sel.Hits), "minHits", p.cfg.MinHits)
		return p.abstain(monitor, Debug{
			Reason:      "low_confidence",
			BestDist:    sel.BestDist,
			Hits:        len(hits),
			SelectedDoc: sel.DocURI,
		}), nil
	}

	// reason from the selected document only
	texts := make([]string, len(sel.Hits))
	for i, h := range sel.Hits {
		texts[i] = h.ChunkText
	}
	prompt := fmt.Sprintf(promptTemplate, buildContext(texts, p.cfg.MaxContextChars), question)

	generated, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		p.logger.Error("error generating answer", "err", err)
		return nil, err
	}
	monitor.AfterGeneration(generated)

	// A reply that refuses (or says nothing) must not be presented as a
	// cited answer.
	reply := strings.TrimSpace(generated)
	if reply == "" || isRefusal(reply) {
		p.logger.Info("abstaining on model refusal", "doc", sel.DocURI)
		return p.abstain(monitor, Debug{
			Reason:      "model_refusal",
			BestDist:    sel.BestDist,
			Hits:        len(hits),
			UniqueDocs:  len(uniqueDocs),
			SelectedDoc: sel.DocURI,
			ChunksUsed:  len(sel.Hits),
		}), nil
	}

	result := &Answer{
		Answer:    reply,
		Citations: []Citation{{DocURI: sel.DocURI}},
		Debug: Debug{
			BestDist:    sel.BestDist,
			Hits:        len(hits),
			UniqueDocs:  len(uniqueDocs),
			SelectedDoc: sel.DocURI,
			ChunksUsed:  len(sel.Hits),
		},
	}
	monitor.Finish(result)
	return result, nil
}

// abstain builds the fixed decline outcome.
func (p *Pipeline) abstain(monitor Monitor, debug Debug) *Answer {
	monitor.Abstained(debug.Reason)
	result := &Answer{
		Answer:    DeclineMessage,
		Citations: []Citation{},
		Abstained: true,
		Debug:     debug,
	}
	monitor.Finish(result)
	return result
}
