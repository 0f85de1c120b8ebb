package answer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpusqa/ai"
	"github.com/poiesic/corpusqa/ai/mock"
	"github.com/poiesic/corpusqa/core"
	"github.com/poiesic/corpusqa/storage/memory"
)

const testDim = 4

type fixture struct {
	repo     *memory.Repository
	provider ai.Provider
	mockProv *mock.MockProvider
	pipeline *Pipeline
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	repo, err := memory.NewRepository(testDim)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	provider := mock.NewMockProvider()
	mockProv := provider.(*mock.MockProvider)
	mockProv.GetMockEmbedder().Dimensions = testDim

	pipeline, err := NewPipeline(repo, provider, opts...)
	require.NoError(t, err)

	return &fixture{repo: repo, provider: provider, mockProv: mockProv, pipeline: pipeline}
}

// seedDoc stores a document whose chunks carry the given embeddings.
func (f *fixture) seedDoc(t *testing.T, uri string, chunks map[string][]float32) {
	t.Helper()
	ctx := context.Background()

	doc, err := f.repo.UpsertDocument(ctx, &core.Document{
		URI:     uri,
		Content: "content of " + uri,
		Preview: "content of " + uri,
	})
	require.NoError(t, err)

	var cs []*core.Chunk
	for text, embedding := range chunks {
		cs = append(cs, &core.Chunk{Text: text, Embedding: embedding})
	}
	require.NoError(t, f.repo.ReplaceChunks(ctx, doc.Id, cs))
}

// askEmbedding pins the question embedding so distances are exact.
func (f *fixture) askEmbedding(v []float32) {
	f.mockProv.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return v, nil
	}
}

func TestAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("answers with exactly one citation", func(t *testing.T) {
		f := newFixture(t)
		f.seedDoc(t, "kb://vpn", map[string][]float32{
			"Open System Settings and add a VPN configuration.": {1, 0, 0, 0},
		})
		f.askEmbedding([]float32{1, 0, 0, 0})
		f.mockProv.GetMockGenerator().Response = "Open System Settings."

		ans, err := f.pipeline.Ask(ctx, "How do I set up VPN on macOS?")
		require.NoError(t, err)
		assert.False(t, ans.Abstained)
		assert.Equal(t, "Open System Settings.", ans.Answer)
		require.Len(t, ans.Citations, 1)
		assert.Equal(t, "kb://vpn", ans.Citations[0].DocURI)
		assert.Equal(t, "kb://vpn", ans.Debug.SelectedDoc)
		assert.Equal(t, 1, ans.Debug.ChunksUsed)
	})

	t.Run("empty corpus abstains with no_hits", func(t *testing.T) {
		f := newFixture(t)
		f.askEmbedding([]float32{1, 0, 0, 0})

		ans, err := f.pipeline.Ask(ctx, "anything?")
		require.NoError(t, err)
		assert.True(t, ans.Abstained)
		assert.Equal(t, DeclineMessage, ans.Answer)
		assert.Empty(t, ans.Citations)
		assert.Equal(t, "no_hits", ans.Debug.Reason)
		assert.Zero(t, f.mockProv.GetMockGenerator().CallCount(),
			"abstention must not call the model")
	})

	t.Run("weak retrieval abstains without generating", func(t *testing.T) {
		f := newFixture(t)
		// Orthogonal to the question embedding: distance 1.0 > 0.65.
		f.seedDoc(t, "kb://unrelated", map[string][]float32{
			"Totally unrelated content.": {0, 1, 0, 0},
		})
		f.askEmbedding([]float32{1, 0, 0, 0})

		ans, err := f.pipeline.Ask(ctx, "How do I set up VPN?")
		require.NoError(t, err)
		assert.True(t, ans.Abstained)
		assert.Equal(t, DeclineMessage, ans.Answer)
		assert.Equal(t, "low_confidence", ans.Debug.Reason)
		assert.Zero(t, f.mockProv.GetMockGenerator().CallCount())
	})

	t.Run("context never mixes documents", func(t *testing.T) {
		f := newFixture(t)
		f.seedDoc(t, "kb://winner", map[string][]float32{
			"winner chunk one":   {1, 0, 0, 0},
			"winner chunk two":   {0.99, 0.1, 0, 0},
			"winner chunk three": {0.98, 0.15, 0, 0},
		})
		f.seedDoc(t, "kb://loser", map[string][]float32{
			"loser chunk": {0.97, 0.2, 0, 0},
		})
		f.askEmbedding([]float32{1, 0, 0, 0})

		ans, err := f.pipeline.Ask(ctx, "question?")
		require.NoError(t, err)
		require.False(t, ans.Abstained)
		assert.Equal(t, "kb://winner", ans.Citations[0].DocURI)

		prompts := f.mockProv.GetMockGenerator().Prompts
		require.Len(t, prompts, 1)
		assert.Contains(t, prompts[0], "winner chunk")
		assert.NotContains(t, prompts[0], "loser chunk")
	})

	t.Run("majority beats a single closer chunk", func(t *testing.T) {
		f := newFixture(t)
		f.seedDoc(t, "kb://broad", map[string][]float32{
			"broad one":   {0.9, 0.3, 0, 0},
			"broad two":   {0.9, 0.31, 0, 0},
			"broad three": {0.9, 0.32, 0, 0},
		})
		f.seedDoc(t, "kb://narrow", map[string][]float32{
			"narrow exact": {1, 0, 0, 0},
		})
		f.askEmbedding([]float32{1, 0, 0, 0})

		ans, err := f.pipeline.Ask(ctx, "question?")
		require.NoError(t, err)
		require.False(t, ans.Abstained)
		assert.Equal(t, "kb://broad", ans.Citations[0].DocURI)
	})

	t.Run("empty question is an input error", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.pipeline.Ask(ctx, "   ")
		assert.ErrorIs(t, err, core.ErrEmptyQuestion)
	})

	t.Run("embedding failure is an error, not abstention", func(t *testing.T) {
		f := newFixture(t)
		f.mockProv.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, fmt.Errorf("%w: down", core.ErrModelUnavailable)
		}
		_, err := f.pipeline.Ask(ctx, "question?")
		assert.ErrorIs(t, err, core.ErrModelUnavailable)
	})

	t.Run("literal refusal abstains instead of citing", func(t *testing.T) {
		f := newFixture(t)
		f.seedDoc(t, "kb://doc", map[string][]float32{
			"some grounded text": {1, 0, 0, 0},
		})
		f.askEmbedding([]float32{1, 0, 0, 0})
		f.mockProv.GetMockGenerator().Response = `"I don't know."`

		ans, err := f.pipeline.Ask(ctx, "question?")
		require.NoError(t, err)
		assert.True(t, ans.Abstained)
		assert.Equal(t, DeclineMessage, ans.Answer)
		assert.Empty(t, ans.Citations)
		assert.Equal(t, "model_refusal", ans.Debug.Reason)
		assert.Equal(t, "kb://doc", ans.Debug.SelectedDoc)
	})

	t.Run("empty generation abstains", func(t *testing.T) {
		f := newFixture(t)
		f.seedDoc(t, "kb://doc", map[string][]float32{
			"some grounded text": {1, 0, 0, 0},
		})
		f.askEmbedding([]float32{1, 0, 0, 0})
		f.mockProv.GetMockGenerator().Response = "  \n"

		ans, err := f.pipeline.Ask(ctx, "question?")
		require.NoError(t, err)
		assert.True(t, ans.Abstained)
		assert.Equal(t, "model_refusal", ans.Debug.Reason)
	})

	t.Run("prompt carries the refusal instruction", func(t *testing.T) {
		f := newFixture(t)
		f.seedDoc(t, "kb://doc", map[string][]float32{
			"some grounded text": {1, 0, 0, 0},
		})
		f.askEmbedding([]float32{1, 0, 0, 0})

		_, err := f.pipeline.Ask(ctx, "question?")
		require.NoError(t, err)

		prompts := f.mockProv.GetMockGenerator().Prompts
		require.Len(t, prompts, 1)
		assert.Contains(t, prompts[0], "Answer ONLY from the context below")
		assert.Contains(t, prompts[0], `reply exactly: "I don't know."`)
		assert.Contains(t, prompts[0], "Question: question?")
	})
}

func TestAskWithMonitor(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	f.seedDoc(t, "kb://doc", map[string][]float32{
		"grounded text": {1, 0, 0, 0},
	})
	f.askEmbedding([]float32{1, 0, 0, 0})

	rec := &recordingMonitor{}
	ans, err := f.pipeline.AskWithMonitor(ctx, "question?", rec)
	require.NoError(t, err)
	require.False(t, ans.Abstained)

	assert.Equal(t, []string{"start", "embed", "retrieve", "select", "generate", "finish"}, rec.stages)
	assert.Equal(t, "kb://doc", rec.selectedURI)
}

type recordingMonitor struct {
	stages      []string
	selectedURI string
}

func (r *recordingMonitor) Start(string)         { r.stages = append(r.stages, "start") }
func (r *recordingMonitor) AfterEmbedding(int)   { r.stages = append(r.stages, "embed") }
func (r *recordingMonitor) AfterRetrieval([]*core.SearchHit) {
	r.stages = append(r.stages, "retrieve")
}
func (r *recordingMonitor) AfterSelection(uri string, _ int, _ float64) {
	r.stages = append(r.stages, "select")
	r.selectedURI = uri
}
func (r *recordingMonitor) Abstained(string)       { r.stages = append(r.stages, "abstain") }
func (r *recordingMonitor) AfterGeneration(string) { r.stages = append(r.stages, "generate") }
func (r *recordingMonitor) Finish(*Answer)         { r.stages = append(r.stages, "finish") }

func TestConfigValidation(t *testing.T) {
	bad := DefaultConfig()
	bad.K = 0
	repo, err := memory.NewRepository(testDim)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	_, err = NewPipeline(repo, mock.NewMockProvider(), WithConfig(bad))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "k must be positive"))
}
