package ingestion

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpusqa/ai/mock"
	"github.com/poiesic/corpusqa/core"
	"github.com/poiesic/corpusqa/storage"
	"github.com/poiesic/corpusqa/storage/badger"
	"github.com/poiesic/corpusqa/storage/memory"
)

// flakyRepo fails its first transactions the way a store outage would,
// then recovers.
type flakyRepo struct {
	storage.DocumentRepository
	failures int
}

func (r *flakyRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.failures > 0 {
		r.failures--
		return fmt.Errorf("%w: connection refused", core.ErrStoreUnavailable)
	}
	return r.DocumentRepository.WithTransaction(ctx, fn)
}

func newTestConsumer(t *testing.T, pipeline *Pipeline) (*Consumer, *badger.DeadLetterStore) {
	t.Helper()

	backend, err := badger.OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	store := badger.NewDeadLetterStore(backend)
	consumer, err := NewConsumer(pipeline, store, WithDeliveryRetry(2, time.Millisecond))
	require.NoError(t, err)
	return consumer, store
}

func TestConsumerProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("successful delivery", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.txt", "content")
		pipeline, _, _ := newTestPipeline(t, dir)
		consumer, store := newTestConsumer(t, pipeline)

		res, err := consumer.Process(ctx, "file:///a.txt")
		require.NoError(t, err)
		assert.Equal(t, StatusIngested, res.Status)

		msgs, err := store.List()
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("exhausted transient failure parks the delivery", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.txt", "content")
		pipeline, _, embedder := newTestPipeline(t, dir, WithRetry(1, time.Millisecond))
		consumer, store := newTestConsumer(t, pipeline)

		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, fmt.Errorf("%w: down", core.ErrModelUnavailable)
		}

		res, err := consumer.Process(ctx, "file:///a.txt")
		assert.Nil(t, res)
		assert.ErrorIs(t, err, core.ErrModelUnavailable)

		msgs, listErr := store.List()
		require.NoError(t, listErr)
		require.Len(t, msgs, 1)
		assert.Equal(t, "file:///a.txt", msgs[0].URI)
		assert.Equal(t, 2, msgs[0].Attempts)
	})

	t.Run("transient store failure retries before parking", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "a.txt", "content")

		repo, err := memory.NewRepository(testDim)
		require.NoError(t, err)
		t.Cleanup(func() { _ = repo.Close() })
		flaky := &flakyRepo{DocumentRepository: repo, failures: 1}

		embedder := mock.NewMockEmbedder()
		embedder.Dimensions = testDim
		source, err := NewFilesystemSource(dir)
		require.NoError(t, err)

		pipeline, err := NewPipeline(flaky, embedder, source, WithRetry(1, time.Millisecond))
		require.NoError(t, err)
		t.Cleanup(pipeline.Release)
		consumer, store := newTestConsumer(t, pipeline)

		res, err := consumer.Process(ctx, "file:///a.txt")
		require.NoError(t, err)
		assert.Equal(t, StatusIngested, res.Status)

		msgs, err := store.List()
		require.NoError(t, err)
		assert.Empty(t, msgs, "a store outage must be retried, not parked on the first attempt")
	})

	t.Run("permanent failure parks without retrying", func(t *testing.T) {
		dir := t.TempDir()
		pipeline, _, _ := newTestPipeline(t, dir)
		consumer, store := newTestConsumer(t, pipeline)

		_, err := consumer.Process(ctx, "file:///missing.txt")
		assert.ErrorIs(t, err, ErrObjectNotFound)

		msgs, listErr := store.List()
		require.NoError(t, listErr)
		require.Len(t, msgs, 1)
		assert.Equal(t, 1, msgs[0].Attempts)
	})
}

func TestConsumerRequeue(t *testing.T) {
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "content")
	pipeline, _, embedder := newTestPipeline(t, dir, WithRetry(1, time.Millisecond))
	consumer, store := newTestConsumer(t, pipeline)

	failing := true
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if failing {
			return nil, fmt.Errorf("%w: down", core.ErrModelUnavailable)
		}
		return nil, nil
	}

	_, err := consumer.Process(ctx, "file:///a.txt")
	require.Error(t, err)

	msgs, err := store.List()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	// Model comes back; the parked delivery requeues cleanly.
	failing = false
	embedder.EmbedTextsFunc = nil

	res, err := consumer.Requeue(ctx, msgs[0].Id)
	require.NoError(t, err)
	assert.Equal(t, StatusIngested, res.Status)

	msgs, err = store.List()
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
