package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpusqa/core"
	"github.com/poiesic/corpusqa/storage"
)

const testDim = 4

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(testDim)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testDoc(uri string) *core.Document {
	content := "content of " + uri
	return &core.Document{
		URI:     uri,
		Content: content,
		Preview: core.MakePreview(content),
	}
}

func testChunk(text string, embedding []float32) *core.Chunk {
	return &core.Chunk{Text: text, Embedding: embedding}
}

func TestUpsertDocument(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	t.Run("insert assigns ID and timestamps", func(t *testing.T) {
		doc, err := repo.UpsertDocument(ctx, testDoc("file:///a.txt"))
		require.NoError(t, err)
		assert.NotZero(t, doc.Id)
		assert.False(t, doc.InsertedAt.IsZero())
		assert.False(t, doc.UpdatedAt.IsZero())
	})

	t.Run("reingest keeps ID and InsertedAt", func(t *testing.T) {
		first, err := repo.UpsertDocument(ctx, testDoc("file:///b.txt"))
		require.NoError(t, err)

		updated := testDoc("file:///b.txt")
		updated.Content = "revised"
		updated.Preview = "revised"
		second, err := repo.UpsertDocument(ctx, updated)
		require.NoError(t, err)

		assert.Equal(t, first.Id, second.Id)
		assert.Equal(t, first.InsertedAt, second.InsertedAt)
		assert.Equal(t, "revised", second.Content)
	})

	t.Run("invalid document rejected", func(t *testing.T) {
		_, err := repo.UpsertDocument(ctx, &core.Document{URI: ""})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})
}

func TestReplaceChunks(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	doc, err := repo.UpsertDocument(ctx, testDoc("file:///doc.txt"))
	require.NoError(t, err)

	t.Run("replaces the whole set", func(t *testing.T) {
		err := repo.ReplaceChunks(ctx, doc.Id, []*core.Chunk{
			testChunk("first", []float32{1, 0, 0, 0}),
			testChunk("second", []float32{0, 1, 0, 0}),
		})
		require.NoError(t, err)

		err = repo.ReplaceChunks(ctx, doc.Id, []*core.Chunk{
			testChunk("only", []float32{0, 0, 1, 0}),
		})
		require.NoError(t, err)

		chunks, err := repo.GetDocumentChunks(ctx, doc.Id)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "only", chunks[0].Text)
		assert.Equal(t, 0, chunks[0].Seq)
	})

	t.Run("unknown document", func(t *testing.T) {
		err := repo.ReplaceChunks(ctx, 9999, nil)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("dimension mismatch rejected", func(t *testing.T) {
		err := repo.ReplaceChunks(ctx, doc.Id, []*core.Chunk{
			testChunk("bad", []float32{1, 0}),
		})
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	docA, err := repo.UpsertDocument(ctx, testDoc("file:///a.txt"))
	require.NoError(t, err)
	docB, err := repo.UpsertDocument(ctx, testDoc("file:///b.txt"))
	require.NoError(t, err)

	require.NoError(t, repo.ReplaceChunks(ctx, docA.Id, []*core.Chunk{
		testChunk("exact", []float32{1, 0, 0, 0}),
		testChunk("orthogonal", []float32{0, 1, 0, 0}),
	}))
	chunkB := testChunk("close", []float32{0.9, 0.1, 0, 0})
	chunkB.Metadata = map[string]string{"source": "wiki"}
	require.NoError(t, repo.ReplaceChunks(ctx, docB.Id, []*core.Chunk{chunkB}))

	t.Run("orders by cosine distance ascending", func(t *testing.T) {
		hits, err := repo.Search(ctx, []float32{1, 0, 0, 0}, storage.SearchOptions{Limit: 3})
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "exact", hits[0].ChunkText)
		assert.InDelta(t, 0, hits[0].Distance, 1e-6)
		assert.Equal(t, "close", hits[1].ChunkText)
		assert.Equal(t, "orthogonal", hits[2].ChunkText)
		assert.Equal(t, "file:///a.txt", hits[0].DocURI)
	})

	t.Run("limit caps results", func(t *testing.T) {
		hits, err := repo.Search(ctx, []float32{1, 0, 0, 0}, storage.SearchOptions{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, hits, 1)
	})

	t.Run("metadata filter restricts hits", func(t *testing.T) {
		hits, err := repo.Search(ctx, []float32{1, 0, 0, 0}, storage.SearchOptions{
			Limit:          10,
			MetadataFilter: map[string]string{"source": "wiki"},
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "close", hits[0].ChunkText)
	})

	t.Run("wrong query dimension", func(t *testing.T) {
		_, err := repo.Search(ctx, []float32{1, 0}, storage.SearchOptions{Limit: 1})
		assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	})

	t.Run("non-positive limit", func(t *testing.T) {
		_, err := repo.Search(ctx, []float32{1, 0, 0, 0}, storage.SearchOptions{})
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	doc, err := repo.UpsertDocument(ctx, testDoc("file:///gone.txt"))
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceChunks(ctx, doc.Id, []*core.Chunk{
		testChunk("text", []float32{1, 0, 0, 0}),
	}))

	require.NoError(t, repo.DeleteDocument(ctx, "file:///gone.txt"))

	_, err = repo.GetDocument(ctx, "file:///gone.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	hits, err := repo.Search(ctx, []float32{1, 0, 0, 0}, storage.SearchOptions{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, hits, "chunks must not outlive their document")

	assert.ErrorIs(t, repo.DeleteDocument(ctx, "file:///gone.txt"), storage.ErrNotFound)
}

func TestListDocuments(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, uri := range []string{"file:///c.txt", "file:///a.txt", "file:///b.txt"} {
		_, err := repo.UpsertDocument(ctx, testDoc(uri))
		require.NoError(t, err)
	}

	docs, err := repo.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "file:///a.txt", docs[0].URI)
	assert.Equal(t, "file:///b.txt", docs[1].URI)
	assert.Equal(t, "file:///c.txt", docs[2].URI)
}

func TestFeedback(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	t.Run("append and list most recent first", func(t *testing.T) {
		for _, rating := range []core.Rating{core.RatingPositive, core.RatingNegative} {
			_, err := repo.AddFeedback(ctx, &core.Feedback{
				Query:  "how do I reset my password?",
				Answer: "open the account page",
				Rating: rating,
			})
			require.NoError(t, err)
		}

		records, err := repo.ListFeedback(ctx, 10)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, core.RatingNegative, records[0].Rating)
		assert.Equal(t, core.RatingPositive, records[1].Rating)
	})

	t.Run("invalid rating rejected", func(t *testing.T) {
		_, err := repo.AddFeedback(ctx, &core.Feedback{
			Query:  "q",
			Answer: "a",
			Rating: core.Rating(5),
		})
		assert.ErrorIs(t, err, core.ErrInvalidRating)
	})
}

func TestClosedRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewRepository(testDim)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = repo.UpsertDocument(ctx, testDoc("file:///x.txt"))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	_, err = repo.Search(ctx, []float32{1, 0, 0, 0}, storage.SearchOptions{Limit: 1})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float32{0, 0}, []float32{1, 0}), 1e-9)
}
