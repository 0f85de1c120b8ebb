package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/corpusqa/core"
)

func hit(uri string, dist float64, text string) *core.SearchHit {
	return &core.SearchHit{DocURI: uri, Distance: dist, ChunkText: text}
}

func TestSelectDocument(t *testing.T) {
	t.Run("no hits", func(t *testing.T) {
		assert.Nil(t, selectDocument(nil, 4))
	})

	t.Run("majority beats proximity", func(t *testing.T) {
		// Document A has three moderately close chunks; document B has
		// two very close ones. A's broader evidence wins.
		hits := []*core.SearchHit{
			hit("doc://b", 0.10, "b1"),
			hit("doc://a", 0.40, "a1"),
			hit("doc://a", 0.41, "a2"),
			hit("doc://b", 0.12, "b2"),
			hit("doc://a", 0.42, "a3"),
		}
		sel := selectDocument(hits, 4)
		require.NotNil(t, sel)
		assert.Equal(t, "doc://a", sel.DocURI)
		assert.Equal(t, 3, sel.Votes)
		assert.InDelta(t, 0.40, sel.BestDist, 1e-9)
	})

	t.Run("vote tie falls back to distance", func(t *testing.T) {
		hits := []*core.SearchHit{
			hit("doc://far", 0.50, "f1"),
			hit("doc://near", 0.20, "n1"),
			hit("doc://far", 0.55, "f2"),
			hit("doc://near", 0.60, "n2"),
		}
		sel := selectDocument(hits, 4)
		require.NotNil(t, sel)
		assert.Equal(t, "doc://near", sel.DocURI)
	})

	t.Run("full tie falls back to lexicographic URI", func(t *testing.T) {
		hits := []*core.SearchHit{
			hit("doc://c", 0.30, "c1"),
			hit("doc://a", 0.30, "a1"),
			hit("doc://b", 0.30, "b1"),
		}
		sel := selectDocument(hits, 4)
		require.NotNil(t, sel)
		assert.Equal(t, "doc://a", sel.DocURI)
	})

	t.Run("selection is order independent", func(t *testing.T) {
		forward := []*core.SearchHit{
			hit("doc://b", 0.30, "b1"),
			hit("doc://a", 0.30, "a1"),
		}
		reversed := []*core.SearchHit{forward[1], forward[0]}
		assert.Equal(t, selectDocument(forward, 4).DocURI, selectDocument(reversed, 4).DocURI)
	})

	t.Run("caps and orders the document's hits", func(t *testing.T) {
		hits := []*core.SearchHit{
			hit("doc://a", 0.45, "third"),
			hit("doc://a", 0.20, "first"),
			hit("doc://a", 0.30, "second"),
			hit("doc://a", 0.50, "fourth"),
		}
		sel := selectDocument(hits, 2)
		require.NotNil(t, sel)
		require.Len(t, sel.Hits, 2)
		assert.Equal(t, "first", sel.Hits[0].ChunkText)
		assert.Equal(t, "second", sel.Hits[1].ChunkText)
		assert.InDelta(t, 0.20, sel.BestDist, 1e-9)
	})
}

func TestBuildContext(t *testing.T) {
	t.Run("joins with blank lines", func(t *testing.T) {
		assert.Equal(t, "one\n\ntwo", buildContext([]string{"one", " two "}, 100))
	})

	t.Run("drops whole chunks past the budget", func(t *testing.T) {
		out := buildContext([]string{"aaaa", "bbbb", "cccc"}, 10)
		assert.Equal(t, "aaaa\n\nbbbb", out)
	})

	t.Run("always includes the first chunk", func(t *testing.T) {
		out := buildContext([]string{"a very long first chunk"}, 5)
		assert.Equal(t, "a very long first chunk", out)
	})

	t.Run("skips empty chunks", func(t *testing.T) {
		assert.Equal(t, "one", buildContext([]string{"", "one"}, 100))
	})
}
