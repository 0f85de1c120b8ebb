package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters(t *testing.T) {
	t.Run("no flags means no filter", func(t *testing.T) {
		filters, err := parseFilters(nil)
		require.NoError(t, err)
		assert.Nil(t, filters)
	})

	t.Run("repeated pairs accumulate", func(t *testing.T) {
		filters, err := parseFilters([]string{"source=wiki", "lang=en"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"source": "wiki", "lang": "en"}, filters)
	})

	t.Run("value may contain an equals sign", func(t *testing.T) {
		filters, err := parseFilters([]string{"query=a=b"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"query": "a=b"}, filters)
	})

	t.Run("missing separator is rejected", func(t *testing.T) {
		_, err := parseFilters([]string{"sourcewiki"})
		assert.Error(t, err)
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		_, err := parseFilters([]string{"=wiki"})
		assert.Error(t, err)
	})
}
