package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/siherrmann/paperdex/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowChunker(t *testing.T) {
	t.Run("Valid chunking with overlap", func(t *testing.T) {
		chunker, err := WindowChunker(512, 50)
		require.NoError(t, err)

		text := strings.Repeat("a", 1000)
		windows := chunker(text)

		require.Equal(t, 3, len(windows), "Expected three windows for 1000 chars at (512, 50)")
		assert.Equal(t, 0, windows[0].StartOffset)
		assert.Equal(t, 462, windows[1].StartOffset)
		assert.Equal(t, 924, windows[2].StartOffset)
		assert.Equal(t, 512, len(windows[0].Text))
		assert.Equal(t, 512, len(windows[1].Text))
		assert.Equal(t, 76, len(windows[2].Text), "Expected the final window to be short but emitted")
	})

	t.Run("Offsets advance by chunk size minus overlap", func(t *testing.T) {
		chunker, err := WindowChunker(100, 20)
		require.NoError(t, err)

		windows := chunker(strings.Repeat("x", 500))

		require.Greater(t, len(windows), 1)
		for i := 1; i < len(windows); i++ {
			assert.Equal(t, 80, windows[i].StartOffset-windows[i-1].StartOffset,
				"Expected consecutive offsets to advance by chunk size minus overlap")
		}
		for _, w := range windows {
			assert.LessOrEqual(t, len(w.Text), 100)
			assert.GreaterOrEqual(t, w.StartOffset, 0)
			assert.Less(t, w.StartOffset, 500)
		}
	})

	t.Run("Deterministic across runs", func(t *testing.T) {
		chunker, err := WindowChunker(64, 16)
		require.NoError(t, err)

		text := "The field of paper management has long suffered from folders named final_v2. " +
			"Semantic retrieval promises a way out, provided the chunks are stable."
		first := chunker(text)
		second := chunker(text)

		assert.Equal(t, first, second, "Expected chunking twice to yield identical windows")
	})

	t.Run("Windows reassemble the original text", func(t *testing.T) {
		chunker, err := WindowChunker(32, 8)
		require.NoError(t, err)

		text := strings.Repeat("paperdex ", 40)
		windows := chunker(text)

		for _, w := range windows {
			assert.Equal(t, text[w.StartOffset:w.StartOffset+len(w.Text)], w.Text,
				"Expected every window to be a substring at its own offset")
		}
	})

	t.Run("Single window for short text", func(t *testing.T) {
		chunker, err := WindowChunker(512, 50)
		require.NoError(t, err)

		windows := chunker("short text")

		require.Equal(t, 1, len(windows))
		assert.Equal(t, "short text", windows[0].Text)
		assert.Equal(t, 0, windows[0].StartOffset)
	})

	t.Run("Empty text yields no windows", func(t *testing.T) {
		chunker, err := WindowChunker(512, 50)
		require.NoError(t, err)

		assert.Empty(t, chunker(""))
	})

	t.Run("Zero chunk size rejected", func(t *testing.T) {
		_, err := WindowChunker(0, 0)

		require.Error(t, err)
		var confErr *model.ConfigurationError
		assert.True(t, errors.As(err, &confErr), "Expected a configuration error")
	})

	t.Run("Negative overlap rejected", func(t *testing.T) {
		_, err := WindowChunker(100, -1)

		assert.Error(t, err)
	})

	t.Run("Overlap equal to chunk size rejected", func(t *testing.T) {
		_, err := WindowChunker(100, 100)

		require.Error(t, err)
		var confErr *model.ConfigurationError
		assert.True(t, errors.As(err, &confErr), "Expected a configuration error")
	})
}
