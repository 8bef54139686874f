package stt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResult(t *testing.T) {
	t.Run("json string", func(t *testing.T) {
		res := DecodeResult([]byte(`"hello world"`))
		assert.Equal(t, TextResult("hello world"), res)
	})

	t.Run("plain text output", func(t *testing.T) {
		res := DecodeResult([]byte("  bonjour tout le monde\n"))
		assert.Equal(t, TextResult("bonjour tout le monde"), res)
	})

	t.Run("structured with segments", func(t *testing.T) {
		res := DecodeResult([]byte(`{"text": "", "language": "fr", "segments": [{"text": " a", "start": 0, "end": 1.5}, {"start": 1.5, "end": 2}]}`))
		s, ok := res.(StructuredResult)
		require.True(t, ok)
		assert.True(t, s.HasText)
		assert.Equal(t, "", s.Text)
		assert.Equal(t, "fr", s.Language)
		require.Len(t, s.Segments, 2)
		assert.Equal(t, " a", s.Segments[0].Text)
		assert.True(t, s.Segments[0].HasText)
		assert.Equal(t, 1.5, s.Segments[0].End)
		assert.False(t, s.Segments[1].HasText)
	})

	t.Run("structured without text field", func(t *testing.T) {
		s, ok := DecodeResult([]byte(`{"segments": []}`)).(StructuredResult)
		require.True(t, ok)
		assert.False(t, s.HasText)
		assert.NotNil(t, s.Segments)
		assert.Empty(t, s.Segments)
	})

	t.Run("unrecognized shape", func(t *testing.T) {
		res := DecodeResult([]byte(`[1, 2, 3]`))
		raw, ok := res.(RawResult)
		require.True(t, ok)
		assert.Equal(t, "[1,2,3]", raw.String())
	})

	t.Run("object with wrong field types", func(t *testing.T) {
		res := DecodeResult([]byte(`{"text": 42}`))
		_, ok := res.(RawResult)
		assert.True(t, ok)
	})

	t.Run("empty output", func(t *testing.T) {
		assert.Equal(t, TextResult(""), DecodeResult(nil))
	})
}

func TestRawResultStringNil(t *testing.T) {
	assert.Equal(t, "", RawResult{}.String())
}
