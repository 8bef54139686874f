package transcription

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikhilbhutani/whisperservice/internal/stt"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		res  stt.Result
		want string
	}{
		{name: "plain string unchanged", res: stt.TextResult("  hello world "), want: "  hello world "},
		{name: "empty plain string", res: stt.TextResult(""), want: ""},
		{name: "top-level text wins", res: stt.StructuredResult{
			Text: "hello world", HasText: true,
			Segments: []stt.Segment{{Text: "ignored", HasText: true}},
		}, want: "hello world"},
		{name: "segments joined with single spaces", res: stt.StructuredResult{
			HasText: true,
			Segments: []stt.Segment{
				{Text: "one", HasText: true},
				{Text: "two", HasText: true},
				{Text: "three", HasText: true},
			},
		}, want: "one two three"},
		{name: "missing text field contributes empty string", res: stt.StructuredResult{
			Segments: []stt.Segment{
				{Text: "a", HasText: true},
				{},
				{Text: "b", HasText: true},
			},
		}, want: "a  b"},
		{name: "no text and no segments", res: stt.StructuredResult{HasText: true, Segments: []stt.Segment{}}, want: ""},
		{name: "unrecognized shape is stringified", res: stt.RawResult{Value: []any{"x", 1.0}}, want: `["x",1]`},
		{name: "nil result", res: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.res))
		})
	}
}

func TestNormalizeSegmentJoinMatchesInputOrder(t *testing.T) {
	texts := []string{"the", "", "quick", " brown", "fox", ""}
	segs := make([]stt.Segment, len(texts))
	for i, s := range texts {
		segs[i] = stt.Segment{Text: s, HasText: s != ""}
	}

	got := Normalize(stt.StructuredResult{Segments: segs})
	assert.Equal(t, strings.Join(texts, " "), got)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, Response{Text: "hi", JSON: true}, Format("hi", ""))
	assert.Equal(t, Response{Text: "hi", JSON: true}, Format("hi", "json"))
	assert.Equal(t, Response{Text: "hi", JSON: false}, Format("hi", "text"))
	assert.Equal(t, Response{Text: "hi", JSON: false}, Format("hi", "srt"))
	assert.Equal(t, Response{Text: "hi", JSON: false}, Format("hi", "JSON"))
}
