package stt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Result is the raw engine output. It is exactly one of TextResult,
// StructuredResult or RawResult.
type Result interface {
	fmt.Stringer
	isResult()
}

// TextResult is a plain string returned by the engine.
type TextResult string

// StructuredResult carries a top-level text and the ordered segments it was
// assembled from. HasText distinguishes a missing field from an empty one.
type StructuredResult struct {
	Text     string
	HasText  bool
	Language string
	Segments []Segment
}

// Segment is a time-bounded span of the transcript.
type Segment struct {
	Text    string
	HasText bool
	Start   float64
	End     float64
}

// RawResult is any engine output that is neither a string nor an object.
type RawResult struct {
	Value any
}

func (TextResult) isResult()       {}
func (StructuredResult) isResult() {}
func (RawResult) isResult()        {}

func (t TextResult) String() string { return string(t) }

func (s StructuredResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "{text: %q, segments: [", s.Text)
	for i, seg := range s.Segments {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q", seg.Text)
	}
	b.WriteString("]}")
	return b.String()
}

func (r RawResult) String() string {
	if r.Value == nil {
		return ""
	}
	if data, err := json.Marshal(r.Value); err == nil {
		return string(data)
	}
	return fmt.Sprint(r.Value)
}

type wireResult struct {
	Text     *string       `json:"text"`
	Language string        `json:"language"`
	Segments []wireSegment `json:"segments"`
}

type wireSegment struct {
	Text  *string `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// DecodeResult classifies JSON engine output. Output that is not JSON at all
// is treated as a plain transcript.
func DecodeResult(data []byte) Result {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return TextResult("")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return TextResult(s)
		}
	case '{':
		var w wireResult
		if err := json.Unmarshal(trimmed, &w); err == nil {
			return w.toResult()
		}
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err == nil {
		return RawResult{Value: v}
	}
	return TextResult(strings.TrimSpace(string(data)))
}

func (w wireResult) toResult() StructuredResult {
	res := StructuredResult{Language: w.Language}
	if w.Text != nil {
		res.Text = *w.Text
		res.HasText = true
	}
	if w.Segments != nil {
		res.Segments = make([]Segment, len(w.Segments))
		for i, seg := range w.Segments {
			res.Segments[i] = Segment{Start: seg.Start, End: seg.End}
			if seg.Text != nil {
				res.Segments[i].Text = *seg.Text
				res.Segments[i].HasText = true
			}
		}
	}
	return res
}
