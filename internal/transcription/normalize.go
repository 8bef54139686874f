package transcription

import (
	"strings"

	"github.com/nikhilbhutani/whisperservice/internal/stt"
)

// Normalize flattens an engine result into a single string:
//
//  1. a plain string is used as is;
//  2. a structured result with non-empty top-level text uses that text;
//  3. otherwise its segment texts are joined with single spaces, a segment
//     without text contributing an empty string;
//  4. any other shape falls back to its string representation.
//
// The returned string may be empty; deciding whether that is a failure is
// left to the caller.
func Normalize(res stt.Result) string {
	switch r := res.(type) {
	case stt.TextResult:
		return string(r)
	case stt.StructuredResult:
		if r.Text != "" {
			return r.Text
		}
		if len(r.Segments) == 0 {
			return ""
		}
		parts := make([]string, len(r.Segments))
		for i, seg := range r.Segments {
			parts[i] = seg.Text
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		return res.String()
	}
}
