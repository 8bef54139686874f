package transcription

// FormatJSON is the default response_format.
const FormatJSON = "json"

// Response is the shaped result. When JSON is false the body is the bare text.
type Response struct {
	Text string `json:"text"`
	JSON bool   `json:"-"`
}

// Format shapes text for the requested response_format. Only "json" (or an
// empty value) wraps the text; anything else is returned bare.
func Format(text, responseFormat string) Response {
	return Response{
		Text: text,
		JSON: responseFormat == "" || responseFormat == FormatJSON,
	}
}
