package transcription

import "github.com/nikhilbhutani/whisperservice/internal/stt"

// Translate maps OpenAI-style request fields onto engine parameters. The
// caller's model field is ignored: modelID is the process-wide model.
func Translate(req Request, modelID string) stt.Params {
	p := stt.Params{
		Model:       modelID,
		Language:    stt.LanguageAuto,
		Prompt:      stt.PromptNone,
		Temperature: req.Temperature,
		Mode:        stt.ModeTranscribe,
	}
	if req.Language != "" {
		p.Language = req.Language
	}
	if req.Prompt != "" {
		p.Prompt = req.Prompt
	}
	if req.Task == TaskTranslate {
		p.Language = stt.LanguageAuto
		p.Mode = stt.ModeTranslate
	}
	return p
}
