// Package stt wraps the external speech-to-text engines the service can run
// against. Every call is a single synchronous attempt: no retries, no caching
// and no timeout beyond whatever the caller's context carries.
package stt

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/whisperservice/internal/config"
)

// Mode selects the engine-level operation.
type Mode string

const (
	ModeTranscribe Mode = "transcribe"
	ModeTranslate  Mode = "translate"
)

const (
	// LanguageAuto asks the engine to detect the spoken language itself.
	LanguageAuto = ""
	// PromptNone means no initial decoding context.
	PromptNone = ""
)

// Params are engine-level parameters, already translated from the
// OpenAI-style request fields.
type Params struct {
	Model       string
	Language    string
	Prompt      string
	Temperature float64
	Mode        Mode
}

// Engine performs one transcription of the audio stored at path.
type Engine interface {
	Transcribe(ctx context.Context, path string, p Params) (Result, error)
	Name() string
}

// New builds the engine selected by cfg.Backend.
func New(cfg config.EngineConfig) (Engine, error) {
	switch cfg.Backend {
	case config.BackendExec:
		return NewExecEngine(cfg.Command)
	case config.BackendOpenAI:
		return NewOpenAIEngine(OpenAIEngineConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Backend)
	}
}
