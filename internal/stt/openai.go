package stt

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEngineConfig points the engine at an OpenAI-compatible server, such
// as the whisper.cpp server started with:
//
//	./server -m models/ggml-large-v3-turbo.bin --port 8178
type OpenAIEngineConfig struct {
	BaseURL string // default: "http://localhost:8178/v1"
	APIKey  string
}

// OpenAIEngine delegates inference to an upstream OpenAI-compatible
// /audio/transcriptions and /audio/translations API.
type OpenAIEngine struct {
	client *openai.Client
}

func NewOpenAIEngine(cfg OpenAIEngineConfig) *OpenAIEngine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8178/v1"
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	return &OpenAIEngine{client: openai.NewClientWithConfig(clientCfg)}
}

func (o *OpenAIEngine) Name() string { return "openai" }

func (o *OpenAIEngine) Transcribe(ctx context.Context, path string, p Params) (Result, error) {
	req := openai.AudioRequest{
		Model:       p.Model,
		FilePath:    path,
		Prompt:      p.Prompt,
		Temperature: float32(p.Temperature),
		Format:      openai.AudioResponseFormatVerboseJSON,
	}

	var (
		resp openai.AudioResponse
		err  error
	)
	if p.Mode == ModeTranslate {
		resp, err = o.client.CreateTranslation(ctx, req)
	} else {
		req.Language = p.Language
		resp, err = o.client.CreateTranscription(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("upstream %s: %w", modeOrDefault(p.Mode), err)
	}

	res := StructuredResult{
		Text:     resp.Text,
		HasText:  true,
		Language: resp.Language,
	}
	if len(resp.Segments) > 0 {
		res.Segments = make([]Segment, len(resp.Segments))
		for i, seg := range resp.Segments {
			res.Segments[i] = Segment{Text: seg.Text, HasText: true, Start: seg.Start, End: seg.End}
		}
	}
	return res, nil
}

func modeOrDefault(m Mode) Mode {
	if m == "" {
		return ModeTranscribe
	}
	return m
}
