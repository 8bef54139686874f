// Package transcription implements the request pipeline behind the
// /v1/audio endpoints: intake of the upload, parameter translation, one
// engine call, normalization of its result and response shaping.
package transcription

import (
	"context"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nikhilbhutani/whisperservice/internal/stt"
)

type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// Request is one transcription or translation call.
type Request struct {
	RequestID      string
	Task           Task
	Filename       string
	Audio          io.Reader
	Model          string // accepted for compatibility, never used for selection
	Language       string
	Prompt         string
	ResponseFormat string
	Temperature    float64
}

// Outcome summarises a finished request for observers.
type Outcome struct {
	RequestID  string
	Task       Task
	Model      string
	Filename   string
	AudioBytes int64
	TextChars  int
	Latency    time.Duration
	Err        error
}

// Observer is notified once per request, after the response is decided.
type Observer interface {
	ObserveTranscription(ctx context.Context, o Outcome)
}

// Reaper takes over deletion of an AudioHandle the pipeline failed to remove.
type Reaper interface {
	Defer(ctx context.Context, path string) error
}

type Options struct {
	ModelID    string
	AllowEmpty bool
	Logger     *slog.Logger
	Reaper     Reaper
	Observers  []Observer
}

type Service struct {
	engine     stt.Engine
	intake     *Intake
	modelID    string
	allowEmpty bool
	logger     *slog.Logger
	reaper     Reaper
	observers  []Observer
	tracer     trace.Tracer
}

func NewService(engine stt.Engine, intake *Intake, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:     engine,
		intake:     intake,
		modelID:    opts.ModelID,
		allowEmpty: opts.AllowEmpty,
		logger:     logger,
		reaper:     opts.Reaper,
		observers:  opts.Observers,
		tracer:     otel.Tracer("github.com/nikhilbhutani/whisperservice/internal/transcription"),
	}
}

// ModelID returns the process-wide model identifier.
func (s *Service) ModelID() string { return s.modelID }

// Run executes the pipeline. It either returns a response with non-empty
// text (unless empty transcripts are allowed) or an *Error.
func (s *Service) Run(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	out := Outcome{
		RequestID: req.RequestID,
		Task:      req.Task,
		Model:     s.modelID,
		Filename:  req.Filename,
	}

	resp, err := s.run(ctx, req, &out)

	out.Latency = time.Since(start)
	out.Err = err
	if err != nil {
		s.logger.Error("transcription failed",
			"request_id", req.RequestID,
			"kind", KindOf(err),
			"error", err,
		)
	}
	for _, o := range s.observers {
		o.ObserveTranscription(ctx, out)
	}
	return resp, err
}

func (s *Service) run(ctx context.Context, req Request, out *Outcome) (Response, error) {
	handle, err := s.intake.Acquire(req.Filename, req.Audio)
	if err != nil {
		return Response{}, err
	}
	out.AudioBytes = handle.Size
	s.logger.Info("received audio file",
		"request_id", req.RequestID,
		"filename", req.Filename,
		"size", handle.Size,
	)

	params := Translate(req, s.modelID)
	text, err := s.transcribe(ctx, handle, params)
	if err != nil {
		return Response{}, err
	}

	out.TextChars = utf8.RuneCountInString(text)
	s.logger.Info("transcription successful", "request_id", req.RequestID, "chars", out.TextChars)
	return Format(text, req.ResponseFormat), nil
}

// transcribe owns handle for its whole lifetime: it is released on every
// return path.
func (s *Service) transcribe(ctx context.Context, handle *AudioHandle, params stt.Params) (string, error) {
	defer s.release(ctx, handle)

	ctx, span := s.tracer.Start(ctx, "stt.transcribe", trace.WithAttributes(
		attribute.String("stt.engine", s.engine.Name()),
		attribute.String("stt.model", params.Model),
		attribute.String("stt.mode", string(params.Mode)),
		attribute.Int64("stt.audio_bytes", handle.Size),
	))
	defer span.End()

	s.logger.Info("transcribing", "model", params.Model, "mode", params.Mode, "engine", s.engine.Name())
	res, err := s.engine.Transcribe(ctx, handle.Path, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "engine failure")
		return "", newError(KindInference, "transcribe", err)
	}

	text := Normalize(res)
	if text == "" && !s.allowEmpty {
		span.SetStatus(codes.Error, "empty transcript")
		return "", newError(KindEmptyResult, "normalize", ErrEmptyResult)
	}
	return text, nil
}

func (s *Service) release(ctx context.Context, handle *AudioHandle) {
	err := handle.Release()
	if err == nil {
		return
	}
	s.logger.Warn("failed to remove audio handle", "path", handle.Path, "error", err)
	if s.reaper == nil {
		return
	}
	if err := s.reaper.Defer(context.WithoutCancel(ctx), handle.Path); err != nil {
		s.logger.Warn("failed to schedule audio handle removal", "path", handle.Path, "error", err)
	}
}
