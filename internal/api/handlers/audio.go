package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/whisperservice/internal/transcription"
)

// Runner is the pipeline the audio endpoints drive.
type Runner interface {
	Run(ctx context.Context, req transcription.Request) (transcription.Response, error)
}

// multipart parts beyond this stay on disk until the handler returns
const formMemory = 8 << 20

type AudioHandler struct {
	runner    Runner
	maxUpload int64
}

func NewAudioHandler(runner Runner, maxUpload int64) *AudioHandler {
	return &AudioHandler{runner: runner, maxUpload: maxUpload}
}

func (h *AudioHandler) Transcriptions(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, transcription.TaskTranscribe)
}

func (h *AudioHandler) Translations(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, transcription.TaskTranslate)
}

func (h *AudioHandler) handle(w http.ResponseWriter, r *http.Request, task transcription.Task) {
	if h.maxUpload > 0 {
		// allow for multipart framing and the text fields
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	}

	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	// A missing file part is an empty upload: the pipeline rejects it the
	// same way it rejects a zero-byte file.
	var (
		audio    io.Reader
		filename string
	)
	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid file part: "+err.Error())
		return
	default:
		defer file.Close()
		audio, filename = file, header.Filename
	}

	temperature := 0.0
	if v := strings.TrimSpace(r.FormValue("temperature")); v != "" {
		temperature, err = strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "temperature must be a number")
			return
		}
	}

	req := transcription.Request{
		RequestID:      chimiddleware.GetReqID(r.Context()),
		Task:           task,
		Filename:       filename,
		Audio:          audio,
		Model:          formValue(r, "model", modelAlias),
		Prompt:         r.FormValue("prompt"),
		ResponseFormat: formValue(r, "response_format", transcription.FormatJSON),
		Temperature:    temperature,
	}
	if task == transcription.TaskTranscribe {
		req.Language = r.FormValue("language")
	}

	// Inference runs to completion even if the client goes away.
	resp, err := h.runner.Run(context.WithoutCancel(r.Context()), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Transcription failed: "+failureMessage(err))
		return
	}

	if resp.JSON {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(resp.Text)) //nolint:errcheck
}

func formValue(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

// failureMessage drops the pipeline stage prefix so clients see the
// underlying cause.
func failureMessage(err error) string {
	var perr *transcription.Error
	if errors.As(err, &perr) && perr.Err != nil {
		return perr.Err.Error()
	}
	return err.Error()
}
