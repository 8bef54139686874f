package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/nikhilbhutani/whisperservice/internal/audit"
	"github.com/nikhilbhutani/whisperservice/internal/usage"
)

type UsageReader interface {
	Snapshot(ctx context.Context, day string) (*usage.Snapshot, error)
}

type LogReader interface {
	Recent(ctx context.Context, limit int) ([]audit.LogEntry, error)
}

// AdminHandler exposes the optional usage counters and transcription log.
// Either source may be nil when its backing store is not configured.
type AdminHandler struct {
	usage UsageReader
	logs  LogReader
}

func NewAdminHandler(u UsageReader, l LogReader) *AdminHandler {
	return &AdminHandler{usage: u, logs: l}
}

func (h *AdminHandler) Usage(w http.ResponseWriter, r *http.Request) {
	if h.usage == nil {
		writeError(w, http.StatusNotFound, "usage tracking is not enabled")
		return
	}

	day := r.URL.Query().Get("day")
	if day == "" {
		day = time.Now().UTC().Format(time.DateOnly)
	} else if _, err := time.Parse(time.DateOnly, day); err != nil {
		writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
		return
	}

	snap, err := h.usage.Snapshot(r.Context(), day)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"usage": snap})
}

func (h *AdminHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		writeError(w, http.StatusNotFound, "transcription log is not enabled")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.logs.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": entries, "count": len(entries)})
}
