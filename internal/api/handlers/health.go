package handlers

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"
)

type HealthHandler struct {
	model  string
	checks map[string]Pinger
}

func NewHealthHandler(model string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{model: model, checks: checks}
}

type healthResponse struct {
	Status string            `json:"status"`
	Model  string            `json:"model"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports liveness and the configured model. With ?deep=1 it also
// pings each optional backing store and answers 503 if any is down.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Model: h.model}
	deep, _ := strconv.ParseBool(r.URL.Query().Get("deep"))
	if !deep || len(h.checks) == 0 {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	resp.Checks = make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			resp.Checks[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	if status != http.StatusOK {
		resp.Status = "degraded"
	}

	writeJSON(w, status, resp)
}
