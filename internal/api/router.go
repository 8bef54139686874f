package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/whisperservice/internal/api/handlers"
	"github.com/nikhilbhutani/whisperservice/internal/api/middleware"
	"github.com/nikhilbhutani/whisperservice/internal/audit"
	"github.com/nikhilbhutani/whisperservice/internal/auth"
	"github.com/nikhilbhutani/whisperservice/internal/config"
	"github.com/nikhilbhutani/whisperservice/internal/observability"
	"github.com/nikhilbhutani/whisperservice/internal/transcription"
	"github.com/nikhilbhutani/whisperservice/internal/usage"
)

// Deps are the collaborators the router wires into handlers. Everything
// except Config and Service is optional.
type Deps struct {
	Config    *config.Config
	Service   *transcription.Service
	Telemetry *observability.Provider
	Auth      *auth.Middleware
	Usage     *usage.Recorder
	Audit     *audit.Service
	Checks    map[string]handlers.Pinger
}

type Router struct {
	mux  *chi.Mux
	deps Deps
}

func NewRouter(deps Deps) *Router {
	return &Router{mux: chi.NewRouter(), deps: deps}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux
	cfg := rt.deps.Config

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	if rt.deps.Telemetry != nil {
		r.Use(middleware.Metrics(rt.deps.Telemetry))
		if h := rt.deps.Telemetry.PrometheusHandler(); h != nil {
			r.Handle("/metrics", h)
		}
	}

	health := handlers.NewHealthHandler(rt.deps.Service.ModelID(), rt.deps.Checks)
	r.Get("/health", health.Health)

	audio := handlers.NewAudioHandler(rt.deps.Service, cfg.Audio.MaxUploadBytes)
	admin := handlers.NewAdminHandler(rt.usageReader(), rt.logReader())

	r.Route("/v1", func(r chi.Router) {
		r.Use(rt.deps.Auth.Authenticate)

		r.Get("/models", handlers.ListModels)

		r.Route("/audio", func(r chi.Router) {
			r.Post("/transcriptions", audio.Transcriptions)
			r.Post("/translations", audio.Translations)
		})

		// filenames and error text are not for anonymous callers
		if rt.deps.Auth != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Get("/usage", admin.Usage)
				r.Get("/logs", admin.Logs)
			})
		}
	})

	return r
}

// nil pointers must not reach the handler as non-nil interfaces
func (rt *Router) usageReader() handlers.UsageReader {
	if rt.deps.Usage == nil {
		return nil
	}
	return rt.deps.Usage
}

func (rt *Router) logReader() handlers.LogReader {
	if rt.deps.Audit == nil {
		return nil
	}
	return rt.deps.Audit
}
