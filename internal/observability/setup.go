package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/nikhilbhutani/whisperservice/internal/config"
	"github.com/nikhilbhutani/whisperservice/internal/transcription"
)

const namespace = "whisper_service"

type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	registry       *promreg.Registry
	promHandler    http.Handler
	shutdownFuncs  []func(context.Context) error

	httpRequestCounter *promreg.CounterVec
	httpRequestLatency *promreg.HistogramVec
	transcriptions     *promreg.CounterVec
	inferenceLatency   *promreg.HistogramVec
	audioBytes         *promreg.CounterVec
}

// Setup returns nil when neither metrics nor tracing is enabled; every method
// on a nil *Provider is a no-op.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (*Provider, error) {
	if !cfg.MetricsEnabled && cfg.OTLPEndpoint == "" {
		return nil, nil
	}

	provider := &Provider{}

	if cfg.OTLPEndpoint != "" {
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName("whisper-service"),
			),
		)
		if err != nil {
			return nil, err
		}

		endpoint := cfg.OTLPEndpoint
		opts := []otlptracegrpc.Option{}
		switch {
		case strings.HasPrefix(endpoint, "http://"):
			endpoint = strings.TrimPrefix(endpoint, "http://")
			opts = append(opts, otlptracegrpc.WithInsecure())
		case strings.HasPrefix(endpoint, "https://"):
			endpoint = strings.TrimPrefix(endpoint, "https://")
		default:
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))

		exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		provider.tracerProvider = tp
		provider.shutdownFuncs = append(provider.shutdownFuncs, tp.Shutdown)
	}

	if cfg.MetricsEnabled {
		if err := provider.registerMetrics(); err != nil {
			return nil, err
		}
	}

	return provider, nil
}

func (p *Provider) registerMetrics() error {
	registry := promreg.NewRegistry()
	latencyBuckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

	p.httpRequestCounter = promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	p.httpRequestLatency = promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   latencyBuckets,
		},
		[]string{"method", "route", "status"},
	)
	p.transcriptions = promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Transcription requests by task and outcome.",
		},
		[]string{"task", "status"},
	)
	p.inferenceLatency = promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "End-to-end duration of the transcription pipeline.",
			Buckets:   latencyBuckets,
		},
		[]string{"task"},
	)
	p.audioBytes = promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "Bytes of uploaded audio accepted for transcription.",
		},
		[]string{"task"},
	)

	for _, c := range []promreg.Collector{
		p.httpRequestCounter, p.httpRequestLatency, p.transcriptions, p.inferenceLatency, p.audioBytes,
	} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}

	p.registry = registry
	p.promHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return nil
}

func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.promHandler == nil {
		return nil
	}
	return p.promHandler
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Provider) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if p == nil || p.httpRequestCounter == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	p.httpRequestCounter.WithLabelValues(method, route, statusLabel).Inc()
	p.httpRequestLatency.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
}

// ObserveTranscription implements transcription.Observer.
func (p *Provider) ObserveTranscription(_ context.Context, o transcription.Outcome) {
	if p == nil || p.transcriptions == nil {
		return
	}
	task := string(o.Task)
	status := "success"
	if o.Err != nil {
		status = string(transcription.KindOf(o.Err))
		if status == "" {
			status = "error"
		}
	}
	p.transcriptions.WithLabelValues(task, status).Inc()
	p.inferenceLatency.WithLabelValues(task).Observe(o.Latency.Seconds())
	if o.AudioBytes > 0 {
		p.audioBytes.WithLabelValues(task).Add(float64(o.AudioBytes))
	}
}
