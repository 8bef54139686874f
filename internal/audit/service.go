// Package audit appends one row per transcription request to Postgres.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nikhilbhutani/whisperservice/internal/transcription"
)

// DB is the subset of *pgxpool.Pool the service needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// writeTimeout bounds the insert made on the request path.
const writeTimeout = 2 * time.Second

type Service struct {
	db      DB
	now     func() time.Time
	timeout time.Duration
}

func NewService(db DB) *Service {
	return &Service{db: db, now: time.Now, timeout: writeTimeout}
}

// LogEntry is one row of transcription_logs.
type LogEntry struct {
	ID         uuid.UUID `json:"id"`
	RequestID  string    `json:"request_id"`
	Task       string    `json:"task"`
	Model      string    `json:"model"`
	Filename   string    `json:"filename"`
	AudioBytes int64     `json:"audio_bytes"`
	TextChars  int       `json:"text_chars"`
	LatencyMs  int64     `json:"latency_ms"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

func entryFromOutcome(o transcription.Outcome, now time.Time) LogEntry {
	e := LogEntry{
		ID:         uuid.New(),
		RequestID:  o.RequestID,
		Task:       string(o.Task),
		Model:      o.Model,
		Filename:   o.Filename,
		AudioBytes: o.AudioBytes,
		TextChars:  o.TextChars,
		LatencyMs:  o.Latency.Milliseconds(),
		Status:     StatusSuccess,
		CreatedAt:  now.UTC(),
	}
	if o.Err != nil {
		e.Status = StatusFailed
		e.ErrorKind = string(transcription.KindOf(o.Err))
		e.Error = o.Err.Error()
	}
	return e
}

// ObserveTranscription implements transcription.Observer.
func (s *Service) ObserveTranscription(ctx context.Context, o transcription.Outcome) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.Log(ctx, entryFromOutcome(o, s.now())); err != nil {
		slog.Warn("failed to write transcription log", "request_id", o.RequestID, "error", err)
	}
}

func (s *Service) Log(ctx context.Context, e LogEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO transcription_logs (id, request_id, task, model, filename, audio_bytes, text_chars, latency_ms, status, error_kind, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.RequestID, e.Task, e.Model, e.Filename, e.AudioBytes, e.TextChars, e.LatencyMs,
		e.Status, e.ErrorKind, e.Error, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transcription log: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]LogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, request_id, task, model, filename, audio_bytes, text_chars, latency_ms, status, error_kind, error, created_at
		 FROM transcription_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcription logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Task, &e.Model, &e.Filename, &e.AudioBytes,
			&e.TextChars, &e.LatencyMs, &e.Status, &e.ErrorKind, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcription log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
