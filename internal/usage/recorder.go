// Package usage keeps per-day request counters in Redis.
package usage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/whisperservice/internal/transcription"
)

const (
	keyPrefix    = "usage:"
	retention    = 48 * time.Hour
	writeTimeout = 2 * time.Second
)

// Snapshot is one day of counters.
type Snapshot struct {
	Day        string           `json:"day"`
	Requests   int64            `json:"requests"`
	Failures   int64            `json:"failures"`
	AudioBytes int64            `json:"audio_bytes"`
	TextChars  int64            `json:"text_chars"`
	ByKind     map[string]int64 `json:"by_kind,omitempty"`
}

type Recorder struct {
	client *redis.Client
	now    func() time.Time
}

func NewRecorder(client *redis.Client) *Recorder {
	return &Recorder{client: client, now: time.Now}
}

func dayKey(day string) string { return keyPrefix + day }

func (r *Recorder) today() string { return r.now().UTC().Format("2006-01-02") }

// ObserveTranscription implements transcription.Observer. Redis failures are
// logged and never affect the request.
func (r *Recorder) ObserveTranscription(ctx context.Context, o transcription.Outcome) {
	if r == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := r.record(ctx, o); err != nil {
		slog.Warn("failed to record usage", "request_id", o.RequestID, "error", err)
	}
}

func (r *Recorder) record(ctx context.Context, o transcription.Outcome) error {
	key := dayKey(r.today())
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, "requests", 1)
		pipe.HIncrBy(ctx, key, "audio_bytes", o.AudioBytes)
		if o.Err != nil {
			kind := string(transcription.KindOf(o.Err))
			if kind == "" {
				kind = "unknown"
			}
			pipe.HIncrBy(ctx, key, "failures", 1)
			pipe.HIncrBy(ctx, key, "kind:"+kind, 1)
		} else {
			pipe.HIncrBy(ctx, key, "text_chars", int64(o.TextChars))
		}
		pipe.Expire(ctx, key, retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("usage incr %s: %w", key, err)
	}
	return nil
}

// Snapshot returns the counters for day (YYYY-MM-DD); an empty day means today.
func (r *Recorder) Snapshot(ctx context.Context, day string) (*Snapshot, error) {
	if day == "" {
		day = r.today()
	}
	vals, err := r.client.HGetAll(ctx, dayKey(day)).Result()
	if err != nil {
		return nil, fmt.Errorf("usage get %s: %w", day, err)
	}

	snap := &Snapshot{Day: day}
	for field, raw := range vals {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("usage field %s: %w", field, err)
		}
		switch field {
		case "requests":
			snap.Requests = n
		case "failures":
			snap.Failures = n
		case "audio_bytes":
			snap.AudioBytes = n
		case "text_chars":
			snap.TextChars = n
		default:
			if kind, ok := strings.CutPrefix(field, "kind:"); ok {
				if snap.ByKind == nil {
					snap.ByKind = map[string]int64{}
				}
				snap.ByKind[kind] = n
			}
		}
	}
	return snap, nil
}

func (r *Recorder) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
