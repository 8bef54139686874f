package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/whisperservice/internal/queue"
	"github.com/nikhilbhutani/whisperservice/internal/transcription"
)

// ReapWorker removes audio handles the API could not delete inline.
type ReapWorker struct {
	dir string
}

func NewReapWorker(dir string) *ReapWorker {
	return &ReapWorker{dir: filepath.Clean(dir)}
}

func (w *ReapWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.AudioReapPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	if !w.owns(payload.Path) {
		slog.Warn("refusing to reap path outside audio dir", "path", payload.Path, "dir", w.dir)
		return fmt.Errorf("path %q not an audio handle: %w", payload.Path, asynq.SkipRetry)
	}

	if err := os.RemoveAll(payload.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", payload.Path, err)
	}

	slog.Info("reaped audio handle", "path", payload.Path)
	return nil
}

// owns reports whether path is a handle Intake could have created in dir.
func (w *ReapWorker) owns(path string) bool {
	if path == "" {
		return false
	}
	clean := filepath.Clean(path)
	return filepath.Dir(clean) == w.dir && strings.HasPrefix(filepath.Base(clean), transcription.HandlePrefix)
}
