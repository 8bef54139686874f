package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/whisperservice/internal/transcription"
)

// SweepWorker removes audio handles older than maxAge, covering anything a
// crashed API process left behind. Inference has no timeout, so maxAge must
// exceed the longest expected request or a live handle can be swept.
type SweepWorker struct {
	dir    string
	maxAge time.Duration
	now    func() time.Time
}

func NewSweepWorker(dir string, maxAge time.Duration) *SweepWorker {
	return &SweepWorker{dir: dir, maxAge: maxAge, now: time.Now}
}

func (w *SweepWorker) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	removed, err := w.Sweep(ctx)
	if err != nil {
		return err
	}
	slog.Info("audio sweep finished", "dir", w.dir, "removed", removed)
	return nil
}

// Sweep returns how many handles were removed.
func (w *SweepWorker) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", w.dir, err)
	}

	cutoff := w.now().Add(-w.maxAge)
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !strings.HasPrefix(e.Name(), transcription.HandlePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(w.dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("failed to sweep audio handle", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
