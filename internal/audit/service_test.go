package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/whisperservice/internal/transcription"
)

type fakeDB struct {
	sql  string
	args []any
	err  error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func TestEntryFromOutcome(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

	ok := entryFromOutcome(transcription.Outcome{
		RequestID:  "r1",
		Task:       transcription.TaskTranscribe,
		Model:      "whisper-large",
		Filename:   "a.wav",
		AudioBytes: 2048,
		TextChars:  12,
		Latency:    1500 * time.Millisecond,
	}, now)
	assert.Equal(t, StatusSuccess, ok.Status)
	assert.Equal(t, int64(1500), ok.LatencyMs)
	assert.Equal(t, now, ok.CreatedAt)
	assert.Empty(t, ok.ErrorKind)

	failed := entryFromOutcome(transcription.Outcome{
		Task: transcription.TaskTranslate,
		Err:  &transcription.Error{Kind: transcription.KindInference, Op: "transcribe", Err: errors.New("corrupt data")},
	}, now)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "inference", failed.ErrorKind)
	assert.Equal(t, "transcribe: corrupt data", failed.Error)
}

func TestObserveTranscriptionInserts(t *testing.T) {
	db := &fakeDB{}
	svc := NewService(db)

	svc.ObserveTranscription(context.Background(), transcription.Outcome{RequestID: "r2", Task: transcription.TaskTranscribe})

	assert.Contains(t, db.sql, "INSERT INTO transcription_logs")
	require.Len(t, db.args, 12)
	assert.Equal(t, "r2", db.args[1])
	assert.Equal(t, "transcribe", db.args[2])
	assert.Equal(t, StatusSuccess, db.args[8])
}

func TestLogWrapsError(t *testing.T) {
	svc := NewService(&fakeDB{err: errors.New("relation does not exist")})
	err := svc.Log(context.Background(), LogEntry{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert transcription log")
}

type stallingDB struct {
	fakeDB
}

func (s *stallingDB) Exec(ctx context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	<-ctx.Done()
	return pgconn.CommandTag{}, ctx.Err()
}

func TestObserveTranscriptionBoundedWhenDatabaseStalls(t *testing.T) {
	svc := NewService(&stallingDB{})
	svc.timeout = 50 * time.Millisecond

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		svc.ObserveTranscription(reqCtx, transcription.Outcome{RequestID: "r3", Task: transcription.TaskTranscribe})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ObserveTranscription did not return while the database was stalled")
	}
}
