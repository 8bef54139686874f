package transcription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/whisperservice/internal/stt"
)

type fakeEngine struct {
	result  stt.Result
	err     error
	onCall  func(path string)
	mu      sync.Mutex
	calls   int
	params  stt.Params
	existed bool
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Transcribe(_ context.Context, path string, p stt.Params) (stt.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.params = p
	_, err := os.Stat(path)
	f.existed = err == nil
	if f.onCall != nil {
		f.onCall(path)
	}
	return f.result, f.err
}

type recordingObserver struct {
	outcomes []Outcome
}

func (r *recordingObserver) ObserveTranscription(_ context.Context, o Outcome) {
	r.outcomes = append(r.outcomes, o)
}

type recordingReaper struct {
	paths []string
}

func (r *recordingReaper) Defer(_ context.Context, path string) error {
	r.paths = append(r.paths, path)
	return nil
}

const testModel = "mlx-community/whisper-large-v3-turbo"

func newTestService(t *testing.T, engine stt.Engine, opts Options) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	opts.ModelID = testModel
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(engine, NewIntake(dir, ".wav"), opts), dir
}

func assertNoHandles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary audio files left behind")
}

func speech() io.Reader { return strings.NewReader("RIFF....WAVEfmt speech") }

func TestRunJSONResponse(t *testing.T) {
	engine := &fakeEngine{result: stt.StructuredResult{Text: "hello world", HasText: true}}
	svc, dir := newTestService(t, engine, Options{})

	resp, err := svc.Run(context.Background(), Request{Task: TaskTranscribe, Filename: "a.wav", Audio: speech()})
	require.NoError(t, err)

	assert.Equal(t, Response{Text: "hello world", JSON: true}, resp)
	assert.True(t, engine.existed, "audio handle must exist during inference")
	assert.Equal(t, 1, engine.calls)
	assertNoHandles(t, dir)
}

func TestRunTextResponse(t *testing.T) {
	engine := &fakeEngine{result: stt.StructuredResult{Text: "hi", HasText: true}}
	svc, dir := newTestService(t, engine, Options{})

	resp, err := svc.Run(context.Background(), Request{Task: TaskTranscribe, Audio: speech(), ResponseFormat: "text"})
	require.NoError(t, err)

	assert.Equal(t, Response{Text: "hi", JSON: false}, resp)
	assertNoHandles(t, dir)
}

func TestRunSilentAudioIsEmptyResultError(t *testing.T) {
	engine := &fakeEngine{result: stt.StructuredResult{HasText: true, Segments: []stt.Segment{}}}
	obs := &recordingObserver{}
	svc, dir := newTestService(t, engine, Options{Observers: []Observer{obs}})

	_, err := svc.Run(context.Background(), Request{Task: TaskTranscribe, Audio: speech()})
	require.Error(t, err)
	assert.Equal(t, KindEmptyResult, KindOf(err))
	assert.ErrorIs(t, err, ErrEmptyResult)
	assertNoHandles(t, dir)

	require.Len(t, obs.outcomes, 1)
	assert.Equal(t, KindEmptyResult, KindOf(obs.outcomes[0].Err))
}

func TestRunAllowEmptyTranscript(t *testing.T) {
	engine := &fakeEngine{result: stt.StructuredResult{HasText: true}}
	svc, dir := newTestService(t, engine, Options{AllowEmpty: true})

	resp, err := svc.Run(context.Background(), Request{Task: TaskTranscribe, Audio: speech()})
	require.NoError(t, err)
	assert.Equal(t, Response{Text: "", JSON: true}, resp)
	assertNoHandles(t, dir)
}

func TestRunInferenceError(t *testing.T) {
	engine := &fakeEngine{err: errors.New("invalid language code: xx")}
	svc, dir := newTestService(t, engine, Options{})

	_, err := svc.Run(context.Background(), Request{Task: TaskTranscribe, Audio: speech(), Language: "xx"})
	require.Error(t, err)
	assert.Equal(t, KindInference, KindOf(err))
	assert.Contains(t, err.Error(), "invalid language code: xx")
	assert.Equal(t, "xx", engine.params.Language)
	assertNoHandles(t, dir)
}

func TestRunEmptyAudioNeverReachesEngine(t *testing.T) {
	engine := &fakeEngine{result: stt.TextResult("unused")}
	svc, dir := newTestService(t, engine, Options{})

	_, err := svc.Run(context.Background(), Request{Task: TaskTranscribe, Audio: strings.NewReader("")})
	require.Error(t, err)
	assert.Equal(t, KindInput, KindOf(err))
	assert.Zero(t, engine.calls)
	assertNoHandles(t, dir)
}

func TestRunTranslationForcesAutoDetect(t *testing.T) {
	engine := &fakeEngine{result: stt.TextResult("good morning")}
	svc, _ := newTestService(t, engine, Options{})

	resp, err := svc.Run(context.Background(), Request{Task: TaskTranslate, Audio: speech(), Language: "fr", Model: "whisper-1"})
	require.NoError(t, err)
	assert.Equal(t, "good morning", resp.Text)
	assert.Equal(t, stt.LanguageAuto, engine.params.Language)
	assert.Equal(t, stt.ModeTranslate, engine.params.Mode)
	assert.Equal(t, testModel, engine.params.Model)
}

func TestRunSegmentFallback(t *testing.T) {
	engine := &fakeEngine{result: stt.StructuredResult{
		HasText: true,
		Segments: []stt.Segment{
			{Text: "part one", HasText: true},
			{Text: "part two", HasText: true},
		},
	}}
	svc, _ := newTestService(t, engine, Options{})

	resp, err := svc.Run(context.Background(), Request{Task: TaskTranscribe, Audio: speech()})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", resp.Text)
}

func TestRunDefersCleanupWhenRemovalFails(t *testing.T) {
	// Replace the handle with a non-empty directory so os.Remove fails.
	engine := &fakeEngine{
		result: stt.TextResult("ok"),
		onCall: func(path string) {
			os.Remove(path)
			os.Mkdir(path, 0o755)
			os.WriteFile(filepath.Join(path, "pin"), []byte("x"), 0o600)
		},
	}
	reaper := &recordingReaper{}
	svc, _ := newTestService(t, engine, Options{Reaper: reaper})

	resp, err := svc.Run(context.Background(), Request{Task: TaskTranscribe, Audio: speech()})
	require.NoError(t, err, "cleanup failures must not fail the request")
	assert.Equal(t, "ok", resp.Text)
	require.Len(t, reaper.paths, 1)
	assert.True(t, strings.HasPrefix(filepath.Base(reaper.paths[0]), HandlePrefix))
}

func TestRunReportsOutcome(t *testing.T) {
	engine := &fakeEngine{result: stt.TextResult("héllo")}
	obs := &recordingObserver{}
	svc, _ := newTestService(t, engine, Options{Observers: []Observer{obs}})

	_, err := svc.Run(context.Background(), Request{RequestID: "req-1", Task: TaskTranscribe, Filename: "x.ogg", Audio: strings.NewReader("1234")})
	require.NoError(t, err)

	require.Len(t, obs.outcomes, 1)
	o := obs.outcomes[0]
	assert.Equal(t, "req-1", o.RequestID)
	assert.Equal(t, TaskTranscribe, o.Task)
	assert.Equal(t, testModel, o.Model)
	assert.Equal(t, "x.ogg", o.Filename)
	assert.Equal(t, int64(4), o.AudioBytes)
	assert.Equal(t, 5, o.TextChars)
	assert.NoError(t, o.Err)
}

func TestRunConcurrentRequestsUseDistinctHandles(t *testing.T) {
	var mu sync.Mutex
	paths := map[string]bool{}
	engine := &fakeEngine{
		result: stt.TextResult("ok"),
		onCall: func(path string) {
			mu.Lock()
			paths[path] = true
			mu.Unlock()
		},
	}
	svc, dir := newTestService(t, engine, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Run(context.Background(), Request{Task: TaskTranscribe, Audio: speech()})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, paths, 8)
	assertNoHandles(t, dir)
}
