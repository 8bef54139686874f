package transcription

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// AudioHandle is the on-disk copy of one request's upload. It is owned by
// exactly one request and removed by Release.
type AudioHandle struct {
	Path     string
	Filename string
	Size     int64
}

// Release deletes the backing file. A file that is already gone is not an error.
func (h *AudioHandle) Release() error {
	if h == nil || h.Path == "" {
		return nil
	}
	if err := os.Remove(h.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Intake turns an upload stream into an AudioHandle.
type Intake struct {
	dir    string
	suffix string
}

// HandlePrefix starts the name of every file Intake creates.
const HandlePrefix = "whisper-"

func NewIntake(dir, suffix string) *Intake {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Intake{dir: dir, suffix: suffix}
}

// Acquire streams the upload verbatim into a uniquely named temporary file,
// creating the handle directory if needed. filename is informational only.
func (in *Intake) Acquire(filename string, r io.Reader) (*AudioHandle, error) {
	if r == nil {
		return nil, newError(KindInput, "read upload", ErrEmptyAudio)
	}

	if err := os.MkdirAll(in.dir, 0o700); err != nil {
		return nil, newError(KindResource, "create temp dir", err)
	}
	pattern := fmt.Sprintf("%s%s-*%s", HandlePrefix, uuid.NewString(), in.suffix)
	f, err := os.CreateTemp(in.dir, pattern)
	if err != nil {
		return nil, newError(KindResource, "create temp file", err)
	}
	handle := &AudioHandle{Path: f.Name(), Filename: filename}

	n, err := io.Copy(f, uploadReader{r})
	if err != nil {
		f.Close()
		handle.Release()
		var rerr *readError
		if errors.As(err, &rerr) {
			return nil, newError(KindInput, "read upload", rerr.err)
		}
		return nil, newError(KindResource, "write temp file", err)
	}
	if err := f.Close(); err != nil {
		handle.Release()
		return nil, newError(KindResource, "close temp file", err)
	}
	if n == 0 {
		handle.Release()
		return nil, newError(KindInput, "read upload", ErrEmptyAudio)
	}

	handle.Size = n
	return handle, nil
}

// uploadReader tags read failures so they are reported as input errors
// rather than as failures writing the temp file.
type uploadReader struct{ r io.Reader }

func (u uploadReader) Read(p []byte) (int, error) {
	n, err := u.r.Read(p)
	if err != nil && err != io.EOF {
		err = &readError{err: err}
	}
	return n, err
}

type readError struct{ err error }

func (e *readError) Error() string { return e.err.Error() }
func (e *readError) Unwrap() error { return e.err }
