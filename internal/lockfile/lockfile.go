// Package lockfile provides cross-process mutual exclusion over a
// well-known lock file, used to keep concurrent invocations from playing
// audio over each other.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// DefaultPlaybackLockPath is the well-known playback lock location under
// the host's temp directory, distinct from the session file.
func DefaultPlaybackLockPath() string {
	return filepath.Join(os.TempDir(), "trace_voice_speech.lock")
}

// Mutex is an advisory exclusive lock shared by all processes on the host.
// The lock file is created lazily on first acquisition and never removed.
type Mutex struct {
	path string
}

// New creates a mutex over the given lock file path, or the default
// playback lock path when path is empty.
func New(path string) *Mutex {
	if path == "" {
		path = DefaultPlaybackLockPath()
	}
	return &Mutex{path: path}
}

// Path returns the lock file path.
func (m *Mutex) Path() string {
	return m.path
}

// Acquire blocks indefinitely until this process holds the lock, then
// returns a release function. Release is safe to call more than once.
// There is no timeout and no fairness guarantee beyond what the OS lock
// provides.
func (m *Mutex) Acquire() (release func(), err error) {
	fl := flock.New(m.path)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("unable to acquire lock %s: %w", m.path, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = fl.Unlock()
		})
	}, nil
}
