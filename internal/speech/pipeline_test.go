package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mindjig/trace-tools/internal/lockfile"
)

// stubEngine returns canned audio without any network access.
type stubEngine struct {
	audio []byte
	err   error
}

func (e *stubEngine) Synthesize(context.Context, string, string) ([]byte, error) {
	return e.audio, e.err
}

// recordingPlayer records every played file and can simulate playback
// failure and overlap detection.
type recordingPlayer struct {
	err      error
	delay    time.Duration
	inFlight atomic.Int32

	mu       sync.Mutex
	paths    []string
	overlaps int
}

func (p *recordingPlayer) Play(_ context.Context, path string) error {
	if p.inFlight.Add(1) > 1 {
		p.mu.Lock()
		p.overlaps++
		p.mu.Unlock()
	}
	defer p.inFlight.Add(-1)

	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	p.paths = append(p.paths, path)
	p.mu.Unlock()
	return p.err
}

func newTestPipeline(t *testing.T, engine Engine, player Player) *Pipeline {
	t.Helper()
	lock := lockfile.New(filepath.Join(t.TempDir(), "speech.lock"))
	return NewPipeline(engine, player, lock)
}

func TestSpeakPlaysSynthesizedAudio(t *testing.T) {
	player := &recordingPlayer{}
	p := newTestPipeline(t, &stubEngine{audio: []byte("mp3-bytes")}, player)

	if err := p.Speak(context.Background(), "done", "en-US-AriaNeural"); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	if len(player.paths) != 1 {
		t.Fatalf("player invoked %d times, want 1", len(player.paths))
	}
}

func TestSpeakRemovesTempFileOnSuccess(t *testing.T) {
	player := &recordingPlayer{}
	p := newTestPipeline(t, &stubEngine{audio: []byte("mp3-bytes")}, player)

	if err := p.Speak(context.Background(), "done", "en-US-AriaNeural"); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	if _, err := os.Stat(player.paths[0]); !os.IsNotExist(err) {
		t.Errorf("temp file %s still exists after Speak", player.paths[0])
	}
}

func TestSpeakRemovesTempFileOnPlaybackFailure(t *testing.T) {
	player := &recordingPlayer{err: errors.New("ffplay exited 1")}
	p := newTestPipeline(t, &stubEngine{audio: []byte("mp3-bytes")}, player)

	err := p.Speak(context.Background(), "done", "en-US-AriaNeural")
	if err == nil {
		t.Fatal("expected playback error")
	}

	if len(player.paths) != 1 {
		t.Fatalf("player invoked %d times, want 1", len(player.paths))
	}
	if _, statErr := os.Stat(player.paths[0]); !os.IsNotExist(statErr) {
		t.Errorf("temp file %s still exists after failed playback", player.paths[0])
	}
}

func TestSpeakPropagatesSynthesisFailure(t *testing.T) {
	player := &recordingPlayer{}
	p := newTestPipeline(t, &stubEngine{err: errors.New("service unreachable")}, player)

	if err := p.Speak(context.Background(), "done", "en-US-AriaNeural"); err == nil {
		t.Fatal("expected synthesis error")
	}
	if len(player.paths) != 0 {
		t.Errorf("player invoked after synthesis failure")
	}
}

func TestSpeakReleasesLockAfterPlaybackFailure(t *testing.T) {
	failing := &recordingPlayer{err: errors.New("boom")}
	lock := lockfile.New(filepath.Join(t.TempDir(), "speech.lock"))
	p := NewPipeline(&stubEngine{audio: []byte("x")}, failing, lock)

	if err := p.Speak(context.Background(), "done", "en-US-AriaNeural"); err == nil {
		t.Fatal("expected playback error")
	}

	// The lock must be free again or this would block forever.
	done := make(chan struct{})
	go func() {
		release, err := lock.Acquire()
		if err == nil {
			release()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock was not released after failed playback")
	}
}

func TestConcurrentSpeaksNeverOverlapPlayback(t *testing.T) {
	const speakers = 6

	player := &recordingPlayer{delay: 10 * time.Millisecond}
	lock := lockfile.New(filepath.Join(t.TempDir(), "speech.lock"))

	var wg sync.WaitGroup
	for i := 0; i < speakers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each invocation gets its own pipeline, mirroring separate
			// processes that share only the lock path.
			p := NewPipeline(&stubEngine{audio: []byte("x")}, player, lock)
			if err := p.Speak(context.Background(), "done", "en-US-AriaNeural"); err != nil {
				t.Errorf("Speak failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if player.overlaps > 0 {
		t.Errorf("%d overlapping playbacks observed, want none", player.overlaps)
	}
	if len(player.paths) != speakers {
		t.Errorf("%d playbacks ran, want %d (none lost, none duplicated)", len(player.paths), speakers)
	}
}
