package speech

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/mindjig/trace-tools/internal/lockfile"
)

// Pipeline synthesizes text and plays it back. Synthesis runs
// unsynchronized; playback is serialized system-wide through the lock so
// concurrent invocations never talk over each other.
type Pipeline struct {
	Engine Engine
	Player Player
	Lock   *lockfile.Mutex
}

// NewPipeline wires a pipeline over the given engine, player and playback
// lock.
func NewPipeline(engine Engine, player Player, lock *lockfile.Mutex) *Pipeline {
	return &Pipeline{Engine: engine, Player: player, Lock: lock}
}

// Speak synthesizes text with the given voice and plays it. The synthesized
// audio lands in a fresh temp file which is removed on every exit path,
// and the playback lock is released on every exit path.
func (p *Pipeline) Speak(ctx context.Context, text, voiceID string) error {
	audio, err := p.Engine.Synthesize(ctx, text, voiceID)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	tmp, err := os.CreateTemp("", "trace-voice-*.mp3")
	if err != nil {
		return fmt.Errorf("unable to create temp audio file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write temp audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close temp audio file: %w", err)
	}

	// Blocks until every earlier speaker has finished. No timeout.
	release, err := p.Lock.Acquire()
	if err != nil {
		return err
	}
	defer release()

	log.Debug("Playing audio", "voice", voiceID, "file", tmp.Name(), "bytes", len(audio))
	return p.Player.Play(ctx, tmp.Name())
}
