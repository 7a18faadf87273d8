package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Player plays an audio file to completion.
type Player interface {
	Play(ctx context.Context, path string) error
}

// FFPlay plays audio by invoking ffplay. The binary must be on PATH; a
// non-zero exit is fatal to the invocation.
type FFPlay struct {
	Command string
	Args    []string
}

// NewFFPlay returns a player with the standard quiet, headless flags.
func NewFFPlay() *FFPlay {
	return &FFPlay{
		Command: "ffplay",
		Args:    []string{"-nodisp", "-autoexit", "-loglevel", "quiet"},
	}
}

// Play blocks until the file has played. There is deliberately no timeout:
// a hang in the playback executable hangs the invocation.
func (p *FFPlay) Play(ctx context.Context, path string) error {
	if err := CheckBinary(p.Command); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, p.Command, append(append([]string{}, p.Args...), path)...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s: %v: %s", ErrPlaybackError, p.Command, err, msg)
		}
		return fmt.Errorf("%w: %s: %v", ErrPlaybackError, p.Command, err)
	}
	return nil
}

// CheckBinary checks if a binary exists in the system PATH.
func CheckBinary(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("binary %q not found in PATH: %w", name, err)
	}
	return nil
}
