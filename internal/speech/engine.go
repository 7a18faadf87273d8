// Package speech synthesizes notification text through the Edge read-aloud
// service and plays the result, one playback at a time across processes.
package speech

import (
	"context"
	"errors"
)

// Engine converts text to audio bytes for a given voice.
type Engine interface {
	// Synthesize returns encoded audio for the text spoken by voice.
	// Synthesis shares no state between invocations and may run in full
	// parallel across processes.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Common errors for the speech pipeline.
var (
	ErrEmptyText     = errors.New("no text to speak")
	ErrNoAudio       = errors.New("synthesis returned no audio")
	ErrPlaybackError = errors.New("audio playback failed")
)
