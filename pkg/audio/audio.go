// Package audio is the device boundary for the trivia host.
//
// Playback and capture shell out to whatever system audio tool is
// installed (ffplay/mpg123/aplay/afplay for output, arecord/sox/ffmpeg
// for input). The rest of the system only sees the Player and Recorder
// interfaces, so the device plumbing never leaks into the game loop.
package audio

import (
	"context"
	"errors"
	"time"
)

// Format identifies the container/encoding of an audio buffer.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatWAV Format = "wav"
)

// Sentinel errors.
var (
	// ErrNoPlaybackTool is returned when no supported playback command
	// is installed.
	ErrNoPlaybackTool = errors.New("audio: no playback tool found (install ffplay, mpg123, aplay or afplay)")

	// ErrNoCaptureTool is returned when no supported capture command
	// is installed.
	ErrNoCaptureTool = errors.New("audio: no capture tool found (install arecord, sox or ffmpeg)")
)

// Player plays a synthesized audio buffer on the output device.
type Player interface {
	// Play blocks until playback finishes or ctx is done.
	Play(ctx context.Context, data []byte, format Format) error
}

// Recorder captures audio from the input device.
type Recorder interface {
	// Record captures up to d of audio and returns it as 16kHz mono
	// PCM16 WAV, the format speech recognizers expect.
	Record(ctx context.Context, d time.Duration) ([]byte, error)
}
