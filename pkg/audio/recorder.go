package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// Recognizers want 16kHz mono PCM16.
const (
	captureSampleRate = 16000
	captureChannels   = 1
)

// captureTool describes one system capture command.
type captureTool struct {
	name string
	// args builds the command for a device, duration and output path.
	args func(device string, seconds int, path string) []string
}

var captureTools = []captureTool{
	{
		name: "arecord",
		args: func(device string, seconds int, path string) []string {
			a := []string{"-q", "-f", "S16_LE",
				"-r", strconv.Itoa(captureSampleRate),
				"-c", strconv.Itoa(captureChannels),
				"-d", strconv.Itoa(seconds)}
			if device != "" {
				a = append(a, "-D", device)
			}
			return append(a, path)
		},
	},
	{
		name: "sox",
		args: func(device string, seconds int, path string) []string {
			// sox ignores the device override; it records the default input.
			return []string{"-q", "-d",
				"-r", strconv.Itoa(captureSampleRate),
				"-c", strconv.Itoa(captureChannels),
				path, "trim", "0", strconv.Itoa(seconds)}
		},
	},
	{
		name: "ffmpeg",
		args: func(device string, seconds int, path string) []string {
			if device == "" {
				device = "default"
			}
			return []string{"-loglevel", "quiet", "-y",
				"-f", "alsa", "-i", device,
				"-t", strconv.Itoa(seconds),
				"-ar", strconv.Itoa(captureSampleRate),
				"-ac", strconv.Itoa(captureChannels),
				path}
		},
	},
}

// SystemRecorder captures audio through an installed command-line tool.
type SystemRecorder struct {
	tool   captureTool
	device string
}

// NewSystemRecorder probes installed capture tools.
// device overrides the system default input; empty means default.
// Fails fast with ErrNoCaptureTool when nothing usable is installed.
func NewSystemRecorder(device string) (*SystemRecorder, error) {
	for _, tool := range captureTools {
		if _, err := exec.LookPath(tool.name); err == nil {
			return &SystemRecorder{tool: tool, device: device}, nil
		}
	}
	return nil, ErrNoCaptureTool
}

// Record captures up to d of audio from the input device as WAV.
func (r *SystemRecorder) Record(ctx context.Context, d time.Duration) ([]byte, error) {
	seconds := int(d.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	f, err := os.CreateTemp("", "trivia-capture-*.wav")
	if err != nil {
		return nil, fmt.Errorf("audio: temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	// Leave slack beyond the recording window before ctx kills the tool.
	cmdCtx, cancel := context.WithTimeout(ctx, d+5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, r.tool.name, r.tool.args(r.device, seconds, path)...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("audio: %s: %w", r.tool.name, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("audio: read capture: %w", err)
	}
	return data, nil
}

// Tool returns the capture tool name, for logging.
func (r *SystemRecorder) Tool() string {
	return r.tool.name
}

// Verify SystemRecorder implements Recorder at compile time.
var _ Recorder = (*SystemRecorder)(nil)
