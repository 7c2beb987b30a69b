package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// playbackTool describes one system playback command.
type playbackTool struct {
	name string
	// args builds the command arguments for a file path.
	args func(path string) []string
	// formats lists what the tool can decode.
	formats map[Format]bool
}

var playbackTools = []playbackTool{
	{
		name: "ffplay",
		args: func(path string) []string {
			return []string{"-autoexit", "-nodisp", "-loglevel", "quiet", path}
		},
		formats: map[Format]bool{FormatMP3: true, FormatWAV: true},
	},
	{
		name:    "afplay",
		args:    func(path string) []string { return []string{path} },
		formats: map[Format]bool{FormatMP3: true, FormatWAV: true},
	},
	{
		name:    "mpg123",
		args:    func(path string) []string { return []string{"-q", path} },
		formats: map[Format]bool{FormatMP3: true},
	},
	{
		name:    "aplay",
		args:    func(path string) []string { return []string{"-q", path} },
		formats: map[Format]bool{FormatWAV: true},
	},
}

// SystemPlayer plays audio through an installed command-line player.
type SystemPlayer struct {
	tools []playbackTool
}

// NewSystemPlayer probes installed playback tools.
// Fails fast when none are available so misconfiguration is caught at
// startup, not mid-game.
func NewSystemPlayer() (*SystemPlayer, error) {
	var found []playbackTool
	for _, tool := range playbackTools {
		if _, err := exec.LookPath(tool.name); err == nil {
			found = append(found, tool)
		}
	}
	if len(found) == 0 {
		return nil, ErrNoPlaybackTool
	}
	return &SystemPlayer{tools: found}, nil
}

// Play writes the buffer to a temp file and plays it with the first tool
// that supports the format. Blocks until playback completes or ctx is done.
func (p *SystemPlayer) Play(ctx context.Context, data []byte, format Format) error {
	tool, ok := p.toolFor(format)
	if !ok {
		return fmt.Errorf("audio: no installed tool plays %s", format)
	}

	f, err := os.CreateTemp("", "trivia-*."+string(format))
	if err != nil {
		return fmt.Errorf("audio: temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("audio: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("audio: close temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, tool.name, tool.args(path)...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("audio: %s: %w", tool.name, err)
	}
	return nil
}

func (p *SystemPlayer) toolFor(format Format) (playbackTool, bool) {
	for _, tool := range p.tools {
		if tool.formats[format] {
			return tool, true
		}
	}
	return playbackTool{}, false
}

// Tool returns the name of the preferred tool for a format, for logging.
func (p *SystemPlayer) Tool(format Format) string {
	if tool, ok := p.toolFor(format); ok {
		return tool.name
	}
	return ""
}

// Verify SystemPlayer implements Player at compile time.
var _ Player = (*SystemPlayer)(nil)
