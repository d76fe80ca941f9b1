package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/chat2video/chat2video/internal/system"
)

// Clip is a synthesized narration file with its measured duration.
type Clip struct {
	Path     string
	Duration float64
}

// Synthesizer turns message text into an audio clip. Implementations own
// their latency and failure modes; the batch runner treats any error as
// a per-message synthesis failure.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, outPath string) (Clip, error)
}

// CommandSynthesizer shells out to an external TTS command. The command
// is invoked as `<command> -voice <voice> -o <outPath>` with the text on
// stdin, and the produced clip is measured with ffprobe so scheduling
// works from the true duration, not the provider's estimate.
type CommandSynthesizer struct {
	Command string
	FFprobe string
}

func (c *CommandSynthesizer) Synthesize(ctx context.Context, text, voice, outPath string) (Clip, error) {
	if strings.TrimSpace(text) == "" {
		return Clip{}, fmt.Errorf("empty text")
	}
	if c.Command == "" {
		return Clip{}, fmt.Errorf("no TTS command configured")
	}

	cmd := exec.CommandContext(ctx, c.Command, "-voice", voice, "-o", outPath)
	cmd.Stdin = strings.NewReader(text)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return Clip{}, fmt.Errorf("tts command: %w\n%s", err, out.String())
	}

	dur, err := system.AudioDuration(c.FFprobe, outPath)
	if err != nil {
		return Clip{}, err
	}
	return Clip{Path: outPath, Duration: dur}, nil
}
