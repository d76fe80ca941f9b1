package video

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/chat2video/chat2video/internal/render"
	"github.com/chat2video/chat2video/internal/timeline"
)

// Encoder muxes a finalized stream into a single video file: one image
// track driven by display durations, layered narration and SFX audio.
// The audio graph is built by the caller so existence checks and missing
// file accounting happen once, upstream.
type Encoder interface {
	Mux(ctx context.Context, s *timeline.Stream, graph AudioGraph, imageDir, outPath string) error
}

// FFmpegEncoder drives the system ffmpeg binary.
type FFmpegEncoder struct {
	FFmpeg string
	FPS    int
}

// ConcatList renders the concat-demuxer input file for the display
// track: every image held for its display duration. The final image is
// repeated without a duration per the demuxer's convention. Images that
// fail the exists check are skipped and reported back; losing a frame is
// better than aborting the whole mux.
func ConcatList(s *timeline.Stream, imageDir string, exists func(string) bool) (string, []string) {
	var missing []string
	var kept []render.Instruction
	for _, inst := range render.Instructions(s) {
		path := render.ImagePath(imageDir, inst)
		if !exists(path) {
			missing = append(missing, filepath.Base(path))
			continue
		}
		kept = append(kept, inst)
	}

	var b strings.Builder
	for _, inst := range kept {
		path, _ := filepath.Abs(render.ImagePath(imageDir, inst))
		fmt.Fprintf(&b, "file '%s'\n", path)
		fmt.Fprintf(&b, "duration %.3f\n", inst.Duration)
	}
	if n := len(kept); n > 0 {
		path, _ := filepath.Abs(render.ImagePath(imageDir, kept[n-1]))
		fmt.Fprintf(&b, "file '%s'\n", path)
	}
	return b.String(), missing
}

// AudioGraph is the assembled audio side of the mux: extra -i inputs and
// the filter_complex mixing them over a silent base, plus any SFX files
// that were declared but missing on disk.
type AudioGraph struct {
	Inputs  []string
	Filter  string
	Missing []string
}

// BuildAudioGraph lays every audio cue and SFX cue onto a silent base
// the length of the stream. Cue start times become adelay offsets; SFX
// volume becomes a volume filter. exists abstracts the filesystem so the
// graph construction stays pure.
func BuildAudioGraph(s *timeline.Stream, sfxDir string, exists func(string) bool) AudioGraph {
	var g AudioGraph
	var parts []string
	var mix []string

	// Input 0 is the video; audio inputs start at 1 after the base.
	parts = append(parts, fmt.Sprintf("anullsrc=r=44100:cl=stereo:d=%.3f[base]", s.Total))
	mix = append(mix, "[base]")

	idx := 1
	addInput := func(path string, start, volume float64, label string) {
		g.Inputs = append(g.Inputs, path)
		delay := int(start * 1000)
		parts = append(parts, fmt.Sprintf("[%d:a]volume=%.3f,adelay=%d|%d[%s]", idx, volume, delay, delay, label))
		mix = append(mix, "["+label+"]")
		idx++
	}

	for i, cue := range s.AudioCues() {
		if cue.Clip == "" || !exists(cue.Clip) {
			continue
		}
		addInput(cue.Clip, cue.Start, 1.0, fmt.Sprintf("v%d", i+1))
	}
	for i, cue := range s.SFXCues() {
		path := cue.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(sfxDir, path)
		}
		if !exists(path) {
			g.Missing = append(g.Missing, cue.File)
			continue
		}
		addInput(path, cue.Start, cue.Volume, fmt.Sprintf("s%d", i+1))
	}

	if len(mix) == 1 {
		// Nothing to lay over the base; skip the audio side entirely.
		return AudioGraph{Missing: g.Missing}
	}
	g.Filter = strings.Join(parts, ";") + ";" +
		strings.Join(mix, "") +
		fmt.Sprintf("amix=inputs=%d:duration=first:dropout_transition=0:normalize=0[aout]", len(mix))
	return g
}

// Mux writes the concat list, assembles the full ffmpeg invocation and
// runs it.
func (e *FFmpegEncoder) Mux(ctx context.Context, s *timeline.Stream, graph AudioGraph, imageDir, outPath string) error {
	ffmpeg := e.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	fps := e.FPS
	if fps <= 0 {
		fps = 24
	}

	list, missingImages := ConcatList(s, imageDir, func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})
	for _, name := range missingImages {
		fmt.Printf("[!] Image not found, frame skipped: %s\n", name)
	}
	if list == "" {
		return fmt.Errorf("no display images found in %s", imageDir)
	}
	listPath := filepath.Join(imageDir, "inputs.txt")
	if err := os.WriteFile(listPath, []byte(list), 0644); err != nil {
		return err
	}

	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath}
	for _, in := range graph.Inputs {
		args = append(args, "-i", in)
	}
	if graph.Filter != "" {
		args = append(args, "-filter_complex", graph.Filter, "-map", "0:v", "-map", "[aout]", "-c:a", "aac")
	} else {
		args = append(args, "-map", "0:v")
	}
	args = append(args,
		"-t", fmt.Sprintf("%.3f", s.Total),
		"-r", fmt.Sprintf("%d", fps),
		"-pix_fmt", "yuv420p",
		"-c:v", "libx264", "-crf", "23", "-preset", "medium",
		outPath,
	)

	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg mux error: %w\n%s", err, out.String())
	}
	return nil
}
