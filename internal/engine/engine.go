package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/chat2video/chat2video/internal/audio"
	"github.com/chat2video/chat2video/internal/config"
	"github.com/chat2video/chat2video/internal/conversation"
	"github.com/chat2video/chat2video/internal/layout"
	"github.com/chat2video/chat2video/internal/system"
	"github.com/chat2video/chat2video/internal/timeline"
	"github.com/chat2video/chat2video/internal/video"
)

// Engine is the composition driver: it wires the tokenizer, layout
// engine and scheduler together and talks to the external sinks.
type Engine struct {
	Conv       *conversation.Conversation
	Style      *config.Style
	Settings   config.Settings
	Synth      audio.Synthesizer
	Encoder    video.Encoder
	Recoveries *Recoveries

	tempDir string
}

func New(conv *conversation.Conversation, style *config.Style, settings config.Settings) *Engine {
	return &Engine{
		Conv:       conv,
		Style:      style,
		Settings:   settings,
		Recoveries: NewRecoveries(),
	}
}

// ValidateRoles checks that every participant role resolves to a style
// profile. An unknown role is structural: nothing downstream could lay
// out or voice its messages.
func (e *Engine) ValidateRoles() error {
	for ti := range e.Conv.Turns {
		turn := &e.Conv.Turns[ti]
		if turn.IsSystem() {
			continue
		}
		if _, ok := e.Style.Role(turn.Role); !ok {
			return &conversation.StructuralError{
				Turn:   ti,
				Field:  "role",
				Reason: fmt.Sprintf("no style profile for role %q (configured: %v)", turn.Role, e.Style.Roles()),
			}
		}
	}
	return nil
}

// LayoutAll computes geometry for every turn. Measurement failures skip
// only the owning message; unresolved replies keep their raw identifier.
// Both are counted as recoveries.
func (e *Engine) LayoutAll() []timeline.TurnLayouts {
	eng := layout.NewEngine(e.Style)
	layouts := make([]timeline.TurnLayouts, len(e.Conv.Turns))

	for ti := range e.Conv.Turns {
		turn := &e.Conv.Turns[ti]
		if turn.IsSystem() {
			for ei := range turn.Events {
				bl, err := eng.LayoutSystemEvent(&turn.Events[ei])
				if err != nil {
					log.Printf("[!] Layout failed for system event %d/%d: %v", ti, ei, err)
					e.Recoveries.Add(RecoveryMeasurement)
				}
				layouts[ti].Notices = append(layouts[ti].Notices, bl)
			}
			continue
		}

		if turn.TypingDuration > 0 {
			bl, err := eng.LayoutTyping(turn.Role)
			if err != nil {
				log.Printf("[!] Typing layout failed for turn %d: %v", ti, err)
				e.Recoveries.Add(RecoveryMeasurement)
			}
			layouts[ti].Typing = bl
		}

		for mi := range turn.Messages {
			// Consecutive messages in one turn group under a single
			// header; only the first block carries the avatar.
			bl, err := eng.LayoutMessage(e.Conv, ti, mi, mi > 0)
			if err != nil {
				var me *layout.MeasurementError
				if errors.As(err, &me) {
					log.Printf("[!] Measurement failed, message %d/%d skipped: %v", ti, mi, err)
					e.Recoveries.Add(RecoveryMeasurement)
					layouts[ti].Blocks = append(layouts[ti].Blocks, nil)
					continue
				}
				log.Printf("[!] Layout failed, message %d/%d skipped: %v", ti, mi, err)
				e.Recoveries.Add(RecoveryMeasurement)
				layouts[ti].Blocks = append(layouts[ti].Blocks, nil)
				continue
			}
			if bl.UnresolvedReply {
				e.Recoveries.Add(RecoveryReference)
			}
			layouts[ti].Blocks = append(layouts[ti].Blocks, bl)
		}
	}
	return layouts
}

// Compose produces the finalized event stream for the given mode. In
// audio mode it synthesizes all messages in parallel, then runs the
// reconciliation pass with the complete duration set.
func (e *Engine) Compose(ctx context.Context, mode timeline.Mode) (*timeline.Stream, error) {
	if err := e.ValidateRoles(); err != nil {
		return nil, err
	}

	layouts := e.LayoutAll()
	sched := timeline.NewScheduler(e.Conv, e.Style, layouts, mode)
	stream := sched.Schedule()

	if mode != timeline.ModeAudio {
		return stream, nil
	}
	if e.Synth == nil {
		return nil, fmt.Errorf("audio mode requires a synthesizer (set CHAT2VIDEO_TTS_COMMAND)")
	}

	dir, err := e.workDir()
	if err != nil {
		return nil, err
	}

	workers := system.SynthesisWorkers(e.Settings.Workers)
	fmt.Printf("[*] Synthesizing %d messages with %d workers...\n", e.Conv.MessageCount(), workers)
	results := audio.SynthesizeAll(ctx, e.Synth, e.Conv, e.Style, dir, workers)
	for _, r := range results {
		if r.Err != nil {
			log.Printf("[!] Synthesis failed for message %d/%d, keeping declared duration: %v", r.Key.Turn, r.Key.Message, r.Err)
		}
	}
	clips, failed := audio.ToClipSet(results)
	e.Recoveries.AddN(RecoverySynthesis, failed)

	// All durations are known now; rebuild the schedule from them.
	return sched.Reconcile(clips), nil
}

// Encode muxes the stream into a video via the configured encoder.
// Images for the display track must already exist in imageDir under the
// message_<n>_<role>.png naming.
func (e *Engine) Encode(ctx context.Context, stream *timeline.Stream, imageDir, outPath string) error {
	if e.Encoder == nil {
		return fmt.Errorf("no encoder configured")
	}
	graph := video.BuildAudioGraph(stream, e.Settings.SFXDir, func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})
	for _, missing := range graph.Missing {
		log.Printf("[!] SFX file not found, cue skipped: %s", missing)
	}
	e.Recoveries.AddN(RecoverySFXMissing, len(graph.Missing))
	fmt.Printf("[*] Muxing %d display events into %s...\n", len(stream.Displays()), outPath)
	return e.Encoder.Mux(ctx, stream, graph, imageDir, outPath)
}

// workDir creates the per-run temp directory for synthesized clips.
func (e *Engine) workDir() (string, error) {
	if e.tempDir != "" {
		return e.tempDir, nil
	}
	dir := filepath.Join(os.TempDir(), "chat2video_"+uuid.New().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	e.tempDir = dir
	return dir, nil
}

// Cleanup removes the per-run temp directory unless keep-temp is set.
func (e *Engine) Cleanup() {
	if e.tempDir == "" || e.Settings.KeepTemp {
		return
	}
	os.RemoveAll(e.tempDir)
	e.tempDir = ""
}

// ReportSummary prints the end-of-run recovery summary.
func (e *Engine) ReportSummary() {
	fmt.Println(e.Recoveries.Summary())
}
