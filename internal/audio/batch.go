package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/chat2video/chat2video/internal/config"
	"github.com/chat2video/chat2video/internal/conversation"
	"github.com/chat2video/chat2video/internal/timeline"
)

// Result is the synthesis outcome for one message. Err set means the
// message falls back to its declared duration.
type Result struct {
	Key   timeline.MessageKey
	Voice string
	Clip  Clip
	Err   error
}

// SynthesizeAll runs TTS for every participant message with text,
// bounded to the given parallelism. Messages are independent, so the
// batch fans out freely; results come back indexed, in conversation
// order, and the call returns only when every outcome is known; the
// reconciliation pass needs the full duration set before it may start.
func SynthesizeAll(ctx context.Context, syn Synthesizer, conv *conversation.Conversation, style *config.Style, dir string, workers int) []Result {
	type job struct {
		key   timeline.MessageKey
		text  string
		voice string
	}

	var jobs []job
	for ti := range conv.Turns {
		turn := &conv.Turns[ti]
		if turn.IsSystem() {
			continue
		}
		voice := style.Voice(turn.Role)
		for mi := range turn.Messages {
			if strings.TrimSpace(turn.Messages[mi].Text) == "" {
				continue
			}
			jobs = append(jobs, job{
				key:   timeline.MessageKey{Turn: ti, Message: mi},
				text:  turn.Messages[mi].Text,
				voice: voice,
			})
		}
	}

	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			outPath := filepath.Join(dir, fmt.Sprintf("seg_%d_%d.wav", j.key.Turn, j.key.Message))
			clip, err := syn.Synthesize(ctx, j.text, j.voice, outPath)
			results[i] = Result{Key: j.key, Voice: j.voice, Clip: clip, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

// ToClipSet folds successful results into the scheduler's clip map and
// reports how many messages failed.
func ToClipSet(results []Result) (timeline.ClipSet, int) {
	clips := make(timeline.ClipSet, len(results))
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		clips[r.Key] = timeline.ClipInfo{Path: r.Clip.Path, Duration: r.Clip.Duration}
	}
	return clips, failed
}
