package video

import (
	"strings"
	"testing"

	"github.com/chat2video/chat2video/internal/layout"
	"github.com/chat2video/chat2video/internal/timeline"
)

func muxStream() *timeline.Stream {
	return &timeline.Stream{
		Mode:  timeline.ModeAudio,
		Total: 9,
		Events: []timeline.Event{
			{Kind: timeline.KindDisplay, Start: 0, Duration: 4, Turn: 0, Message: 0, Block: &layout.BlockLayout{Role: "user"}},
			{Kind: timeline.KindDisplay, Start: 4, Duration: 5, Turn: 1, Message: 0, Block: &layout.BlockLayout{Role: "assistant"}},
			{Kind: timeline.KindAudio, Start: 0, Duration: 4, Turn: 0, Message: 0, Clip: "/tmp/seg_0_0.wav"},
			{Kind: timeline.KindSFX, Start: 5.5, Turn: 1, Message: 0, File: "ding.mp3", Volume: 0.5},
			{Kind: timeline.KindSFX, Start: 2, Turn: 0, Message: 0, File: "lost.mp3", Volume: 1},
		},
	}
}

func TestConcatList(t *testing.T) {
	list, missing := ConcatList(muxStream(), "out", func(string) bool { return true })
	if len(missing) != 0 {
		t.Fatalf("missing: %v", missing)
	}
	lines := strings.Split(strings.TrimRight(list, "\n"), "\n")

	// Two file/duration pairs plus the trailing repeat of the last image.
	if len(lines) != 5 {
		t.Fatalf("got %d lines:\n%s", len(lines), list)
	}
	if !strings.Contains(lines[0], "message_1_user.png") {
		t.Errorf("first entry: %q", lines[0])
	}
	if lines[1] != "duration 4.000" {
		t.Errorf("first duration: %q", lines[1])
	}
	if !strings.Contains(lines[2], "message_2_assistant.png") {
		t.Errorf("second entry: %q", lines[2])
	}
	if lines[3] != "duration 5.000" {
		t.Errorf("second duration: %q", lines[3])
	}
	if !strings.Contains(lines[4], "message_2_assistant.png") || strings.Contains(lines[4], "duration") {
		t.Errorf("trailing repeat: %q", lines[4])
	}
}

func TestConcatListEmptyStream(t *testing.T) {
	got, missing := ConcatList(&timeline.Stream{}, "out", func(string) bool { return true })
	if got != "" || len(missing) != 0 {
		t.Errorf("empty stream list = %q, missing = %v", got, missing)
	}
}

func TestConcatListSkipsMissingImages(t *testing.T) {
	list, missing := ConcatList(muxStream(), "out", func(path string) bool {
		return !strings.Contains(path, "message_1_user.png")
	})

	if len(missing) != 1 || missing[0] != "message_1_user.png" {
		t.Fatalf("missing: %v", missing)
	}
	if strings.Contains(list, "message_1_user.png") {
		t.Errorf("skipped image still referenced:\n%s", list)
	}
	lines := strings.Split(strings.TrimRight(list, "\n"), "\n")
	// The surviving image plus its duration and the trailing repeat.
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), list)
	}
	if !strings.Contains(lines[0], "message_2_assistant.png") || lines[1] != "duration 5.000" {
		t.Errorf("surviving entry: %q, %q", lines[0], lines[1])
	}
}

func TestBuildAudioGraph(t *testing.T) {
	present := map[string]bool{
		"/tmp/seg_0_0.wav": true,
		"sfx/ding.mp3":     true,
	}
	g := BuildAudioGraph(muxStream(), "sfx", func(path string) bool { return present[path] })

	if len(g.Inputs) != 2 {
		t.Fatalf("inputs: %v", g.Inputs)
	}
	if g.Inputs[0] != "/tmp/seg_0_0.wav" || g.Inputs[1] != "sfx/ding.mp3" {
		t.Errorf("input order: %v", g.Inputs)
	}
	if len(g.Missing) != 1 || g.Missing[0] != "lost.mp3" {
		t.Errorf("missing: %v", g.Missing)
	}

	if !strings.Contains(g.Filter, "anullsrc=r=44100:cl=stereo:d=9.000[base]") {
		t.Errorf("no silent base in filter: %s", g.Filter)
	}
	// Narration at t=0, full volume; the ding at 5.5s, half volume.
	if !strings.Contains(g.Filter, "[1:a]volume=1.000,adelay=0|0") {
		t.Errorf("narration chain missing: %s", g.Filter)
	}
	if !strings.Contains(g.Filter, "[2:a]volume=0.500,adelay=5500|5500") {
		t.Errorf("sfx chain missing: %s", g.Filter)
	}
	if !strings.Contains(g.Filter, "amix=inputs=3:duration=first:dropout_transition=0:normalize=0[aout]") {
		t.Errorf("mix stage missing: %s", g.Filter)
	}
}

func TestBuildAudioGraphNothingPresent(t *testing.T) {
	g := BuildAudioGraph(muxStream(), "sfx", func(string) bool { return false })
	if g.Filter != "" {
		t.Errorf("filter should be empty when no audio exists: %s", g.Filter)
	}
	if len(g.Inputs) != 0 {
		t.Errorf("inputs: %v", g.Inputs)
	}
	if len(g.Missing) != 2 {
		t.Errorf("missing: %v", g.Missing)
	}
}

func TestBuildAudioGraphSilentStream(t *testing.T) {
	st := &timeline.Stream{
		Total: 3,
		Events: []timeline.Event{
			{Kind: timeline.KindDisplay, Start: 0, Duration: 3, Block: &layout.BlockLayout{Role: "user"}},
		},
	}
	g := BuildAudioGraph(st, "sfx", func(string) bool { return true })
	if g.Filter != "" || len(g.Inputs) != 0 || len(g.Missing) != 0 {
		t.Errorf("images-only stream must build no graph: %+v", g)
	}
}
