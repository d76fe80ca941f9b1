package timeline

import (
	"math"
	"reflect"
	"testing"

	"github.com/chat2video/chat2video/internal/config"
	"github.com/chat2video/chat2video/internal/conversation"
	"github.com/chat2video/chat2video/internal/layout"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func testStyle(t *testing.T) *config.Style {
	t.Helper()
	s, err := config.ParseStyle([]byte(`{"default": {}, "user": {}, "assistant": {}}`))
	if err != nil {
		t.Fatalf("ParseStyle: %v", err)
	}
	return s
}

// stubLayouts fabricates one block per message and notice so scheduling
// tests never depend on font measurement.
func stubLayouts(conv *conversation.Conversation) []TurnLayouts {
	out := make([]TurnLayouts, len(conv.Turns))
	for ti := range conv.Turns {
		turn := &conv.Turns[ti]
		if turn.IsSystem() {
			for range turn.Events {
				out[ti].Notices = append(out[ti].Notices, &layout.BlockLayout{Role: conversation.RoleSystem, System: true})
			}
			continue
		}
		if turn.TypingDuration > 0 {
			out[ti].Typing = &layout.BlockLayout{Role: turn.Role, Typing: true}
		}
		for range turn.Messages {
			out[ti].Blocks = append(out[ti].Blocks, &layout.BlockLayout{Role: turn.Role})
		}
	}
	return out
}

func schedule(t *testing.T, conv *conversation.Conversation, mode Mode) *Stream {
	t.Helper()
	return NewScheduler(conv, testStyle(t), stubLayouts(conv), mode).Schedule()
}

func TestScheduleSystemThenMessage(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "system", Duration: 2, Events: []conversation.SystemEvent{{Text: "Alice joined"}}},
		{Role: "user", Messages: []conversation.Message{{Text: "hi", Duration: 3}}},
	}}
	st := schedule(t, conv, ModeImages)

	displays := st.Displays()
	if len(displays) != 2 {
		t.Fatalf("got %d display events, want 2", len(displays))
	}
	if !near(displays[0].Start, 0) || !near(displays[0].End(), 2) {
		t.Errorf("notice interval [%v, %v), want [0, 2)", displays[0].Start, displays[0].End())
	}
	if !near(displays[1].Start, 2) || !near(displays[1].End(), 5) {
		t.Errorf("message interval [%v, %v), want [2, 5)", displays[1].Start, displays[1].End())
	}
	if !near(st.Total, 5) {
		t.Errorf("total = %v, want 5", st.Total)
	}
}

func TestScheduleTypingIndicator(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "user", TypingDuration: 2, Messages: []conversation.Message{{Text: "hello", Duration: 3}}},
	}}
	st := schedule(t, conv, ModeImages)

	displays := st.Displays()
	if len(displays) != 2 {
		t.Fatalf("got %d display events, want 2", len(displays))
	}
	if !displays[0].Block.Typing {
		t.Error("first display event is not the typing indicator")
	}
	if displays[0].Message != -1 {
		t.Errorf("typing event message index = %d, want -1", displays[0].Message)
	}
	if !near(displays[0].End(), 2) || !near(displays[1].Start, 2) || !near(displays[1].End(), 5) {
		t.Errorf("intervals: typing [%v, %v), message [%v, %v)",
			displays[0].Start, displays[0].End(), displays[1].Start, displays[1].End())
	}
	if !near(st.Total, 5) {
		t.Errorf("total = %v, want 5", st.Total)
	}
}

func TestScheduleSFXOffsetWithinMessage(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "user", Messages: []conversation.Message{{Text: "lead-in", Duration: 10}}},
		{Role: "assistant", Messages: []conversation.Message{{
			Text:     "boom",
			Duration: 3,
			SFX:      []conversation.SFXDeclaration{{File: "boom.mp3", Offset: 1.0, Volume: 1}},
		}}},
	}}
	st := schedule(t, conv, ModeImages)

	cues := st.SFXCues()
	if len(cues) != 1 {
		t.Fatalf("got %d sfx cues, want 1", len(cues))
	}
	if !near(cues[0].Start, 11.0) {
		t.Errorf("sfx start = %v, want 11.0", cues[0].Start)
	}
}

func TestScheduleNegativeOffsetClampsToZero(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "user", Messages: []conversation.Message{{
			Text:     "first",
			Duration: 2,
			SFX:      []conversation.SFXDeclaration{{File: "whoosh.mp3", Offset: -5, Volume: 1}},
		}}},
	}}
	st := schedule(t, conv, ModeImages)

	cues := st.SFXCues()
	if len(cues) != 1 || !near(cues[0].Start, 0) {
		t.Fatalf("cue must clamp to stream start, got %+v", cues)
	}
}

func TestScheduleReactionSFXAtTurnEnd(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{
			Role:      "user",
			Reactions: []conversation.Reaction{{Emoji: "👍", Count: 1, SFX: []conversation.SFXDeclaration{{File: "pop.mp3", Volume: 1}}}},
			Messages: []conversation.Message{
				{Text: "one", Duration: 2},
				{Text: "two", Duration: 3},
			},
		},
	}}
	st := schedule(t, conv, ModeImages)

	cues := st.SFXCues()
	if len(cues) != 1 {
		t.Fatalf("got %d sfx cues, want 1", len(cues))
	}
	if !near(cues[0].Start, 5) {
		t.Errorf("reaction cue start = %v, want end of turn (5)", cues[0].Start)
	}
	if cues[0].Message != -1 {
		t.Errorf("reaction cue message index = %d, want -1", cues[0].Message)
	}
}

func TestScheduleSkipsFailedLayouts(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "user", Messages: []conversation.Message{
			{Text: "kept", Duration: 2},
			{Text: "broken", Duration: 3},
			{Text: "also kept", Duration: 4},
		}},
	}}
	layouts := stubLayouts(conv)
	layouts[0].Blocks[1] = nil

	st := NewScheduler(conv, testStyle(t), layouts, ModeImages).Schedule()
	displays := st.Displays()
	if len(displays) != 2 {
		t.Fatalf("got %d display events, want 2", len(displays))
	}
	if !near(displays[1].Start, 2) || !near(displays[1].End(), 6) {
		t.Errorf("surviving message interval [%v, %v), want [2, 6)", displays[1].Start, displays[1].End())
	}
	if !near(st.Total, 6) {
		t.Errorf("total = %v, want 6", st.Total)
	}
}

func TestScheduleSkipsFailedNoticeLayouts(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "system", Events: []conversation.SystemEvent{{Text: "broken"}, {Text: "kept"}}},
	}}
	layouts := stubLayouts(conv)
	layouts[0].Notices[0] = nil

	st := NewScheduler(conv, testStyle(t), layouts, ModeImages).Schedule()
	displays := st.Displays()
	if len(displays) != 1 {
		t.Fatalf("got %d display events, want 1", len(displays))
	}
	if displays[0].Block == nil {
		t.Fatal("nil block leaked into the display track")
	}
	if displays[0].Message != 1 || !near(displays[0].Start, 0) {
		t.Errorf("surviving notice: %+v", displays[0])
	}
	if !near(st.Total, DefaultSystemDuration) {
		t.Errorf("total = %v, want %v", st.Total, DefaultSystemDuration)
	}
}

func TestScheduleSkipsFailedTypingLayout(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "user", TypingDuration: 2, Messages: []conversation.Message{{Text: "hi", Duration: 3}}},
	}}
	layouts := stubLayouts(conv)
	layouts[0].Typing = nil

	st := NewScheduler(conv, testStyle(t), layouts, ModeImages).Schedule()
	displays := st.Displays()
	if len(displays) != 1 {
		t.Fatalf("got %d display events, want the message only", len(displays))
	}
	if displays[0].Block == nil || displays[0].Block.Typing {
		t.Errorf("surviving display: %+v", displays[0])
	}
	if !near(displays[0].Start, 0) || !near(st.Total, 3) {
		t.Errorf("start = %v, total = %v", displays[0].Start, st.Total)
	}
}

func TestScheduleDisplayTrackMonotonic(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "system", Events: []conversation.SystemEvent{{Text: "joined"}, {Text: "renamed"}}},
		{Role: "user", TypingDuration: 1, Messages: []conversation.Message{{Text: "a", Duration: 1}, {Text: "b", Duration: 2}}},
		{Role: "assistant", Messages: []conversation.Message{{Text: "c", Duration: 1.5}}},
	}}
	st := schedule(t, conv, ModeImages)

	displays := st.Displays()
	for i := 1; i < len(displays); i++ {
		if displays[i].Start+eps < displays[i-1].End() {
			t.Errorf("display %d starts at %v before previous end %v", i, displays[i].Start, displays[i-1].End())
		}
	}
	last := displays[len(displays)-1]
	if !near(st.Total, last.End()) {
		t.Errorf("total %v != last display end %v", st.Total, last.End())
	}
}

func TestScheduleSystemDurationDefaults(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "system", Events: []conversation.SystemEvent{{Text: "joined"}}},
	}}
	st := schedule(t, conv, ModeImages)
	if !near(st.Total, DefaultSystemDuration) {
		t.Errorf("total = %v, want default %v", st.Total, DefaultSystemDuration)
	}
}

func TestReconcileStretchesDisplayToClipDuration(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "user", Messages: []conversation.Message{{Text: "long narration", Duration: 2}}},
		{Role: "assistant", Messages: []conversation.Message{{Text: "next", Duration: 1}}},
	}}
	sched := NewScheduler(conv, testStyle(t), stubLayouts(conv), ModeAudio)

	provisional := sched.Schedule()
	if got := provisional.Displays()[1].Start; !near(got, 2) {
		t.Fatalf("provisional second start = %v, want 2", got)
	}
	if cues := provisional.AudioCues(); len(cues) != 2 || !near(cues[0].Duration, 2) {
		t.Fatalf("provisional audio cues: %+v", cues)
	}

	final := sched.Reconcile(ClipSet{
		{Turn: 0, Message: 0}: {Path: "seg_0_0.wav", Duration: 4},
		{Turn: 1, Message: 0}: {Path: "seg_1_0.wav", Duration: 0.8},
	})
	displays := final.Displays()
	if !near(displays[0].Duration, 4) {
		t.Errorf("resolved duration = %v, want max(2, 4) = 4", displays[0].Duration)
	}
	if !near(displays[1].Start, 4) {
		t.Errorf("second message start = %v, want 4 after the stretch", displays[1].Start)
	}
	// Declared duration still wins when the clip is shorter.
	if !near(displays[1].Duration, 1) {
		t.Errorf("short clip must not shrink the declared duration: %v", displays[1].Duration)
	}
	cues := final.AudioCues()
	if len(cues) != 2 || cues[0].Clip != "seg_0_0.wav" || !near(cues[0].Duration, 4) {
		t.Errorf("reconciled audio cues: %+v", cues)
	}
	if !near(final.Total, 5) {
		t.Errorf("total = %v, want 5", final.Total)
	}
}

func TestReconcileSynthesisFailureFallsBack(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "user", Messages: []conversation.Message{{Text: "failed", Duration: 3}}},
		{Role: "assistant", Messages: []conversation.Message{{Text: "fine", Duration: 1}}},
	}}
	sched := NewScheduler(conv, testStyle(t), stubLayouts(conv), ModeAudio)

	final := sched.Reconcile(ClipSet{
		{Turn: 1, Message: 0}: {Path: "seg_1_0.wav", Duration: 1.5},
	})

	displays := final.Displays()
	if !near(displays[0].Duration, 3) {
		t.Errorf("failed message keeps declared duration, got %v", displays[0].Duration)
	}
	cues := final.AudioCues()
	if len(cues) != 1 || cues[0].Turn != 1 {
		t.Fatalf("failed synthesis must emit no audio cue: %+v", cues)
	}
	if !near(final.Total, 3+1.5) {
		t.Errorf("total = %v, want 4.5", final.Total)
	}
}

func TestReconcilePreservesSFXRelativeOffset(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "user", Messages: []conversation.Message{{Text: "shifter", Duration: 2}}},
		{Role: "assistant", Messages: []conversation.Message{{
			Text:     "owner",
			Duration: 3,
			SFX:      []conversation.SFXDeclaration{{File: "ding.mp3", Offset: 0.5, Volume: 1}},
		}}},
	}}
	sched := NewScheduler(conv, testStyle(t), stubLayouts(conv), ModeAudio)

	final := sched.Reconcile(ClipSet{
		{Turn: 0, Message: 0}: {Path: "a.wav", Duration: 6},
		{Turn: 1, Message: 0}: {Path: "b.wav", Duration: 3},
	})

	owner := final.Displays()[1]
	cue := final.SFXCues()[0]
	if !near(owner.Start, 6) {
		t.Fatalf("owner start = %v, want 6", owner.Start)
	}
	if !near(cue.Start-owner.Start, 0.5) {
		t.Errorf("cue offset from owner = %v, want 0.5", cue.Start-owner.Start)
	}
}

func TestScheduleProportionalSFXPlacement(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "user", Messages: []conversation.Message{{
			Text:     "marker mid message",
			Duration: 2,
			SFX:      []conversation.SFXDeclaration{{File: "mid.mp3", Proportion: 0.5, Volume: 1}},
		}}},
	}}
	sched := NewScheduler(conv, testStyle(t), stubLayouts(conv), ModeAudio)

	// Before reconciliation no clip exists, so the proportion contributes
	// nothing and the cue sits at the owner's start.
	if cue := sched.Schedule().SFXCues()[0]; !near(cue.Start, 0) {
		t.Errorf("provisional cue start = %v, want 0", cue.Start)
	}

	final := sched.Reconcile(ClipSet{{Turn: 0, Message: 0}: {Path: "a.wav", Duration: 8}})
	if cue := final.SFXCues()[0]; !near(cue.Start, 4) {
		t.Errorf("reconciled cue start = %v, want halfway through the 8s clip", cue.Start)
	}
}

func TestSFXCuesStableTieBreak(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "user", Messages: []conversation.Message{{
			Text:     "two cues, one instant",
			Duration: 2,
			SFX: []conversation.SFXDeclaration{
				{File: "first.mp3", Offset: 1, Volume: 1},
				{File: "second.mp3", Offset: 1, Volume: 1},
			},
		}}},
	}}
	st := schedule(t, conv, ModeImages)

	cues := st.SFXCues()
	if len(cues) != 2 {
		t.Fatalf("got %d cues", len(cues))
	}
	if cues[0].File != "first.mp3" || cues[1].File != "second.mp3" {
		t.Errorf("tie must keep declaration order: %s, %s", cues[0].File, cues[1].File)
	}
}

func TestScheduleDeterministic(t *testing.T) {
	conv := &conversation.Conversation{Turns: []conversation.Turn{
		{Role: "system", Events: []conversation.SystemEvent{{Text: "joined", SFX: []conversation.SFXDeclaration{{File: "join.mp3", Volume: 0.5}}}}},
		{Role: "user", TypingDuration: 1, Messages: []conversation.Message{
			{Text: "a", Duration: 1, SFX: []conversation.SFXDeclaration{{File: "a.mp3", Offset: 0.25, Volume: 1}}},
			{Text: "b", Duration: 2},
		}},
	}}
	sched := NewScheduler(conv, testStyle(t), stubLayouts(conv), ModeImages)

	a := sched.Schedule()
	b := sched.Schedule()
	if !reflect.DeepEqual(a, b) {
		t.Error("repeated scheduling of identical input differs")
	}
}
