package timeline

import (
	"github.com/chat2video/chat2video/internal/config"
	"github.com/chat2video/chat2video/internal/conversation"
	"github.com/chat2video/chat2video/internal/layout"
)

// DefaultSystemDuration is how long a join/leave notice stays on screen
// when the turn does not declare its own duration.
const DefaultSystemDuration = 2.0

// MessageKey addresses one message (or system event) inside the
// conversation by turn and position.
type MessageKey struct {
	Turn    int
	Message int
}

// ClipInfo is a synthesized narration clip with its true duration.
type ClipInfo struct {
	Path     string
	Duration float64
}

// ClipSet maps messages to their synthesis results. Messages without an
// entry failed synthesis (or never needed it) and keep their declared
// duration.
type ClipSet map[MessageKey]ClipInfo

// TurnLayouts carries the precomputed geometry for one turn. A nil entry
// (message block, notice, or typing indicator) marks a layout that
// failed; the scheduler skips it without disturbing the rest of the
// timeline.
type TurnLayouts struct {
	Typing  *layout.BlockLayout
	Blocks  []*layout.BlockLayout
	Notices []*layout.BlockLayout
}

// Scheduler walks the conversation in turn order and emits the event
// stream. It is deterministic and single-threaded; the cursor is its
// only mutable state and only ever advances.
type Scheduler struct {
	conv    *conversation.Conversation
	style   *config.Style
	layouts []TurnLayouts
	mode    Mode
}

func NewScheduler(conv *conversation.Conversation, style *config.Style, layouts []TurnLayouts, mode Mode) *Scheduler {
	return &Scheduler{conv: conv, style: style, layouts: layouts, mode: mode}
}

// Schedule runs the first pass. In audio mode every message gets a
// provisional audio cue whose duration is the declared one; Reconcile
// replaces those estimates once synthesis has finished.
func (s *Scheduler) Schedule() *Stream {
	return s.walk(nil)
}

// Reconcile runs the second pass with true clip durations. Start times
// are recomputed top to bottom; each SFX cue keeps its declared offset
// relative to its owning event, so relative placement survives any shift.
// It must only be called once every message's synthesis outcome is known.
func (s *Scheduler) Reconcile(clips ClipSet) *Stream {
	if clips == nil {
		clips = ClipSet{}
	}
	return s.walk(clips)
}

// walk is the single cursor pass shared by both scheduling phases.
// clips == nil means the provisional pass.
func (s *Scheduler) walk(clips ClipSet) *Stream {
	st := &Stream{Mode: s.mode}
	cursor := 0.0

	for ti := range s.conv.Turns {
		turn := &s.conv.Turns[ti]
		if turn.IsSystem() {
			cursor = s.walkSystemTurn(st, ti, cursor)
			continue
		}

		if turn.TypingDuration > 0 && s.layouts[ti].Typing != nil {
			st.Events = append(st.Events, Event{
				Kind:     KindDisplay,
				Start:    cursor,
				Duration: turn.TypingDuration,
				Turn:     ti,
				Message:  -1,
				Block:    s.layouts[ti].Typing,
			})
			cursor += turn.TypingDuration
		}

		for mi := range turn.Messages {
			block := s.layouts[ti].Blocks[mi]
			if block == nil {
				continue // layout failed, message dropped from the schedule
			}
			msg := &turn.Messages[mi]
			clip, synthesized := ClipInfo{}, false
			if clips != nil {
				clip, synthesized = clips[MessageKey{Turn: ti, Message: mi}]
			}

			resolved := msg.Duration
			if s.mode == ModeAudio && synthesized && clip.Duration > resolved {
				resolved = clip.Duration
			}

			st.Events = append(st.Events, Event{
				Kind:     KindDisplay,
				Start:    cursor,
				Duration: resolved,
				Turn:     ti,
				Message:  mi,
				Block:    block,
			})

			for _, decl := range msg.SFX {
				s.emitSFX(st, ti, mi, cursor, clip.Duration, decl)
			}

			if s.mode == ModeAudio {
				switch {
				case synthesized:
					st.Events = append(st.Events, Event{
						Kind:     KindAudio,
						Start:    cursor,
						Duration: clip.Duration,
						Turn:     ti,
						Message:  mi,
						Text:     msg.Text,
						Voice:    s.style.Voice(turn.Role),
						Clip:     clip.Path,
					})
				case clips == nil:
					// Provisional estimate, corrected by Reconcile.
					st.Events = append(st.Events, Event{
						Kind:     KindAudio,
						Start:    cursor,
						Duration: msg.Duration,
						Turn:     ti,
						Message:  mi,
						Text:     msg.Text,
						Voice:    s.style.Voice(turn.Role),
					})
				}
				// Synthesis failure: no audio cue, display keeps the
				// declared duration.
			}

			cursor += resolved
		}

		// Reaction cues land at the end of the owning message's interval:
		// a reaction responds to something already shown.
		for _, reaction := range turn.Reactions {
			for _, decl := range reaction.SFX {
				s.emitSFX(st, ti, -1, cursor, 0, decl)
			}
		}
	}

	st.Total = cursor
	return st
}

func (s *Scheduler) walkSystemTurn(st *Stream, ti int, cursor float64) float64 {
	turn := &s.conv.Turns[ti]
	dur := turn.Duration
	if dur <= 0 {
		dur = DefaultSystemDuration
	}
	for ei := range turn.Events {
		if s.layouts[ti].Notices[ei] == nil {
			continue // layout failed, notice dropped from the schedule
		}
		st.Events = append(st.Events, Event{
			Kind:     KindDisplay,
			Start:    cursor,
			Duration: dur,
			Turn:     ti,
			Message:  ei,
			Block:    s.layouts[ti].Notices[ei],
		})
		for _, decl := range turn.Events[ei].SFX {
			s.emitSFX(st, ti, ei, cursor, 0, decl)
		}
		cursor += dur
	}
	return cursor
}

// emitSFX places one cue at owner start + proportional narration offset +
// declared offset, clamped to the stream start.
func (s *Scheduler) emitSFX(st *Stream, ti, mi int, ownerStart, clipDuration float64, decl conversation.SFXDeclaration) {
	start := ownerStart + decl.Proportion*clipDuration + decl.Offset
	if start < 0 {
		start = 0
	}
	st.Events = append(st.Events, Event{
		Kind:    KindSFX,
		Start:   start,
		Turn:    ti,
		Message: mi,
		File:    decl.File,
		Volume:  decl.Volume,
	})
}
