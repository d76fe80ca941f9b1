package timeline

import (
	"sort"

	"github.com/chat2video/chat2video/internal/layout"
)

// Mode selects the batch flavor: silent image sequence or narrated video.
type Mode int

const (
	ModeImages Mode = iota
	ModeAudio
)

func (m Mode) String() string {
	if m == ModeAudio {
		return "images+audio"
	}
	return "images-only"
}

// Kind discriminates the event union. The set is closed; consumers switch
// exhaustively over it.
type Kind string

const (
	KindDisplay Kind = "display"
	KindAudio   Kind = "audio"
	KindSFX     Kind = "sfx"
)

// Event is one scheduled occurrence. Exactly one payload group is set,
// selected by Kind: Block for displays, Text/Voice/Clip for audio cues,
// File/Volume for sound effects.
type Event struct {
	Kind     Kind
	Start    float64
	Duration float64
	Turn     int
	Message  int // event index for system turns, -1 for turn-level cues

	Block *layout.BlockLayout

	Text  string
	Voice string
	Clip  string

	File   string
	Volume float64
}

// End is the exclusive end of the event's interval.
func (e *Event) End() float64 { return e.Start + e.Duration }

// Stream is the finalized event list for one run. Events appear in
// emission order: display and audio cues are monotonic by construction,
// SFX cues are monotonic within SFXCues().
type Stream struct {
	Mode   Mode
	Events []Event
	Total  float64
}

// Displays returns the display track in schedule order.
func (s *Stream) Displays() []Event {
	return s.filter(KindDisplay)
}

// AudioCues returns the narration track in schedule order.
func (s *Stream) AudioCues() []Event {
	return s.filter(KindAudio)
}

// SFXCues returns the sound-effect track sorted by start time. The sort
// is stable, so cues resolving to the same instant keep declaration
// order within a turn and turn order across turns.
func (s *Stream) SFXCues() []Event {
	cues := s.filter(KindSFX)
	sort.SliceStable(cues, func(i, j int) bool {
		return cues[i].Start < cues[j].Start
	})
	return cues
}

func (s *Stream) filter(kind Kind) []Event {
	var out []Event
	for _, e := range s.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
