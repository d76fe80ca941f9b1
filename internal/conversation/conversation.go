package conversation

// Conversation is the fully parsed input document. It is loaded once and
// never mutated afterwards; everything downstream reads it by index.
type Conversation struct {
	Turns []Turn
}

// Turn is one contiguous contribution. Role "system" carries Events,
// every other role carries Messages.
type Turn struct {
	Role           string
	Timestamp      string
	TypingDuration float64
	Duration       float64 // system notice duration, 0 means default
	Reactions      []Reaction
	Messages       []Message
	Events         []SystemEvent
}

// IsSystem reports whether the turn holds join/leave notices instead of
// participant messages.
func (t *Turn) IsSystem() bool {
	return t.Role == RoleSystem
}

const RoleSystem = "system"

// SystemEvent is a single join/leave notice inside a system turn.
type SystemEvent struct {
	Text      string
	Timestamp string
	SFX       []SFXDeclaration
}

// Reaction is an emoji reaction attached to a turn. Two declarations of
// the same emoji stay two separate entries.
type Reaction struct {
	Emoji string
	Count int
	SFX   []SFXDeclaration
}

// Message is one participant message. Text is stored with inline SFX
// markers already stripped out into SFX.
type Message struct {
	ID        string
	Text      string
	Duration  float64
	Timestamp string
	Edited    bool
	ReplyTo   string
	SFX       []SFXDeclaration
}

// SFXDeclaration is a discrete sound cue. Offset is relative to the
// owning event's start and may be negative. Proportion positions the cue
// inside the synthesized narration (0 for cues declared as JSON objects;
// markers extracted from text keep the character proportion at which they
// appeared, matching how narration-relative cues were placed upstream).
type SFXDeclaration struct {
	File       string
	Offset     float64
	Volume     float64
	Proportion float64
}

// ResolveReply resolves a reply_to reference against everything that
// precedes the given message: message IDs first, then turn roles. The
// second return is false when nothing matches and the raw reference
// should be rendered as-is.
func (c *Conversation) ResolveReply(turnIdx, msgIdx int, ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	for ti := turnIdx; ti >= 0; ti-- {
		turn := &c.Turns[ti]
		if turn.IsSystem() {
			continue
		}
		last := len(turn.Messages) - 1
		if ti == turnIdx {
			last = msgIdx - 1
		}
		for mi := last; mi >= 0; mi-- {
			if turn.Messages[mi].ID != "" && turn.Messages[mi].ID == ref {
				return turn.Role, true
			}
		}
	}
	for ti := turnIdx; ti >= 0; ti-- {
		turn := &c.Turns[ti]
		if !turn.IsSystem() && turn.Role == ref {
			if ti == turnIdx && msgIdx == 0 && len(turn.Messages) > 0 {
				continue
			}
			return turn.Role, true
		}
	}
	return "", false
}

// MessageCount returns the total number of participant messages, in the
// order they appear across all turns.
func (c *Conversation) MessageCount() int {
	n := 0
	for i := range c.Turns {
		if !c.Turns[i].IsSystem() {
			n += len(c.Turns[i].Messages)
		}
	}
	return n
}
