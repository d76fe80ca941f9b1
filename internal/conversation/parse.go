package conversation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Wire types mirror the JSON document. Unknown fields are ignored so old
// tooling keeps accepting newer documents.
type wireDocument struct {
	Conversation []wireTurn `json:"conversation"`
}

type wireTurn struct {
	Role           string         `json:"role"`
	Timestamp      string         `json:"timestamp"`
	TypingDuration float64        `json:"typing_duration"`
	Duration       float64        `json:"duration"`
	Reactions      []wireReaction `json:"reactions"`
	Messages       []wireMessage  `json:"messages"`
	Events         []wireEvent    `json:"events"`
}

type wireEvent struct {
	Text      string          `json:"text"`
	Timestamp string          `json:"timestamp"`
	SFX       json.RawMessage `json:"sfx"`
}

type wireReaction struct {
	Emoji string          `json:"emoji"`
	Count int             `json:"count"`
	SFX   json.RawMessage `json:"sfx"`
}

type wireMessage struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	Duration  float64         `json:"duration"`
	Timestamp string          `json:"timestamp"`
	Edited    bool            `json:"edited"`
	ReplyTo   string          `json:"reply_to"`
	SFX       json.RawMessage `json:"sfx"`
}

type wireSFX struct {
	File   string  `json:"file"`
	Offset float64 `json:"offset"`
	Volume float64 `json:"volume"`
}

// sfxMarkerRe matches inline cues embedded in message text,
// e.g. [SFX:cough.wav,0.5,1.0].
var sfxMarkerRe = regexp.MustCompile(`\[SFX:([^\]]+)\]`)

// Load reads and validates a conversation document from disk.
func Load(path string) (*Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a conversation document. Any violation of
// the expected shape comes back as a *StructuralError.
func Parse(r io.Reader) (*Conversation, error) {
	var doc wireDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, &StructuralError{Turn: -1, Message: -1, Reason: fmt.Sprintf("document does not parse: %v", err)}
	}
	if len(doc.Conversation) == 0 {
		return nil, &StructuralError{Turn: -1, Message: -1, Reason: "empty conversation"}
	}

	conv := &Conversation{Turns: make([]Turn, 0, len(doc.Conversation))}
	for ti, wt := range doc.Conversation {
		if wt.Role == "" {
			return nil, &StructuralError{Turn: ti, Message: -1, Field: "role", Reason: "missing role"}
		}
		turn := Turn{
			Role:           wt.Role,
			Timestamp:      wt.Timestamp,
			TypingDuration: wt.TypingDuration,
			Duration:       wt.Duration,
		}
		if wt.TypingDuration < 0 {
			return nil, &StructuralError{Turn: ti, Message: -1, Field: "typing_duration", Reason: "must be >= 0"}
		}
		for _, wr := range wt.Reactions {
			turn.Reactions = append(turn.Reactions, Reaction{
				Emoji: wr.Emoji,
				Count: wr.Count,
				SFX:   parseSFXList(wr.SFX),
			})
		}
		if turn.IsSystem() {
			for _, we := range wt.Events {
				turn.Events = append(turn.Events, SystemEvent{
					Text:      we.Text,
					Timestamp: we.Timestamp,
					SFX:       parseSFXList(we.SFX),
				})
			}
			// Legacy shape: a system turn written as a single message list.
			for _, wm := range wt.Messages {
				turn.Events = append(turn.Events, SystemEvent{
					Text:      wm.Text,
					Timestamp: wm.Timestamp,
					SFX:       parseSFXList(wm.SFX),
				})
			}
			if len(turn.Events) == 0 {
				return nil, &StructuralError{Turn: ti, Message: -1, Field: "events", Reason: "system turn has no events"}
			}
		} else {
			if len(wt.Messages) == 0 {
				return nil, &StructuralError{Turn: ti, Message: -1, Field: "messages", Reason: "participant turn has no messages"}
			}
			for mi, wm := range wt.Messages {
				if wm.Duration < 0 {
					return nil, &StructuralError{Turn: ti, Message: mi, Field: "duration", Reason: "must be >= 0"}
				}
				text, markers := extractSFXMarkers(wm.Text)
				msg := Message{
					ID:        wm.ID,
					Text:      text,
					Duration:  wm.Duration,
					Timestamp: wm.Timestamp,
					Edited:    wm.Edited,
					ReplyTo:   wm.ReplyTo,
					SFX:       append(parseSFXList(wm.SFX), markers...),
				}
				turn.Messages = append(turn.Messages, msg)
			}
		}
		conv.Turns = append(conv.Turns, turn)
	}
	return conv, nil
}

// parseSFXList accepts the three historical shapes of the sfx field: a
// single bare name, a list of names, or a list of {file,offset,volume}
// objects. Bare names without an extension refer to mp3 files.
func parseSFXList(raw json.RawMessage) []SFXDeclaration {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []SFXDeclaration{normalizeSFX(wireSFX{File: single, Volume: 1.0})}
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		out := make([]SFXDeclaration, 0, len(names))
		for _, n := range names {
			out = append(out, normalizeSFX(wireSFX{File: n, Volume: 1.0}))
		}
		return out
	}
	var objs []wireSFX
	if err := json.Unmarshal(raw, &objs); err == nil {
		out := make([]SFXDeclaration, 0, len(objs))
		for _, o := range objs {
			if o.Volume == 0 {
				o.Volume = 1.0
			}
			out = append(out, normalizeSFX(o))
		}
		return out
	}
	return nil
}

func normalizeSFX(w wireSFX) SFXDeclaration {
	file := strings.TrimSpace(w.File)
	if file != "" && filepath.Ext(file) == "" {
		file += ".mp3"
	}
	vol := w.Volume
	if vol < 0 {
		vol = 0
	}
	if vol > 1 {
		vol = 1
	}
	return SFXDeclaration{File: file, Offset: w.Offset, Volume: vol}
}

// extractSFXMarkers strips inline [SFX:...] markers from text and turns
// each into a declaration. The proportion records how far through the
// cleaned text the marker sat, so narration-relative placement survives
// the strip.
func extractSFXMarkers(text string) (string, []SFXDeclaration) {
	matches := sfxMarkerRe.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text, nil
	}
	cleaned := sfxMarkerRe.ReplaceAllString(text, "")
	total := len([]rune(cleaned))

	var decls []SFXDeclaration
	for _, m := range matches {
		before := sfxMarkerRe.ReplaceAllString(text[:m[0]], "")
		proportion := 0.0
		if total > 0 {
			proportion = float64(len([]rune(before))) / float64(total)
		}
		params := strings.Split(text[m[2]:m[3]], ",")
		decl := SFXDeclaration{Volume: 1.0, Proportion: proportion}
		decl.File = strings.TrimSpace(params[0])
		if len(params) > 1 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(params[1]), 64); err == nil {
				decl.Offset = v
			}
		}
		if len(params) > 2 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(params[2]), 64); err == nil {
				decl.Volume = v
			}
		}
		decls = append(decls, normalizeDecl(decl))
	}
	return cleaned, decls
}

func normalizeDecl(d SFXDeclaration) SFXDeclaration {
	n := normalizeSFX(wireSFX{File: d.File, Offset: d.Offset, Volume: d.Volume})
	n.Proportion = d.Proportion
	return n
}
