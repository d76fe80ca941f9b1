package layout

import (
	"fmt"

	"github.com/chat2video/chat2video/internal/config"
	"github.com/chat2video/chat2video/internal/conversation"
	"github.com/chat2video/chat2video/internal/markdown"
)

const (
	// ReplyIndent is the horizontal offset reserved for replied-to messages.
	ReplyIndent = 24
	// headerGap sits between the username header and the first text line.
	headerGap = 6
	// reactionSlot is the fixed width of one reaction slot, reactionGap
	// the spacing between slots, reactionRowHeight the row they occupy.
	reactionSlot      = 28
	reactionGap       = 6
	reactionRowHeight = 32
)

// editedMarker trails the final line of messages flagged as edited.
const editedMarker = " (edited)"

// Point is a pixel anchor inside a block.
type Point struct {
	X int
	Y int
}

// Fragment is one styled run placed on a line, with its measured width.
type Fragment struct {
	Run   markdown.StyledRun
	Width int
}

// Line is a wrapped row of fragments.
type Line struct {
	Fragments []Fragment
	Width     int
}

// BlockLayout is the computed geometry for one rendered block. It is
// immutable once returned; rendering and scheduling read it as-is.
type BlockLayout struct {
	Role            string
	Lines           []Line
	Width           int
	Height          int
	Indent          int
	Grouped         bool
	Avatar          *Point
	Timestamp       Point
	Reactions       []Point
	UnresolvedReply bool
	Typing          bool
	System          bool
}

// Engine computes block layouts. It holds only immutable style state, so
// layout stays a pure function of message content and configuration.
type Engine struct {
	style     *config.Style
	measurers map[string]Measurer
}

func NewEngine(style *config.Style) *Engine {
	return &Engine{style: style, measurers: make(map[string]Measurer)}
}

func (e *Engine) measurer(role string) (Measurer, config.Profile, error) {
	p := e.style.RoleOrDefault(role)
	if m, ok := e.measurers[role]; ok {
		return m, p, nil
	}
	m, err := NewFontMeasurer(p)
	if err != nil {
		return nil, p, err
	}
	e.measurers[role] = m
	return m, p, nil
}

// LayoutMessage computes the layout for one message of a participant
// turn. grouped marks a continuation message that shares the header and
// avatar of the previous block in the same turn.
func (e *Engine) LayoutMessage(conv *conversation.Conversation, ti, mi int, grouped bool) (*BlockLayout, error) {
	turn := &conv.Turns[ti]
	msg := &turn.Messages[mi]
	m, p, err := e.measurer(turn.Role)
	if err != nil {
		return nil, err
	}

	indent := 0
	unresolved := false
	runs := markdown.Tokenize(msg.Text)
	if msg.ReplyTo != "" {
		indent = ReplyIndent
		author, ok := conv.ResolveReply(ti, mi, msg.ReplyTo)
		if !ok {
			author = msg.ReplyTo
			unresolved = true
		}
		header := markdown.StyledRun{Kind: markdown.KindText, Style: markdown.StyleItalic, Text: "Replying to @" + author}
		runs = append([]markdown.StyledRun{header, {Kind: markdown.KindText, Style: markdown.StylePlain, Text: "\n"}}, runs...)
	}

	textStart := p.HorizontalPadding + p.ProfileSize + p.ProfileGap
	content := p.BlockWidth - textStart - p.HorizontalPadding - indent
	if content < 1 {
		content = 1
	}

	lines, err := wrap(runs, m, content)
	if err != nil {
		return nil, err
	}
	if msg.Edited {
		if lines, err = appendEdited(lines, m, content); err != nil {
			return nil, err
		}
	}

	bl := &BlockLayout{
		Role:            turn.Role,
		Lines:           lines,
		Width:           p.BlockWidth,
		Indent:          indent,
		Grouped:         grouped,
		Timestamp:       Point{X: p.BlockWidth - p.HorizontalPadding, Y: p.VerticalPadding},
		UnresolvedReply: unresolved,
	}

	headerH := 0
	if !grouped {
		headerH = m.LineHeight() + headerGap
		bl.Avatar = &Point{X: p.HorizontalPadding, Y: p.VerticalPadding}
	}
	textH := len(lines) * (m.LineHeight() + p.LineSpacing)

	reactionH := 0
	// Reactions belong to the turn; they anchor below the last message.
	if mi == len(turn.Messages)-1 && len(turn.Reactions) > 0 {
		reactionH = reactionRowHeight
		y := p.VerticalPadding + headerH + textH + reactionGap
		for i := range turn.Reactions {
			bl.Reactions = append(bl.Reactions, Point{
				X: textStart + indent + i*(reactionSlot+reactionGap),
				Y: y,
			})
		}
	}

	bl.Height = textH + headerH + reactionH + 2*p.VerticalPadding
	if !grouped && bl.Height < p.ProfileSize+2*p.VerticalPadding {
		bl.Height = p.ProfileSize + 2*p.VerticalPadding
	}
	return bl, nil
}

// LayoutSystemEvent lays out a join/leave notice using the join_leave
// profile when configured, the default otherwise.
func (e *Engine) LayoutSystemEvent(ev *conversation.SystemEvent) (*BlockLayout, error) {
	m, p, err := e.measurer("join_leave")
	if err != nil {
		return nil, err
	}
	content := p.BlockWidth - 2*p.HorizontalPadding
	if content < 1 {
		content = 1
	}
	lines, err := wrap([]markdown.StyledRun{{Kind: markdown.KindText, Style: markdown.StyleItalic, Text: ev.Text}}, m, content)
	if err != nil {
		return nil, err
	}
	return &BlockLayout{
		Role:      conversation.RoleSystem,
		System:    true,
		Lines:     lines,
		Width:     p.BlockWidth,
		Height:    len(lines)*(m.LineHeight()+p.LineSpacing) + 2*p.VerticalPadding,
		Timestamp: Point{X: p.BlockWidth - p.HorizontalPadding, Y: p.VerticalPadding},
	}, nil
}

// LayoutTyping builds the typing-indicator block for a role.
func (e *Engine) LayoutTyping(role string) (*BlockLayout, error) {
	m, p, err := e.measurer(role)
	if err != nil {
		return nil, err
	}
	run := markdown.StyledRun{Kind: markdown.KindText, Style: markdown.StyleItalic, Text: fmt.Sprintf("%s is typing…", p.ProfileName)}
	w, err := m.TextWidth(run.Style, run.Text)
	if err != nil {
		return nil, err
	}
	return &BlockLayout{
		Role:   role,
		Typing: true,
		Lines:  []Line{{Fragments: []Fragment{{Run: run, Width: w}}, Width: w}},
		Width:  p.BlockWidth,
		Height: m.LineHeight() + p.LineSpacing + 2*p.VerticalPadding,
		Avatar: &Point{X: p.HorizontalPadding, Y: p.VerticalPadding},
	}, nil
}

// appendEdited attaches the edited marker to the final wrapped line, or
// wraps it to its own line when it would overflow.
func appendEdited(lines []Line, m Measurer, width int) ([]Line, error) {
	run := markdown.StyledRun{Kind: markdown.KindText, Style: markdown.StyleItalic, Text: editedMarker}
	w, err := m.TextWidth(run.Style, run.Text)
	if err != nil {
		return nil, err
	}
	frag := Fragment{Run: run, Width: w}
	if n := len(lines); n > 0 && lines[n-1].Width+w <= width {
		lines[n-1].Fragments = append(lines[n-1].Fragments, frag)
		lines[n-1].Width += w
		return lines, nil
	}
	return append(lines, Line{Fragments: []Fragment{frag}, Width: w}), nil
}
