package layout

import (
	"strings"

	"github.com/chat2video/chat2video/internal/markdown"
)

// wrap greedily packs styled runs into lines no wider than width. Runs
// are never split across lines unless a single token alone exceeds the
// width, in which case it is hard-split at a rune boundary. Block-level
// runs always occupy whole lines.
func wrap(runs []markdown.StyledRun, m Measurer, width int) ([]Line, error) {
	var lines []Line
	var cur Line

	flush := func() error {
		if err := trimLineEnd(&cur, m); err != nil {
			return err
		}
		lines = append(lines, cur)
		cur = Line{}
		return nil
	}

	for _, run := range runs {
		if run.Kind != markdown.KindText {
			if len(cur.Fragments) > 0 {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			blockLines, err := layoutBlockRun(run, m, width)
			if err != nil {
				return nil, err
			}
			lines = append(lines, blockLines...)
			continue
		}

		for _, token := range splitTokens(run.Text) {
			if token == "\n" {
				if err := flush(); err != nil {
					return nil, err
				}
				continue
			}
			w, err := m.TextWidth(run.Style, token)
			if err != nil {
				return nil, err
			}
			if cur.Width+w > width && len(cur.Fragments) > 0 {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			if w > width {
				chunks, widths, err := hardSplit(run.Style, token, m, width)
				if err != nil {
					return nil, err
				}
				for i, chunk := range chunks {
					appendFragment(&cur, run, chunk, widths[i])
					if i < len(chunks)-1 {
						if err := flush(); err != nil {
							return nil, err
						}
					}
				}
				continue
			}
			appendFragment(&cur, run, token, w)
		}
	}
	if len(cur.Fragments) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

// layoutBlockRun places a whole-line construct, hard-splitting when the
// row alone is wider than the block.
func layoutBlockRun(run markdown.StyledRun, m Measurer, width int) ([]Line, error) {
	style := markdown.StylePlain
	if run.Kind == markdown.KindCodeFence {
		style = markdown.StyleCode
	}
	w, err := m.TextWidth(style, run.Text)
	if err != nil {
		return nil, err
	}
	if w <= width {
		frag := Fragment{Run: run, Width: w}
		return []Line{{Fragments: []Fragment{frag}, Width: w}}, nil
	}
	chunks, widths, err := hardSplit(style, run.Text, m, width)
	if err != nil {
		return nil, err
	}
	out := make([]Line, 0, len(chunks))
	for i, chunk := range chunks {
		r := run
		r.Text = chunk
		out = append(out, Line{Fragments: []Fragment{{Run: r, Width: widths[i]}}, Width: widths[i]})
	}
	return out, nil
}

// appendFragment adds token to the current line, merging into the last
// fragment when the style continues.
func appendFragment(cur *Line, run markdown.StyledRun, token string, w int) {
	if n := len(cur.Fragments); n > 0 {
		last := &cur.Fragments[n-1]
		if last.Run.Kind == run.Kind && last.Run.Style == run.Style {
			last.Run.Text += token
			last.Width += w
			cur.Width += w
			return
		}
	}
	r := run
	r.Text = token
	cur.Fragments = append(cur.Fragments, Fragment{Run: r, Width: w})
	cur.Width += w
}

// trimLineEnd drops trailing spaces from a line so wrap-induced breaks
// never count invisible width.
func trimLineEnd(l *Line, m Measurer) error {
	for len(l.Fragments) > 0 {
		last := &l.Fragments[len(l.Fragments)-1]
		trimmed := strings.TrimRight(last.Run.Text, " ")
		if trimmed == last.Run.Text {
			return nil
		}
		l.Width -= last.Width
		if trimmed == "" {
			l.Fragments = l.Fragments[:len(l.Fragments)-1]
			continue
		}
		w, err := m.TextWidth(last.Run.Style, trimmed)
		if err != nil {
			return err
		}
		last.Run.Text = trimmed
		last.Width = w
		l.Width += w
		return nil
	}
	return nil
}

// splitTokens cuts text into wrappable tokens: words carry their trailing
// spaces, newlines become forced-break tokens.
func splitTokens(text string) []string {
	var tokens []string
	var b strings.Builder
	inSpace := false
	for _, r := range text {
		switch {
		case r == '\n':
			if b.Len() > 0 {
				tokens = append(tokens, b.String())
				b.Reset()
			}
			tokens = append(tokens, "\n")
			inSpace = false
		case r == ' ':
			b.WriteRune(r)
			inSpace = true
		default:
			if inSpace {
				tokens = append(tokens, b.String())
				b.Reset()
				inSpace = false
			}
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

// hardSplit cuts a token into rune-boundary chunks that each fit width.
// Every chunk takes at least one rune so the loop always advances.
func hardSplit(style markdown.Style, token string, m Measurer, width int) ([]string, []int, error) {
	var chunks []string
	var widths []int
	rest := []rune(token)
	for len(rest) > 0 {
		n := 1
		w, err := m.TextWidth(style, string(rest[:n]))
		if err != nil {
			return nil, nil, err
		}
		for n < len(rest) {
			next, err := m.TextWidth(style, string(rest[:n+1]))
			if err != nil {
				return nil, nil, err
			}
			if next > width {
				break
			}
			n++
			w = next
		}
		chunks = append(chunks, string(rest[:n]))
		widths = append(widths, w)
		rest = rest[n:]
	}
	return chunks, widths, nil
}
