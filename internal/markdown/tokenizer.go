package markdown

import (
	"strings"
	"unicode"
)

// Tokenize converts raw message text into styled runs. The sequence is
// finite, source-ordered, and never fails: unmatched delimiters degrade
// to plain text, unterminated fences consume to the end of input. Empty
// input yields an empty sequence.
func Tokenize(text string) []StyledRun {
	if text == "" {
		return nil
	}

	var runs []StyledRun
	lines := strings.Split(text, "\n")
	prevInline := false
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "```"):
			lang := strings.TrimSpace(line[3:])
			j := i + 1
			for ; j < len(lines); j++ {
				if strings.HasPrefix(lines[j], "```") {
					break
				}
				runs = append(runs, StyledRun{Kind: KindCodeFence, Lang: lang, Text: lines[j]})
			}
			i = j
			prevInline = false

		case strings.HasPrefix(line, ">"):
			runs = append(runs, StyledRun{Kind: KindQuote, Text: strings.TrimPrefix(strings.TrimPrefix(line, ">"), " ")})
			prevInline = false

		case isListLine(line):
			rest := line[2:]
			switch {
			case hasCheckboxPrefix(rest, 'x') || hasCheckboxPrefix(rest, 'X'):
				runs = append(runs, StyledRun{Kind: KindCheckbox, Checked: true, Text: strings.TrimPrefix(rest[3:], " ")})
			case hasCheckboxPrefix(rest, ' '):
				runs = append(runs, StyledRun{Kind: KindCheckbox, Checked: false, Text: strings.TrimPrefix(rest[3:], " ")})
			default:
				runs = append(runs, StyledRun{Kind: KindListItem, Text: rest})
			}
			prevInline = false

		default:
			if prevInline {
				runs = append(runs, StyledRun{Kind: KindText, Style: StylePlain, Text: "\n"})
			}
			runs = append(runs, tokenizeInline(line)...)
			prevInline = true
		}
	}
	return mergePlain(runs)
}

func isListLine(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ")
}

// hasCheckboxPrefix matches "[x]" / "[ ]" at the start of a list item body.
func hasCheckboxPrefix(rest string, mark byte) bool {
	return len(rest) >= 3 && rest[0] == '[' && rest[1] == mark && rest[2] == ']'
}

// tokenizeInline scans one line for inline constructs. Priority follows
// first-match-wins with longest-match on delimiter runs: inline code,
// bold-italic, bold, italic, mention, channel.
func tokenizeInline(line string) []StyledRun {
	var runs []StyledRun
	var plain strings.Builder
	flush := func() {
		if plain.Len() > 0 {
			runs = append(runs, StyledRun{Kind: KindText, Style: StylePlain, Text: plain.String()})
			plain.Reset()
		}
	}

	rs := []rune(line)
	for i := 0; i < len(rs); {
		c := rs[i]
		switch {
		case c == '`':
			if j := indexRune(rs, '`', i+1); j > i {
				flush()
				runs = append(runs, StyledRun{Kind: KindText, Style: StyleCode, Text: string(rs[i+1 : j])})
				i = j + 1
				continue
			}
			plain.WriteRune(c)
			i++

		case c == '*' || c == '_':
			n := delimRunLen(rs, i, c)
			if n > 3 {
				n = 3
			}
			consumed := false
			for width := n; width >= 1 && !consumed; width-- {
				if j := indexDelim(rs, c, width, i+width); j > i+width {
					flush()
					runs = append(runs, StyledRun{
						Kind:  KindText,
						Style: delimStyle(width),
						Text:  string(rs[i+width : j]),
					})
					i = j + width
					consumed = true
				}
			}
			if !consumed {
				for k := 0; k < n; k++ {
					plain.WriteRune(c)
				}
				i += n
			}

		case c == '@' || c == '#':
			j := i + 1
			for j < len(rs) && isWordRune(rs[j]) {
				j++
			}
			if j > i+1 {
				flush()
				style := StyleMention
				if c == '#' {
					style = StyleChannel
				}
				runs = append(runs, StyledRun{Kind: KindText, Style: style, Text: string(rs[i:j])})
				i = j
				continue
			}
			plain.WriteRune(c)
			i++

		default:
			plain.WriteRune(c)
			i++
		}
	}
	flush()
	return runs
}

func delimStyle(width int) Style {
	switch width {
	case 3:
		return StyleBoldItalic
	case 2:
		return StyleBold
	default:
		return StyleItalic
	}
}

func delimRunLen(rs []rune, i int, c rune) int {
	n := 0
	for i+n < len(rs) && rs[i+n] == c {
		n++
	}
	return n
}

func indexRune(rs []rune, c rune, from int) int {
	for i := from; i < len(rs); i++ {
		if rs[i] == c {
			return i
		}
	}
	return -1
}

// indexDelim finds the next run of exactly width c runes at or after from.
func indexDelim(rs []rune, c rune, width, from int) int {
	for i := from; i+width <= len(rs); i++ {
		if rs[i] != c {
			continue
		}
		n := delimRunLen(rs, i, c)
		if n == width {
			return i
		}
		i += n - 1
	}
	return -1
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

// mergePlain collapses adjacent plain runs so the emitted sequence stays
// minimal and plain spans reconstruct the source losslessly.
func mergePlain(runs []StyledRun) []StyledRun {
	if len(runs) == 0 {
		return nil
	}
	out := runs[:0]
	for _, r := range runs {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if last.Kind == KindText && last.Style == StylePlain && r.Kind == KindText && r.Style == StylePlain {
				last.Text += r.Text
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
