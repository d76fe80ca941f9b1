package markdown

// Style identifies the inline styling of a text run.
type Style int

const (
	StylePlain Style = iota
	StyleBold
	StyleItalic
	StyleBoldItalic
	StyleCode
	StyleMention
	StyleChannel
)

func (s Style) String() string {
	switch s {
	case StyleBold:
		return "bold"
	case StyleItalic:
		return "italic"
	case StyleBoldItalic:
		return "bold-italic"
	case StyleCode:
		return "code"
	case StyleMention:
		return "mention"
	case StyleChannel:
		return "channel"
	default:
		return "plain"
	}
}

// Kind identifies block-level constructs. Block runs consume whole lines;
// KindText runs carry the inline flow.
type Kind int

const (
	KindText Kind = iota
	KindQuote
	KindListItem
	KindCheckbox
	KindCodeFence
)

func (k Kind) String() string {
	switch k {
	case KindQuote:
		return "quote"
	case KindListItem:
		return "list-item"
	case KindCheckbox:
		return "checkbox"
	case KindCodeFence:
		return "code-fence"
	default:
		return "text"
	}
}

// StyledRun is a contiguous span sharing one style or one block kind.
// For KindText runs, Text is the span with delimiters stripped; mention
// and channel runs keep their @/# prefix because it is displayed.
type StyledRun struct {
	Kind    Kind
	Style   Style
	Text    string
	Checked bool   // KindCheckbox
	Lang    string // KindCodeFence
}
