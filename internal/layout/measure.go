package layout

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"

	"github.com/chat2video/chat2video/internal/config"
	"github.com/chat2video/chat2video/internal/markdown"
)

// Measurer maps styled text to a pixel width. Implementations must be
// deterministic: the same style and text always measure the same.
type Measurer interface {
	TextWidth(style markdown.Style, text string) (int, error)
	LineHeight() int
}

// MeasurementError wraps a failed style/font lookup. It is fatal for the
// owning message's layout only; the batch continues without it.
type MeasurementError struct {
	Style markdown.Style
	Err   error
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("measure %s text: %v", e.Style, e.Err)
}

func (e *MeasurementError) Unwrap() error { return e.Err }

// FontMeasurer measures runs against the profile's font faces. Bold,
// italic and bold-italic variants fall back to the regular face when the
// profile does not name them; code, mention and channel runs use the
// regular face as well.
type FontMeasurer struct {
	regular    font.Face
	bold       font.Face
	italic     font.Face
	boldItalic font.Face
	lineHeight int
}

// NewFontMeasurer loads the faces named by the profile. A profile with no
// font_path measures against the fixed 7x13 face, which keeps layout
// deterministic without any font files on disk.
func NewFontMeasurer(p config.Profile) (*FontMeasurer, error) {
	if p.FontPath == "" {
		face := basicfont.Face7x13
		return &FontMeasurer{
			regular:    face,
			bold:       face,
			italic:     face,
			boldItalic: face,
			lineHeight: face.Metrics().Height.Ceil(),
		}, nil
	}

	regular, err := loadFace(p.FontPath, p.FontSize)
	if err != nil {
		return nil, &MeasurementError{Style: markdown.StylePlain, Err: err}
	}
	m := &FontMeasurer{regular: regular, bold: regular, italic: regular, boldItalic: regular}
	if p.FontPathBold != "" {
		if m.bold, err = loadFace(p.FontPathBold, p.FontSize); err != nil {
			return nil, &MeasurementError{Style: markdown.StyleBold, Err: err}
		}
	}
	if p.FontPathItalic != "" {
		if m.italic, err = loadFace(p.FontPathItalic, p.FontSize); err != nil {
			return nil, &MeasurementError{Style: markdown.StyleItalic, Err: err}
		}
	}
	if p.FontPathBoldItalic != "" {
		if m.boldItalic, err = loadFace(p.FontPathBoldItalic, p.FontSize); err != nil {
			return nil, &MeasurementError{Style: markdown.StyleBoldItalic, Err: err}
		}
	}
	m.lineHeight = regular.Metrics().Height.Ceil()
	return m, nil
}

func loadFace(path string, size int) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ft, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	if size <= 0 {
		size = config.DefaultProfile().FontSize
	}
	return opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func (m *FontMeasurer) face(style markdown.Style) font.Face {
	switch style {
	case markdown.StyleBold:
		return m.bold
	case markdown.StyleItalic:
		return m.italic
	case markdown.StyleBoldItalic:
		return m.boldItalic
	default:
		return m.regular
	}
}

func (m *FontMeasurer) TextWidth(style markdown.Style, text string) (int, error) {
	face := m.face(style)
	if face == nil {
		return 0, &MeasurementError{Style: style, Err: fmt.Errorf("no face loaded")}
	}
	return font.MeasureString(face, text).Ceil(), nil
}

func (m *FontMeasurer) LineHeight() int { return m.lineHeight }
