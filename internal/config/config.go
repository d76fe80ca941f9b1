package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Profile holds the styling parameters for one role. Every field maps to
// a key of the style JSON document; role profiles merge onto "default"
// key-by-key, the role-specific key winning.
type Profile struct {
	BackgroundColor    string            `json:"background_color"`
	BubbleColor        string            `json:"bubble_color"`
	TextColor          string            `json:"text_color"`
	UsernameColor      string            `json:"username_color"`
	FontPath           string            `json:"font_path"`
	FontPathBold       string            `json:"font_path_bold"`
	FontPathItalic     string            `json:"font_path_italic"`
	FontPathBoldItalic string            `json:"font_path_bold_italic"`
	FontSize           int               `json:"font_size"`
	BlockWidth         int               `json:"block_width"`
	VerticalPadding    int               `json:"vertical_padding"`
	HorizontalPadding  int               `json:"horizontal_padding"`
	LineSpacing        int               `json:"line_spacing"`
	ProfileName        string            `json:"profile_name"`
	ProfileImagePath   string            `json:"profile_image_path"`
	ProfileSize        int               `json:"profile_size"`
	ProfileGap         int               `json:"profile_gap"`
	VoiceModel         string            `json:"voice_model"`
	RoleColors         map[string]string `json:"role_colors"`
}

// Style is the immutable merged style configuration. It is built once and
// threaded explicitly through layout and scheduling.
type Style struct {
	Default  Profile
	profiles map[string]Profile
}

// DefaultProfile is the baseline used when the document omits keys.
func DefaultProfile() Profile {
	return Profile{
		BackgroundColor:   "#000000",
		BubbleColor:       "#333333",
		TextColor:         "#ffffff",
		UsernameColor:     "#ffffff",
		FontSize:          20,
		BlockWidth:        600,
		VerticalPadding:   10,
		HorizontalPadding: 10,
		LineSpacing:       4,
		ProfileSize:       50,
		ProfileGap:        10,
	}
}

// LoadStyle reads the style JSON document and resolves all role profiles
// against "default".
func LoadStyle(path string) (*Style, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseStyle(data)
}

// ParseStyle builds a Style from raw JSON. The document is a mapping of
// profile names to key/value objects; unknown keys are ignored.
func ParseStyle(data []byte) (*Style, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("style config does not parse: %w", err)
	}

	base := DefaultProfile()
	if d, ok := raw["default"]; ok {
		if err := applyKeys(&base, d); err != nil {
			return nil, fmt.Errorf("profile %q: %w", "default", err)
		}
	}

	s := &Style{Default: base, profiles: make(map[string]Profile, len(raw))}
	for name, keys := range raw {
		if name == "default" {
			continue
		}
		p := base
		if err := applyKeys(&p, keys); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		if p.ProfileName == "" {
			p.ProfileName = name
		}
		s.profiles[name] = p
	}
	return s, nil
}

// applyKeys overlays the given keys onto p by re-decoding them into the
// existing struct, so absent keys keep their merged values.
func applyKeys(p *Profile, keys map[string]json.RawMessage) error {
	merged, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, p)
}

// Role returns the merged profile for a role. The second return is false
// when the role has no profile of its own; callers decide whether that is
// a structural failure (participant roles) or a default lookup (system).
func (s *Style) Role(role string) (Profile, bool) {
	p, ok := s.profiles[role]
	return p, ok
}

// RoleOrDefault resolves a role profile falling back to default, used for
// system notices and the typing indicator.
func (s *Style) RoleOrDefault(role string) Profile {
	if p, ok := s.profiles[role]; ok {
		return p
	}
	p := s.Default
	if p.ProfileName == "" {
		p.ProfileName = role
	}
	return p
}

// Voice resolves the narration voice for a role: the profile's
// voice_model when set, otherwise the historical role defaults.
func (s *Style) Voice(role string) string {
	if p := s.RoleOrDefault(role); p.VoiceModel != "" {
		return p.VoiceModel
	}
	if role == "assistant" {
		return "af_heart"
	}
	return "am_adam"
}

// Roles lists the configured profile names, for diagnostics.
func (s *Style) Roles() []string {
	out := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		out = append(out, name)
	}
	return out
}
