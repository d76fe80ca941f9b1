package timeline

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a finalized stream, the interface
// handed to the encode sink and useful on its own for inspection.
type Document struct {
	Version       string   `yaml:"version"`
	Mode          string   `yaml:"mode"`
	TotalDuration float64  `yaml:"total_duration"`
	Events        []Record `yaml:"events"`
}

// Record is one serialized event.
type Record struct {
	Kind     string  `yaml:"kind"`
	Start    float64 `yaml:"start"`
	Duration float64 `yaml:"duration,omitempty"`
	Turn     int     `yaml:"turn"`
	Message  int     `yaml:"message"`
	Role     string  `yaml:"role,omitempty"`
	Height   int     `yaml:"height,omitempty"`
	Typing   bool    `yaml:"typing,omitempty"`
	System   bool    `yaml:"system,omitempty"`
	Text     string  `yaml:"text,omitempty"`
	Voice    string  `yaml:"voice,omitempty"`
	Clip     string  `yaml:"clip,omitempty"`
	File     string  `yaml:"file,omitempty"`
	Volume   float64 `yaml:"volume,omitempty"`
}

// ToDocument flattens a stream into its serialized form. Display and
// audio events keep schedule order; SFX cues come last, time-sorted.
func ToDocument(s *Stream) *Document {
	doc := &Document{
		Version:       "1.0",
		Mode:          s.Mode.String(),
		TotalDuration: s.Total,
	}
	appendRecords := func(events []Event) {
		for _, e := range events {
			r := Record{
				Kind:     string(e.Kind),
				Start:    e.Start,
				Duration: e.Duration,
				Turn:     e.Turn,
				Message:  e.Message,
				Text:     e.Text,
				Voice:    e.Voice,
				Clip:     e.Clip,
				File:     e.File,
				Volume:   e.Volume,
			}
			if e.Block != nil {
				r.Role = e.Block.Role
				r.Height = e.Block.Height
				r.Typing = e.Block.Typing
				r.System = e.Block.System
			}
			doc.Events = append(doc.Events, r)
		}
	}
	appendRecords(s.Displays())
	appendRecords(s.AudioCues())
	appendRecords(s.SFXCues())
	return doc
}

// WriteStream writes a stream document to a YAML file.
func WriteStream(s *Stream, path string) error {
	data, err := yaml.Marshal(ToDocument(s))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadDocument reads a stream document back from a YAML file.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
