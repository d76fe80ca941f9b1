package render

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/chat2video/chat2video/internal/layout"
	"github.com/chat2video/chat2video/internal/timeline"
)

// Instruction is one display event resolved for the render sink: the
// geometry to draw and the interval it occupies.
type Instruction struct {
	Index    int // 1-based position in the display track
	Role     string
	Start    float64
	Duration float64
	Block    *layout.BlockLayout
}

// Renderer consumes instructions and produces one image per display
// event. Rasterization lives behind this boundary; the engine only needs
// the resulting file path.
type Renderer interface {
	Render(ctx context.Context, inst Instruction, outPath string) error
}

// Instructions flattens a stream's display track into render
// instructions, in schedule order.
func Instructions(s *timeline.Stream) []Instruction {
	displays := s.Displays()
	out := make([]Instruction, 0, len(displays))
	for i, e := range displays {
		inst := Instruction{
			Index:    i + 1,
			Start:    e.Start,
			Duration: e.Duration,
			Block:    e.Block,
		}
		if e.Block != nil {
			inst.Role = e.Block.Role
		}
		out = append(out, inst)
	}
	return out
}

// ImagePath names the image file for one instruction, keeping the
// message_<index>_<role>.png convention consumers already rely on.
func ImagePath(dir string, inst Instruction) string {
	return filepath.Join(dir, fmt.Sprintf("message_%d_%s.png", inst.Index, inst.Role))
}
