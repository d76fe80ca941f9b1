package conversation

import "fmt"

// StructuralError reports a document that cannot be scheduled at all.
// It is the only error class that aborts a run; the index fields give the
// user enough to locate the offending entry in the source JSON.
type StructuralError struct {
	Turn    int // -1 when the problem is document-level
	Message int // -1 when the problem is turn-level
	Field   string
	Reason  string
}

func (e *StructuralError) Error() string {
	switch {
	case e.Turn < 0:
		return fmt.Sprintf("conversation: %s", e.Reason)
	case e.Message < 0:
		return fmt.Sprintf("conversation: turn %d, field %q: %s", e.Turn, e.Field, e.Reason)
	default:
		return fmt.Sprintf("conversation: turn %d, message %d, field %q: %s", e.Turn, e.Message, e.Field, e.Reason)
	}
}
