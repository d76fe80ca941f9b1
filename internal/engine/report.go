package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// Recovery kinds. Each one names a fallback path the run can take
// without aborting.
const (
	RecoveryReference   = "unresolved reply references"
	RecoverySynthesis   = "synthesis failures"
	RecoveryMeasurement = "measurement errors (messages skipped)"
	RecoverySFXMissing  = "missing sfx files"
)

// Recoveries accumulates the non-fatal incidents of a run. Only
// structural errors abort; everything here was recovered with a fallback
// and is reported once at the end.
type Recoveries struct {
	counts map[string]int
}

func NewRecoveries() *Recoveries {
	return &Recoveries{counts: make(map[string]int)}
}

func (r *Recoveries) Add(kind string) { r.counts[kind]++ }

func (r *Recoveries) AddN(kind string, n int) {
	if n > 0 {
		r.counts[kind] += n
	}
}

func (r *Recoveries) Total() int {
	total := 0
	for _, n := range r.counts {
		total += n
	}
	return total
}

// Summary renders the end-of-run report. A clean run gets a single green
// line; otherwise one line per kind, sorted for stable output.
func (r *Recoveries) Summary() string {
	if r.Total() == 0 {
		return color.GreenString("[+++] No recoveries: clean run")
	}
	kinds := make([]string, 0, len(r.counts))
	for k := range r.counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	var b strings.Builder
	b.WriteString(color.YellowString("[!] Recovered incidents (run completed):"))
	for _, k := range kinds {
		fmt.Fprintf(&b, "\n    %s: %d", k, r.counts[k])
	}
	return b.String()
}
