package system

import "testing"

func TestSynthesisWorkersExplicitWins(t *testing.T) {
	for _, n := range []int{1, 3, 16} {
		if got := SynthesisWorkers(n); got != n {
			t.Errorf("SynthesisWorkers(%d) = %d", n, got)
		}
	}
}

func TestSynthesisWorkersAutoAtLeastOne(t *testing.T) {
	if got := SynthesisWorkers(0); got < 1 {
		t.Errorf("auto worker count = %d, must be >= 1", got)
	}
	if got := SynthesisWorkers(-5); got < 1 {
		t.Errorf("negative request: worker count = %d", got)
	}
}
