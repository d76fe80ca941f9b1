package system

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// AudioDuration asks ffprobe for the duration of an audio clip in
// seconds. This is the authoritative duration used during reconciliation.
func AudioDuration(ffprobe, path string) (float64, error) {
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	cmd := exec.Command(ffprobe, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("ffprobe %s: bad duration output %q", path, strings.TrimSpace(string(out)))
	}
	return duration, nil
}

// synthesisMemPerWorker is a rough memory budget for one TTS worker.
const synthesisMemPerWorker = 512 << 20

// SynthesisWorkers picks how many TTS processes to run in parallel. An
// explicit request wins; otherwise the count follows the logical CPUs,
// capped by available memory so a small machine is not swamped.
func SynthesisWorkers(requested int) int {
	if requested > 0 {
		return requested
	}

	workers := runtime.NumCPU()
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		workers = n
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		byMem := int(vm.Available / uint64(synthesisMemPerWorker))
		if byMem < 1 {
			byMem = 1
		}
		if byMem < workers {
			workers = byMem
		}
	}

	if workers < 1 {
		workers = 1
	}
	return workers
}

// HasBinary reports whether a binary is reachable on PATH, used to skip
// the encode step gracefully when ffmpeg is absent.
func HasBinary(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
