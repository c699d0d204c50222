package detector

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Scanner kinds accepted by NewScanner.
const (
	KindAuto      = "auto"
	KindPidof     = "pidof"
	KindProcTable = "proctable"
)

// Scanner looks up every PID currently running under a process name.
// Implementations never fail: an unusable lookup facility is logged and
// reported as "no instances".
type Scanner interface {
	Lookup(name string) []int
	Describe() string
}

// Probe answers liveness questions with a zero side-effect check.
type Probe struct{}

// Alive reports whether pid still refers to a running process.
func (Probe) Alive(pid int) bool { return pidAlive(pid) }

// NewScanner returns the scanner for kind. KindAuto (or empty) picks pidof
// when it is on PATH and falls back to the process table otherwise.
func NewScanner(kind string, log *slog.Logger) (Scanner, error) {
	if log == nil {
		log = slog.Default()
	}
	switch kind {
	case "", KindAuto:
		if _, err := exec.LookPath(pidofBinary); err == nil {
			return &PidofScanner{Log: log}, nil
		}
		return &ProcTableScanner{Log: log}, nil
	case KindPidof:
		return &PidofScanner{Log: log}, nil
	case KindProcTable:
		return &ProcTableScanner{Log: log}, nil
	}
	return nil, fmt.Errorf("unknown scanner %q (want %s, %s or %s)", kind, KindAuto, KindPidof, KindProcTable)
}

// ParsePIDs splits whitespace separated tokens into PIDs, keeping order and
// duplicates and discarding anything that is not a positive integer.
func ParsePIDs(out string) []int {
	fields := strings.Fields(out)
	pids := make([]int, 0, len(fields))
	for _, f := range fields {
		pid, err := strconv.Atoi(f)
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
