package detector

import (
	"context"
	"log/slog"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// ProcTableScanner walks the process table and matches executable names.
// It serves platforms that ship no pidof.
type ProcTableScanner struct {
	Log *slog.Logger
}

func (s *ProcTableScanner) Lookup(name string) []int {
	ctx := context.Background()
	procs, err := gopsproc.ProcessesWithContext(ctx)
	if err != nil {
		s.logger().Error("failed to enumerate processes",
			slog.String("name", name),
			slog.Any("error", err))
		return nil
	}
	var pids []int
	for _, p := range procs {
		if p.Pid <= 0 {
			continue
		}
		// Processes can exit mid-walk; those simply do not match.
		n, err := p.NameWithContext(ctx)
		if err != nil || n != name {
			continue
		}
		pids = append(pids, int(p.Pid))
	}
	return pids
}

func (s *ProcTableScanner) Describe() string { return "proctable" }

func (s *ProcTableScanner) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
