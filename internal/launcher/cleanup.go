package launcher

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fieldstone/navctl/internal/ports"
)

// CleanupReport summarizes what cleanup did.
type CleanupReport struct {
	TerminatedPIDs []int `json:"terminated_pids"`
	FreedPorts     []int `json:"freed_ports"`
}

// Cleanup terminates processes matching the known service patterns and frees
// the two known ports. Idempotent: nothing matching is a success, not an
// error.
func (l *Launcher) Cleanup(ctx context.Context) CleanupReport {
	var report CleanupReport

	for _, s := range specs {
		for _, pid := range l.findByPattern(ctx, s.pattern) {
			l.printf("Stopping %s (pid %d)", s.binary, pid)
			if err := ports.Terminate(pid, terminationGrace); err != nil {
				l.Logger.Warn("failed to terminate process", "pid", pid, "error", err)
				continue
			}
			report.TerminatedPIDs = append(report.TerminatedPIDs, pid)
		}
	}

	for _, port := range []int{l.Config.UIPort, l.Config.APIPort} {
		if !l.portInUse(port) {
			continue
		}
		occ, err := ports.FindOccupant(ctx, l.Runner, port)
		if err != nil {
			l.Logger.Warn("port busy but occupant unknown", "port", port, "error", err)
			continue
		}
		l.printf("Freeing port %d (pid %d)", port, occ.PID)
		if err := ports.Terminate(occ.PID, terminationGrace); err != nil {
			l.Logger.Warn("failed to free port", "port", port, "error", err)
			continue
		}
		if err := ports.WaitFree(ctx, port, 10*time.Second); err != nil {
			l.Logger.Warn("port still busy after termination", "port", port, "error", err)
			continue
		}
		report.FreedPorts = append(report.FreedPorts, port)
	}

	if len(report.TerminatedPIDs) == 0 && len(report.FreedPorts) == 0 {
		l.printf("Nothing to clean up")
	}

	return report
}

// findByPattern lists PIDs whose command line matches the pattern. A missing
// pgrep or zero matches yields an empty list.
func (l *Launcher) findByPattern(ctx context.Context, pattern string) []int {
	result := l.Runner.Run(ctx, "pgrep", []string{"-f", pattern})
	if !result.Success {
		return nil
	}

	var pids []int
	self := os.Getpid()
	for _, field := range strings.Fields(result.Stdout) {
		pid, err := strconv.Atoi(field)
		if err != nil || pid == self {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
