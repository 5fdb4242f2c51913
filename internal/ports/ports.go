// Package ports provides TCP port probing and conflict resolution helpers.
//
// A port binding is always re-checked immediately before use: callers probe,
// resolve any conflict, then launch. Termination of an occupying process is
// only treated as complete once the port is observed free again.
package ports

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	oshelpers "github.com/fieldstone/navctl/internal/os"
)

const dialTimeout = 300 * time.Millisecond

// InUse reports whether something is accepting TCP connections on the port.
func InUse(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), dialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// CanBind reports whether the port can currently be bound on localhost.
func CanBind(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// Next returns the next port number to try after a declined conflict.
func Next(port int) int {
	return port + 1
}

// Occupant describes the process currently listening on a port.
type Occupant struct {
	PID     int
	Command string
}

// FindOccupant looks up the process listening on the given port using lsof,
// falling back to fuser. Returns nil if no occupant could be identified.
func FindOccupant(ctx context.Context, runner *oshelpers.Runner, port int) (*Occupant, error) {
	result := runner.Run(ctx, "lsof", []string{"-ti", fmt.Sprintf("tcp:%d", port), "-sTCP:LISTEN"})
	pid := firstPID(result.Stdout)

	if pid == 0 {
		// fuser prints PIDs to stdout and the port spec to stderr
		result = runner.Run(ctx, "fuser", []string{fmt.Sprintf("%d/tcp", port)})
		pid = firstPID(result.Stdout)
	}

	if pid == 0 {
		return nil, fmt.Errorf("no process found listening on port %d", port)
	}

	occ := &Occupant{PID: pid}

	// Best-effort command name for the operator prompt
	psResult := runner.Run(ctx, "ps", []string{"-p", strconv.Itoa(pid), "-o", "comm="})
	if psResult.Success {
		occ.Command = strings.TrimSpace(psResult.Stdout)
	}

	return occ, nil
}

// firstPID extracts the first numeric PID from command output.
func firstPID(output string) int {
	for _, field := range strings.Fields(output) {
		if pid, err := strconv.Atoi(field); err == nil && pid > 0 {
			return pid
		}
	}
	return 0
}

// Alive reports whether a process with the given PID exists.
func Alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// Terminate signals the process with SIGTERM and escalates to SIGKILL if it
// has not exited within the grace period.
func Terminate(pid int, grace time.Duration) error {
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if err == syscall.ESRCH {
			return nil // already gone
		}
		return fmt.Errorf("failed to signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !Alive(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("failed to kill pid %d: %w", pid, err)
	}
	return nil
}

// WaitFree polls until the port stops accepting connections or the timeout
// elapses. Used after terminating an occupant so the port is confirmed free
// before relaunching on it.
func WaitFree(ctx context.Context, port int, timeout time.Duration) error {
	retry := retrypolicy.Builder[any]().
		WithDelay(100 * time.Millisecond).
		WithMaxDuration(timeout).
		WithMaxRetries(-1).
		Build()

	err := failsafe.NewExecutor[any](retry).WithContext(ctx).Run(func() error {
		if InUse(port) {
			return fmt.Errorf("port %d still in use", port)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("port %d did not free up within %s: %w", port, timeout, err)
	}
	return nil
}
