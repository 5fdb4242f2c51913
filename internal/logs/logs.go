// Package logs locates and tails the log output of the managed validator
// services, from either the launcher's log files or the systemd journal.
package logs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// pollInterval is how often follow mode re-checks a file for new lines.
const pollInterval = 100 * time.Millisecond

// Source streams log lines until the context is cancelled or the source is
// exhausted.
type Source interface {
	Lines(ctx context.Context) (<-chan string, error)
	Close() error
}

// Journal streams a systemd unit's log via journalctl.
type Journal struct {
	Unit   string
	Follow bool
	Tail   int

	cmd *exec.Cmd
}

// NewJournal creates a journal source for the given unit.
func NewJournal(unit string, follow bool, tail int) *Journal {
	return &Journal{Unit: unit, Follow: follow, Tail: tail}
}

func (j *Journal) Lines(ctx context.Context) (<-chan string, error) {
	if runtime.GOOS != "linux" {
		return nil, fmt.Errorf("journalctl not available on %s", runtime.GOOS)
	}

	args := []string{"-u", j.Unit, "--no-pager"}
	if j.Tail > 0 {
		args = append(args, "-n", fmt.Sprintf("%d", j.Tail))
	}
	if j.Follow {
		args = append(args, "-f")
	}

	j.cmd = exec.CommandContext(ctx, "journalctl", args...)
	stdout, err := j.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe journalctl output: %w", err)
	}
	if err := j.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start journalctl: %w", err)
	}

	ch := make(chan string, 100)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			select {
			case ch <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (j *Journal) Close() error {
	if j.cmd != nil && j.cmd.Process != nil {
		return j.cmd.Process.Kill()
	}
	return nil
}

// File streams a log file, optionally following appended lines.
type File struct {
	Path   string
	Follow bool
	Tail   int

	f *os.File
}

// NewFile creates a file source for the given path.
func NewFile(path string, follow bool, tail int) *File {
	return &File{Path: path, Follow: follow, Tail: tail}
}

func (f *File) Lines(ctx context.Context) (<-chan string, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	f.f = file

	ch := make(chan string, 100)
	go func() {
		defer close(ch)
		defer file.Close()

		for _, line := range tailLines(file, f.Tail) {
			select {
			case ch <- line:
			case <-ctx.Done():
				return
			}
		}
		if !f.Follow {
			return
		}

		// tailLines leaves the offset at EOF; poll for appended lines.
		reader := bufio.NewReader(file)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					return
				}
				time.Sleep(pollInterval)
				continue
			}
			select {
			case ch <- strings.TrimSuffix(line, "\n"):
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (f *File) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

// tailLines returns the last n lines of r (all lines when n <= 0), leaving
// the reader drained.
func tailLines(r io.Reader, n int) []string {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines
}

// unitName maps a service ("ui", "api") to its systemd unit.
func unitName(service string) string {
	return "validator-" + service
}

// Open picks a source for a service: the systemd journal when the service's
// unit is active, otherwise the launcher's log file under logDir.
func Open(service, logDir string, follow bool, tail int) (Source, error) {
	unit := unitName(service)
	if runtime.GOOS == "linux" && unitActive(unit) {
		return NewJournal(unit, follow, tail), nil
	}

	path := filepath.Join(logDir, unit+".log")
	if _, err := os.Stat(path); err == nil {
		return NewFile(path, follow, tail), nil
	}

	return nil, fmt.Errorf("no log source for %s (tried journal unit %s and %s)", service, unit, path)
}

func unitActive(unit string) bool {
	return exec.Command("systemctl", "is-active", "--quiet", unit).Run() == nil
}

// UnitState returns the systemd state of a service's unit ("active",
// "inactive", ...), or a placeholder when systemd is not applicable.
func UnitState(service string) string {
	if runtime.GOOS != "linux" {
		return "n/a"
	}
	out, err := exec.Command("systemctl", "is-active", unitName(service)).Output()
	state := strings.TrimSpace(string(out))
	if state == "" {
		if err != nil {
			return "not installed"
		}
		return "unknown"
	}
	return state
}
