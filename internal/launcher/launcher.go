// Package launcher starts, stops, and inspects the two validator service
// processes (UI and API), resolving port conflicts before each launch.
package launcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/fieldstone/navctl/internal/config"
	"github.com/fieldstone/navctl/internal/creds"
	oshelpers "github.com/fieldstone/navctl/internal/os"
	"github.com/fieldstone/navctl/internal/ports"
)

// ServiceName identifies a managed service.
type ServiceName string

const (
	ServiceUI  ServiceName = "ui"
	ServiceAPI ServiceName = "api"
)

// terminationGrace is how long a process gets between SIGTERM and SIGKILL.
const terminationGrace = 5 * time.Second

// ConflictPrompter asks the operator how to handle a port conflict.
type ConflictPrompter interface {
	// ConfirmKill reports whether the occupying process should be terminated.
	ConfirmKill(service ServiceName, port int, occupant *ports.Occupant) bool
}

// spec describes how a service is launched.
type spec struct {
	name   ServiceName
	binary string
	// pattern matches the service's processes for cleanup (pgrep -f).
	pattern string
}

var specs = map[ServiceName]spec{
	ServiceUI:  {name: ServiceUI, binary: "validator-ui", pattern: "validator-ui"},
	ServiceAPI: {name: ServiceAPI, binary: "validator-api", pattern: "validator-api"},
}

// Launcher orchestrates the validator service processes. Credentials travel
// in the Creds field and are handed to children through their command
// environment; the launcher never mutates its own environment to communicate.
type Launcher struct {
	Config *config.Config
	Runner *oshelpers.Runner
	Logger *slog.Logger
	Creds  creds.Resolution
	Prompt ConflictPrompter
	// Out receives operator-facing status messages.
	Out io.Writer
	// PortInUse overrides the port probe; defaults to ports.InUse.
	PortInUse func(int) bool

	// effectiveAPIPort records where the API actually landed after conflict
	// resolution, so the UI is pointed at the right place.
	effectiveAPIPort int
}

// New creates a launcher with defaults filled in.
func New(cfg *config.Config, resolution creds.Resolution, prompt ConflictPrompter, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	runner := oshelpers.DefaultRunner()
	runner.AddSecret(resolution.Pair.ClientSecret)
	return &Launcher{
		Config: cfg,
		Runner: runner,
		Logger: logger,
		Creds:  resolution,
		Prompt: prompt,
		Out:    os.Stdout,
	}
}

// Process is a handle to a spawned service, used to signal termination.
type Process struct {
	Name    ServiceName
	Port    int
	LogPath string

	cmd     *exec.Cmd
	logFile *os.File
	waited  chan error
}

// PID returns the child's process id, or 0 if it never started.
func (p *Process) PID() int {
	if p.cmd != nil && p.cmd.Process != nil {
		return p.cmd.Process.Pid
	}
	return 0
}

// Wait blocks until the process exits.
func (p *Process) Wait() error {
	return <-p.waited
}

// Stop signals SIGTERM, waits for the grace period, then escalates to
// SIGKILL. Best-effort: an already-exited process is not an error.
func (p *Process) Stop() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already exited.
		return nil
	}

	select {
	case <-p.waited:
		return nil
	case <-time.After(terminationGrace):
	}

	p.cmd.Process.Kill()
	<-p.waited
	return nil
}

// DefaultPort returns the configured port for a service.
func (l *Launcher) DefaultPort(name ServiceName) int {
	switch name {
	case ServiceUI:
		return l.Config.UIPort
	case ServiceAPI:
		return l.Config.APIPort
	}
	return 0
}

// binaryPath locates a service binary: the navctl-managed bin directory
// first, then PATH.
func (l *Launcher) binaryPath(s spec) (string, error) {
	managed := filepath.Join(l.Config.BinDir(), s.binary)
	if _, err := os.Stat(managed); err == nil {
		return managed, nil
	}
	path, err := exec.LookPath(s.binary)
	if err != nil {
		return "", fmt.Errorf("service binary %s not found (run the install action first): %w", s.binary, err)
	}
	return path, nil
}

// ResolvePort checks the requested port immediately before use and resolves
// any conflict: terminate the occupant (confirmed free before reuse) or fall
// back to the next port number.
func (l *Launcher) ResolvePort(ctx context.Context, name ServiceName, requested int) (int, error) {
	if !l.portInUse(requested) {
		return requested, nil
	}

	occ, err := ports.FindOccupant(ctx, l.Runner, requested)
	if err != nil {
		l.Logger.Warn("port busy but occupant unknown, using next port",
			"service", string(name), "port", requested, "error", err)
		return ports.Next(requested), nil
	}

	l.printf("Port %d is in use by %s (pid %d)", requested, occ.Command, occ.PID)

	if l.Prompt != nil && l.Prompt.ConfirmKill(name, requested, occ) {
		l.printf("Stopping pid %d to free port %d", occ.PID, requested)
		if err := ports.Terminate(occ.PID, terminationGrace); err != nil {
			return 0, fmt.Errorf("failed to terminate occupant of port %d: %w", requested, err)
		}
		if err := ports.WaitFree(ctx, requested, 10*time.Second); err != nil {
			return 0, err
		}
		return requested, nil
	}

	next := ports.Next(requested)
	l.printf("Keeping pid %d, using port %d instead", occ.PID, next)
	return next, nil
}

// Launch resolves the port and starts the service. When foreground is true
// the child inherits the terminal and Launch blocks until it exits;
// otherwise output goes to a log file under the state directory and the
// returned handle owns termination.
func (l *Launcher) Launch(ctx context.Context, name ServiceName, requested int, foreground bool) (*Process, error) {
	s, ok := specs[name]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", name)
	}
	if requested == 0 {
		requested = l.DefaultPort(name)
	}

	port, err := l.ResolvePort(ctx, name, requested)
	if err != nil {
		return nil, err
	}

	binary, err := l.binaryPath(s)
	if err != nil {
		return nil, err
	}

	args := []string{"--port", strconv.Itoa(port)}
	if name == ServiceUI {
		apiPort := l.effectiveAPIPort
		if apiPort == 0 {
			apiPort = l.Config.APIPort
		}
		args = append(args, "--api-url", l.Config.APIBaseURL(apiPort))
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = l.childEnv()

	proc := &Process{Name: name, Port: port, cmd: cmd, waited: make(chan error, 1)}

	if foreground {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		logFile, err := l.openLogFile(s)
		if err != nil {
			return nil, err
		}
		proc.logFile = logFile
		proc.LogPath = logFile.Name()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		if proc.logFile != nil {
			proc.logFile.Close()
		}
		return nil, fmt.Errorf("failed to start %s: %w", s.binary, err)
	}

	l.Logger.Info("service started",
		"service", string(name), "port", port, "pid", cmd.Process.Pid, "foreground", foreground)
	l.printf("%s running on port %d (pid %d)", s.binary, port, cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		if proc.logFile != nil {
			proc.logFile.Close()
		}
		proc.waited <- err
		close(proc.waited)
	}()

	if foreground {
		if err := proc.Wait(); err != nil {
			return proc, fmt.Errorf("%s exited: %w", s.binary, err)
		}
	}

	return proc, nil
}

// childEnv builds the child environment: the parent's environment plus the
// resolved credential pair, set explicitly rather than via ambient mutation.
func (l *Launcher) childEnv() []string {
	env := os.Environ()
	if l.Creds.Available {
		env = append(env,
			creds.EnvClientID+"="+l.Creds.Pair.ClientID,
			creds.EnvClientSecret+"="+l.Creds.Pair.ClientSecret,
		)
	}
	return env
}

func (l *Launcher) openLogFile(s spec) (*os.File, error) {
	if err := os.MkdirAll(l.Config.LogDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(l.Config.LogDir(), s.binary+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func (l *Launcher) printf(format string, args ...any) {
	if l.Out != nil {
		fmt.Fprintf(l.Out, format+"\n", args...)
	}
}
