// Package os provides OS-level operations for navctl.
package os

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// CommandResult contains the result of running a command
type CommandResult struct {
	// Command is the command that was run (may be redacted)
	Command string
	// ExitCode is the exit code of the command
	ExitCode int
	// Stdout is the (possibly redacted) stdout output
	Stdout string
	// Stderr is the (possibly redacted) stderr output
	Stderr string
	// Success indicates if the command succeeded (exit code 0)
	Success bool
	// Duration is how long the command took to run
	Duration time.Duration
	// Error contains any error that occurred
	Error error
}

// Runner executes commands with safety measures
type Runner struct {
	// DryRun if true, only prints commands without executing
	DryRun bool
	// Timeout for command execution (default: 60s)
	Timeout time.Duration
	// RedactPatterns are regex patterns to redact from output
	RedactPatterns []*regexp.Regexp
	// secrets are literal values to scrub from command lines and output
	secrets []string
	// WorkDir is the working directory for commands
	WorkDir string
}

// DefaultRunner creates a runner with sensible defaults
func DefaultRunner() *Runner {
	return &Runner{
		DryRun:  false,
		Timeout: 60 * time.Second,
		RedactPatterns: []*regexp.Regexp{
			// Redact credential assignments (env style and flag style)
			regexp.MustCompile(`(?i)(client[_-]?secret|client[_-]?id)[=:\s]+\S+`),
			regexp.MustCompile(`(?i)(password|token|secret)[=:\s]+\S+`),
			// Redact bearer tokens
			regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._+/-]+`),
		},
	}
}

// NewRunner creates a new Runner with the specified dry-run setting
func NewRunner(dryRun bool) *Runner {
	r := DefaultRunner()
	r.DryRun = dryRun
	return r
}

// AddSecret registers a literal value to scrub from all command lines and output.
func (r *Runner) AddSecret(value string) {
	if value == "" {
		return
	}
	r.secrets = append(r.secrets, value)
}

// Redact applies registered secrets and redaction patterns to the given text
func (r *Runner) Redact(text string) string {
	result := text
	for _, secret := range r.secrets {
		result = strings.ReplaceAll(result, secret, "[REDACTED]")
	}
	for _, pattern := range r.RedactPatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// Run executes a command and returns the result
func (r *Runner) Run(ctx context.Context, binary string, args []string) *CommandResult {
	result := &CommandResult{
		Command: r.Redact(binary + " " + strings.Join(args, " ")),
	}

	if r.DryRun {
		result.Success = true
		result.Stdout = "(dry-run: command not executed)"
		return result
	}

	// Create context with timeout
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	if r.WorkDir != "" {
		cmd.Dir = r.WorkDir
	}

	// Capture output
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)

	result.Stdout = r.Redact(stdout.String())
	result.Stderr = r.Redact(stderr.String())

	if err != nil {
		result.Error = err
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		result.Success = false
	} else {
		result.ExitCode = 0
		result.Success = true
	}

	return result
}

// CheckBinaryExists verifies that a binary exists in PATH
func (r *Runner) CheckBinaryExists(binary string) error {
	_, err := exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("binary not found: %s (ensure it's installed and in PATH)", binary)
	}
	return nil
}
