package creds

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter is the I/O boundary for interactive credential entry.
type Prompter interface {
	// ReadLine prints the prompt and reads one line of input.
	ReadLine(prompt string) (string, error)
	// ReadSecret prints the prompt and reads input without echo.
	ReadSecret(prompt string) (string, error)
}

// TerminalPrompter prompts on a real terminal, masking secret input.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalPrompter prompts on stdin/stdout.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stdout}
}

func (p *TerminalPrompter) ReadLine(prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)
	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *TerminalPrompter) ReadSecret(prompt string) (string, error) {
	fmt.Fprint(p.Out, prompt)

	fd := int(p.In.Fd())
	if !term.IsTerminal(fd) {
		// Non-terminal input (piped): fall back to a plain line read.
		return p.ReadLine("")
	}

	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// EnsureInteractive resolves credentials, prompting the operator if no source
// provides them. Declined or empty input yields an unavailable resolution and
// a nil error: missing credentials degrade address validation, they never
// halt the program. Successful input is persisted to the local credential
// file for future sessions.
func (r *Resolver) EnsureInteractive(p Prompter) (Resolution, error) {
	res := r.Resolve()
	if res.Available {
		return res, nil
	}

	id, err := p.ReadLine("USPS client ID (leave empty to skip): ")
	if err != nil {
		return res, nil
	}
	if id == "" {
		r.Logger.Info("credential entry skipped; address validation disabled")
		return res, nil
	}

	secret, err := p.ReadSecret("USPS client secret: ")
	if err != nil || secret == "" {
		r.Logger.Info("credential entry incomplete; address validation disabled")
		return res, nil
	}

	pair := Pair{ClientID: id, ClientSecret: secret}

	if err := Persist(r.CredFile, pair); err != nil {
		// The pair is still usable for this session even if persistence failed.
		r.Logger.Warn("failed to persist credentials", "error", err)
	} else {
		r.Logger.Info("credentials saved", "path", r.CredFile)
	}

	return Resolution{Pair: pair, Source: SourcePrompt, Available: true}, nil
}
