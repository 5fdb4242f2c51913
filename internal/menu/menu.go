// Package menu defines the fixed operator action set and maps numbered
// choices onto it. Dispatch is pure: invalid input produces an error and no
// side effects; the caller decides to exit non-zero.
package menu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Action is one of the launcher's operator actions.
type Action int

const (
	ActionRunUI Action = iota + 1
	ActionRunAPI
	ActionRunBoth
	ActionInstall
	ActionCredentials
	ActionStatus
	ActionCleanup
)

// ErrInvalidChoice is returned for input outside the menu's numeric range.
var ErrInvalidChoice = errors.New("invalid menu choice")

// Info describes a menu entry for rendering.
type Info struct {
	Code        int
	Name        string
	Description string
}

// Items returns the menu entries in display order.
func Items() []Info {
	return []Info{
		{int(ActionRunUI), "Run UI", "Start the web UI process"},
		{int(ActionRunAPI), "Run API", "Start the validation API process"},
		{int(ActionRunBoth), "Run Both", "Start the API in the background, then the UI"},
		{int(ActionInstall), "Install", "Build service binaries and check dependencies"},
		{int(ActionCredentials), "Credentials", "Set up or inspect USPS credentials"},
		{int(ActionStatus), "Status", "Report credential and port status"},
		{int(ActionCleanup), "Cleanup", "Stop known processes and free ports"},
	}
}

func (a Action) String() string {
	for _, item := range Items() {
		if item.Code == int(a) {
			return item.Name
		}
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Dispatch maps one line of operator input to exactly one action.
func Dispatch(input string) (Action, error) {
	trimmed := strings.TrimSpace(input)

	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChoice, trimmed)
	}

	if n < int(ActionRunUI) || n > int(ActionCleanup) {
		return 0, fmt.Errorf("%w: %d (expected 1-%d)", ErrInvalidChoice, n, int(ActionCleanup))
	}

	return Action(n), nil
}

// Render returns the numbered menu as printable text.
func Render() string {
	var b strings.Builder
	b.WriteString("Name & Address Validator\n")
	for _, item := range Items() {
		fmt.Fprintf(&b, "  %d) %-12s %s\n", item.Code, item.Name, item.Description)
	}
	b.WriteString("Choice: ")
	return b.String()
}
