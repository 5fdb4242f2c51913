package menu

import (
	"errors"
	"strings"
	"testing"
)

func TestDispatch_ValidChoices(t *testing.T) {
	tests := []struct {
		input string
		want  Action
	}{
		{"1", ActionRunUI},
		{"2", ActionRunAPI},
		{"3", ActionRunBoth},
		{"4", ActionInstall},
		{"5", ActionCredentials},
		{"6", ActionStatus},
		{"7", ActionCleanup},
		{"  3  ", ActionRunBoth},
		{"7\n", ActionCleanup},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Dispatch(tt.input)
			if err != nil {
				t.Fatalf("Dispatch(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Dispatch(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDispatch_InvalidChoices(t *testing.T) {
	inputs := []string{"", "0", "8", "99", "-1", "abc", "1.5", "one"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Dispatch(input)
			if err == nil {
				t.Fatalf("Dispatch(%q) should fail", input)
			}
			if !errors.Is(err, ErrInvalidChoice) {
				t.Errorf("Dispatch(%q) error = %v, want ErrInvalidChoice", input, err)
			}
		})
	}
}

func TestItems_CodesAreSequential(t *testing.T) {
	items := Items()
	if len(items) != 7 {
		t.Fatalf("Items() returned %d entries, want 7", len(items))
	}
	for i, item := range items {
		if item.Code != i+1 {
			t.Errorf("Items()[%d].Code = %d, want %d", i, item.Code, i+1)
		}
		if item.Name == "" || item.Description == "" {
			t.Errorf("Items()[%d] has empty name or description", i)
		}
	}
}

func TestRender(t *testing.T) {
	out := Render()

	for _, item := range Items() {
		if !strings.Contains(out, item.Name) {
			t.Errorf("Render() missing item %q", item.Name)
		}
	}
	if !strings.Contains(out, "Choice:") {
		t.Error("Render() should end with a choice prompt")
	}
}
