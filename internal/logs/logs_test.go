package logs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func collect(t *testing.T, s Source) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := s.Lines(ctx)
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}
	var lines []string
	for line := range ch {
		lines = append(lines, line)
	}
	return lines
}

func TestFileTail(t *testing.T) {
	tests := []struct {
		name    string
		content string
		tail    int
		want    []string
	}{
		{"last 3 of 5", "a\nb\nc\nd\ne\n", 3, []string{"c", "d", "e"}},
		{"tail larger than file", "a\nb\n", 10, []string{"a", "b"}},
		{"empty file", "", 10, nil},
		{"no trailing newline", "a\nb", 2, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeLog(t, t.TempDir(), "svc.log", tt.content)
			got := collect(t, NewFile(path, false, tt.tail))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines %v, want %v", len(got), got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFileTailLargeFile(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 500; i++ {
		fmt.Fprintf(&b, "line%03d\n", i)
	}
	path := writeLog(t, t.TempDir(), "svc.log", b.String())

	got := collect(t, NewFile(path, false, 5))
	want := []string{"line496", "line497", "line498", "line499", "line500"}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want 5", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFileFollow(t *testing.T) {
	path := writeLog(t, t.TempDir(), "svc.log", "first\n")

	src := NewFile(path, true, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := src.Lines(ctx)
	if err != nil {
		t.Fatalf("Lines() error = %v", err)
	}
	if line := <-ch; line != "first" {
		t.Fatalf("first line = %q", line)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("second\n")
	f.Close()

	select {
	case line := <-ch:
		if line != "second" {
			t.Errorf("appended line = %q, want second", line)
		}
	case <-time.After(3 * time.Second):
		t.Error("timed out waiting for appended line")
	}
	cancel()
}

func TestFileMissing(t *testing.T) {
	src := NewFile(filepath.Join(t.TempDir(), "absent.log"), false, 10)
	if _, err := src.Lines(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFileCloseWithoutLines(t *testing.T) {
	if err := NewFile("/some/path.log", false, 10).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestJournalCloseWithoutStart(t *testing.T) {
	if err := NewJournal("validator-api", false, 10).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOpenPrefersLauncherFile(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "validator-api.log", "hello\n")

	src, err := Open("api", dir, false, 50)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer src.Close()

	file, ok := src.(*File)
	if !ok {
		t.Skipf("got %T (systemd unit active on this host)", src)
	}
	if file.Path != path {
		t.Errorf("Path = %q, want %q", file.Path, path)
	}
}

func TestOpenNothingAvailable(t *testing.T) {
	_, err := Open("ui", t.TempDir(), false, 50)
	if err == nil {
		t.Skip("journal unit active on this host")
	}
	if !strings.Contains(err.Error(), "no log source") {
		t.Errorf("error = %q, want mention of missing source", err)
	}
}

func TestUnitStateNeverEmpty(t *testing.T) {
	if state := UnitState("api"); state == "" {
		t.Error("UnitState() returned empty string")
	}
}
