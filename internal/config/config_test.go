package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NAVCTL_STATE_DIR", "/tmp/navctl-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UIPort != DefaultUIPort {
		t.Errorf("UIPort = %d, want %d", cfg.UIPort, DefaultUIPort)
	}
	if cfg.APIPort != DefaultAPIPort {
		t.Errorf("APIPort = %d, want %d", cfg.APIPort, DefaultAPIPort)
	}
	if cfg.CredFile != ".env" {
		t.Errorf("CredFile = %q, want .env", cfg.CredFile)
	}
	if cfg.SecretsFile != "secrets.toml" {
		t.Errorf("SecretsFile = %q, want secrets.toml", cfg.SecretsFile)
	}
}

func TestLoadPortOverride(t *testing.T) {
	t.Setenv("NAVCTL_STATE_DIR", "/tmp/navctl-test")
	t.Setenv("NAVCTL_API_PORT", "9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != 9000 {
		t.Errorf("APIPort = %d, want 9000", cfg.APIPort)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "eight thousand"},
		{"zero", "0"},
		{"too large", "70000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NAVCTL_STATE_DIR", "/tmp/navctl-test")
			t.Setenv("NAVCTL_UI_PORT", tt.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() expected error for NAVCTL_UI_PORT=%q", tt.value)
			}
			if !strings.Contains(err.Error(), "NAVCTL_UI_PORT") {
				t.Errorf("error %q should name the offending variable", err)
			}
		})
	}
}

func TestDictDirFallback(t *testing.T) {
	cfg := &Config{StateDir: "/home/u/.navctl"}
	want := filepath.Join("/home/u/.navctl", "dictionaries")
	if got := cfg.DictDir(); got != want {
		t.Errorf("DictDir() = %q, want %q", got, want)
	}

	cfg.DictionaryDir = "/srv/dictionaries"
	if got := cfg.DictDir(); got != "/srv/dictionaries" {
		t.Errorf("DictDir() = %q, want explicit override", got)
	}
}

func TestStateDirLayout(t *testing.T) {
	cfg := &Config{StateDir: "/home/u/.navctl"}
	if got := cfg.LogDir(); got != filepath.Join("/home/u/.navctl", "logs") {
		t.Errorf("LogDir() = %q", got)
	}
	if got := cfg.BinDir(); got != filepath.Join("/home/u/.navctl", "bin") {
		t.Errorf("BinDir() = %q", got)
	}
	if got := cfg.APIBaseURL(8000); got != "http://127.0.0.1:8000" {
		t.Errorf("APIBaseURL(8000) = %q", got)
	}
}
