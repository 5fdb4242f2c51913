package creds

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noEnv(string) (string, bool) { return "", false }

func envWith(id, secret string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		switch key {
		case EnvClientID:
			return id, id != ""
		case EnvClientSecret:
			return secret, secret != ""
		}
		return "", false
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPair_Complete(t *testing.T) {
	tests := []struct {
		name string
		pair Pair
		want bool
	}{
		{"both set", Pair{"abc", "xyz"}, true},
		{"missing secret", Pair{ClientID: "abc"}, false},
		{"missing id", Pair{ClientSecret: "xyz"}, false},
		{"empty", Pair{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pair.Complete(); got != tt.want {
				t.Errorf("Complete() = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestResolve_Precedence(t *testing.T) {
	local := Pair{"local-id", "local-secret"}
	env := Pair{"env-id", "env-secret"}
	secrets := Pair{"secrets-id", "secrets-secret"}

	tests := []struct {
		name       string
		candidates Candidates
		wantPair   Pair
		wantSource Source
		wantOK     bool
	}{
		{
			name:       "local file wins over everything",
			candidates: Candidates{LocalFile: local, Env: env, Secrets: secrets},
			wantPair:   local,
			wantSource: SourceLocalFile,
			wantOK:     true,
		},
		{
			name:       "env wins over secrets",
			candidates: Candidates{Env: env, Secrets: secrets},
			wantPair:   env,
			wantSource: SourceEnv,
			wantOK:     true,
		},
		{
			name:       "secrets as last resort",
			candidates: Candidates{Secrets: secrets},
			wantPair:   secrets,
			wantSource: SourceSecrets,
			wantOK:     true,
		},
		{
			name:       "incomplete local file does not win",
			candidates: Candidates{LocalFile: Pair{ClientID: "only-id"}, Env: env},
			wantPair:   env,
			wantSource: SourceEnv,
			wantOK:     true,
		},
		{
			name:       "nothing available",
			candidates: Candidates{},
			wantSource: SourceNone,
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, source, ok := Resolve(tt.candidates)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %t, want %t", ok, tt.wantOK)
			}
			if source != tt.wantSource {
				t.Errorf("Resolve() source = %s, want %s", source, tt.wantSource)
			}
			if pair != tt.wantPair {
				t.Errorf("Resolve() pair = %+v, want %+v", pair, tt.wantPair)
			}
		})
	}
}

func TestLoadLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	content := "# USPS credentials\nUSPS_CLIENT_ID=abc\nUSPS_CLIENT_SECRET=xyz\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	pair, err := LoadLocalFile(path)
	if err != nil {
		t.Fatalf("LoadLocalFile() error: %v", err)
	}

	if pair.ClientID != "abc" || pair.ClientSecret != "xyz" {
		t.Errorf("LoadLocalFile() = %+v, want abc/xyz", pair)
	}
}

func TestLoadLocalFile_Missing(t *testing.T) {
	pair, err := LoadLocalFile(filepath.Join(t.TempDir(), "nope.env"))
	if err != nil {
		t.Errorf("LoadLocalFile() on missing file should not error, got %v", err)
	}
	if pair.Complete() {
		t.Error("LoadLocalFile() on missing file should yield empty pair")
	}
}

func TestLoadSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.toml")

	content := "USPS_CLIENT_ID = \"store-id\"\nUSPS_CLIENT_SECRET = \"store-secret\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	pair, err := LoadSecrets(path)
	if err != nil {
		t.Fatalf("LoadSecrets() error: %v", err)
	}
	if pair.ClientID != "store-id" || pair.ClientSecret != "store-secret" {
		t.Errorf("LoadSecrets() = %+v", pair)
	}
}

func TestResolver_LocalFileBeatsEnv(t *testing.T) {
	// Scenario from the acceptance list: the local file wins regardless of
	// environment content.
	dir := t.TempDir()
	credFile := filepath.Join(dir, ".env")
	os.WriteFile(credFile, []byte("USPS_CLIENT_ID=abc\nUSPS_CLIENT_SECRET=xyz\n"), 0600)

	r := NewResolver(credFile, filepath.Join(dir, "secrets.toml"), quietLogger())
	r.LookupEnv = envWith("env-id", "env-secret")

	res := r.Resolve()

	if !res.Available {
		t.Fatal("Resolve() should find credentials")
	}
	if res.Source != SourceLocalFile {
		t.Errorf("Resolve() source = %s, want local file", res.Source)
	}
	if res.Pair.ClientID != "abc" || res.Pair.ClientSecret != "xyz" {
		t.Errorf("Resolve() pair = %+v, want (abc, xyz)", res.Pair)
	}
}

func TestResolver_Unavailable(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(filepath.Join(dir, ".env"), filepath.Join(dir, "secrets.toml"), quietLogger())
	r.LookupEnv = noEnv

	res := r.Resolve()

	if res.Available {
		t.Error("Resolve() should report unavailable when no source has credentials")
	}
	if res.Source != SourceNone {
		t.Errorf("Resolve() source = %s, want none", res.Source)
	}
}

func TestPersist_PreservesOtherKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	os.WriteFile(path, []byte("OTHER_KEY=keepme\n"), 0600)

	if err := Persist(path, Pair{"new-id", "new-secret"}); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	env, err := LoadLocalFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if env.ClientID != "new-id" || env.ClientSecret != "new-secret" {
		t.Errorf("persisted pair = %+v", env)
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "OTHER_KEY") {
		t.Error("Persist() dropped unrelated keys")
	}
}
