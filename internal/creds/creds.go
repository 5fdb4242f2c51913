// Package creds resolves the USPS credential pair used for address
// validation.
//
// Sources are consulted in strict order: local credential file, process
// environment, secrets store. Resolution never fails the program; when no
// source provides a complete pair the outcome is "unavailable" and address
// validation is degraded, not fatal.
//
// The decision logic (Resolve) is pure; all file and terminal I/O lives in
// the loaders and the Prompter boundary so precedence can be unit tested
// without a terminal.
package creds

import (
	"log/slog"
	"os"
)

// Environment variable names for the credential pair.
const (
	EnvClientID     = "USPS_CLIENT_ID"
	EnvClientSecret = "USPS_CLIENT_SECRET"
)

// Pair is an opaque client identifier and secret.
type Pair struct {
	ClientID     string
	ClientSecret string
}

// Complete reports whether both halves of the pair are non-empty.
func (p Pair) Complete() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// Source identifies where a credential pair came from.
type Source int

const (
	SourceNone Source = iota
	SourceLocalFile
	SourceEnv
	SourceSecrets
	SourcePrompt
)

func (s Source) String() string {
	switch s {
	case SourceLocalFile:
		return "local file"
	case SourceEnv:
		return "environment"
	case SourceSecrets:
		return "secrets store"
	case SourcePrompt:
		return "operator input"
	default:
		return "none"
	}
}

// Candidates holds the pair loaded from each source, ready for the pure
// precedence decision.
type Candidates struct {
	LocalFile Pair
	Env       Pair
	Secrets   Pair
}

// Resolve applies source precedence: local file, then environment, then
// secrets store. The first complete pair wins. Pure function.
func Resolve(c Candidates) (Pair, Source, bool) {
	if c.LocalFile.Complete() {
		return c.LocalFile, SourceLocalFile, true
	}
	if c.Env.Complete() {
		return c.Env, SourceEnv, true
	}
	if c.Secrets.Complete() {
		return c.Secrets, SourceSecrets, true
	}
	return Pair{}, SourceNone, false
}

// Resolution is the outcome of credential resolution.
type Resolution struct {
	Pair      Pair
	Source    Source
	Available bool
}

// Resolver gathers candidates from the configured locations and applies the
// precedence decision.
type Resolver struct {
	// CredFile is the local key-value credential file path.
	CredFile string
	// SecretsFile is the structured secrets store path.
	SecretsFile string
	// LookupEnv defaults to os.LookupEnv; injectable for tests.
	LookupEnv func(string) (string, bool)
	Logger    *slog.Logger
}

// NewResolver creates a resolver over the given file locations.
func NewResolver(credFile, secretsFile string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		CredFile:    credFile,
		SecretsFile: secretsFile,
		LookupEnv:   os.LookupEnv,
		Logger:      logger,
	}
}

// Resolve loads all sources and returns the resolution. Loader errors are
// logged and treated as "source empty"; they never propagate.
func (r *Resolver) Resolve() Resolution {
	var c Candidates

	local, err := LoadLocalFile(r.CredFile)
	if err != nil {
		r.Logger.Debug("credential file not usable", "path", r.CredFile, "error", err)
	}
	c.LocalFile = local

	c.Env = LoadEnv(r.lookup())

	secrets, err := LoadSecrets(r.SecretsFile)
	if err != nil {
		r.Logger.Debug("secrets store not usable", "path", r.SecretsFile, "error", err)
	}
	c.Secrets = secrets

	pair, source, ok := Resolve(c)
	if ok {
		r.Logger.Info("credentials resolved", "source", source.String())
	} else {
		r.Logger.Info("credentials not found in any source")
	}

	return Resolution{Pair: pair, Source: source, Available: ok}
}

func (r *Resolver) lookup() func(string) (string, bool) {
	if r.LookupEnv != nil {
		return r.LookupEnv
	}
	return os.LookupEnv
}
