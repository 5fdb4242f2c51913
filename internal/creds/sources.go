package creds

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// LoadLocalFile reads the local credential file, plain KEY=value lines with
// leading-# comments ignored. A missing file is not an error; it just yields
// an empty pair.
func LoadLocalFile(path string) (Pair, error) {
	if path == "" {
		return Pair{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Pair{}, nil
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return Pair{}, fmt.Errorf("failed to parse credential file %s: %w", path, err)
	}

	return Pair{
		ClientID:     env[EnvClientID],
		ClientSecret: env[EnvClientSecret],
	}, nil
}

// LoadEnv reads the pair from the process environment via the given lookup.
func LoadEnv(lookup func(string) (string, bool)) Pair {
	var p Pair
	if v, ok := lookup(EnvClientID); ok {
		p.ClientID = v
	}
	if v, ok := lookup(EnvClientSecret); ok {
		p.ClientSecret = v
	}
	return p
}

// secretsDoc mirrors the flat layout of the secrets store file.
type secretsDoc struct {
	ClientID     string `toml:"USPS_CLIENT_ID"`
	ClientSecret string `toml:"USPS_CLIENT_SECRET"`
}

// LoadSecrets reads the structured secrets store (TOML, quoted key-value
// pairs). Read-only fallback source; a missing file yields an empty pair.
func LoadSecrets(path string) (Pair, error) {
	if path == "" {
		return Pair{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Pair{}, nil
		}
		return Pair{}, fmt.Errorf("failed to read secrets store %s: %w", path, err)
	}

	var doc secretsDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Pair{}, fmt.Errorf("failed to parse secrets store %s: %w", path, err)
	}

	return Pair{ClientID: doc.ClientID, ClientSecret: doc.ClientSecret}, nil
}

// Persist writes the pair to the local credential file, preserving any other
// keys already present.
func Persist(path string, pair Pair) error {
	env := map[string]string{}

	if _, err := os.Stat(path); err == nil {
		existing, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("failed to read existing credential file %s: %w", path, err)
		}
		env = existing
	}

	env[EnvClientID] = pair.ClientID
	env[EnvClientSecret] = pair.ClientSecret

	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("failed to write credential file %s: %w", path, err)
	}
	return nil
}
