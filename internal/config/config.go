// Package config provides environment-based configuration for navctl and the
// validator services. Settings travel in an explicit Config value; nothing in
// this package mutates the process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Default ports for the two managed services.
const (
	DefaultUIPort  = 8501
	DefaultAPIPort = 8000
)

type Config struct {
	// StateDir holds service logs and built binaries (default ~/.navctl).
	StateDir string

	UIPort  int
	APIPort int

	// CredFile is the local key-value credential file.
	CredFile string
	// SecretsFile is the read-only structured secrets store.
	SecretsFile string

	// DictionaryDir optionally points at first_names.txt / last_names.txt
	// used by the name validator. When empty, DictDir falls back to a
	// directory under StateDir seeded by navctl install.
	DictionaryDir string

	// FirstNamesURL and LastNamesURL optionally override the built-in seed
	// dictionaries with downloaded word lists during install.
	FirstNamesURL string
	LastNamesURL  string

	LogLevel  string
	LogFormat string
}

// Load builds a Config from the environment, applying defaults.
func Load() (*Config, error) {
	stateDir := getEnv("NAVCTL_STATE_DIR", "")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".navctl")
	}

	uiPort, err := getEnvInt("NAVCTL_UI_PORT", DefaultUIPort)
	if err != nil {
		return nil, err
	}
	apiPort, err := getEnvInt("NAVCTL_API_PORT", DefaultAPIPort)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		StateDir:      stateDir,
		UIPort:        uiPort,
		APIPort:       apiPort,
		CredFile:      getEnv("NAVCTL_CRED_FILE", ".env"),
		SecretsFile:   getEnv("NAVCTL_SECRETS_FILE", "secrets.toml"),
		DictionaryDir: getEnv("NAVCTL_DICTIONARY_DIR", ""),
		FirstNamesURL: getEnv("NAVCTL_FIRST_NAMES_URL", ""),
		LastNamesURL:  getEnv("NAVCTL_LAST_NAMES_URL", ""),
		LogLevel:      getEnv("NAVCTL_LOG_LEVEL", "info"),
		LogFormat:     getEnv("NAVCTL_LOG_FORMAT", "text"),
	}

	return cfg, nil
}

// LogDir returns the directory where managed service logs are written.
func (c *Config) LogDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// BinDir returns the directory where service binaries built by navctl live.
func (c *Config) BinDir() string {
	return filepath.Join(c.StateDir, "bin")
}

// DictDir returns the name dictionary directory: DictionaryDir when set,
// otherwise a default under StateDir.
func (c *Config) DictDir() string {
	if c.DictionaryDir != "" {
		return c.DictionaryDir
	}
	return filepath.Join(c.StateDir, "dictionaries")
}

// APIBaseURL returns the local base URL for the API service on the given port.
func (c *Config) APIBaseURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, value)
	}
	if n < 1 || n > 65535 {
		return 0, fmt.Errorf("%s must be a valid port, got %d", key, n)
	}
	return n, nil
}
