// Package dict provisions the name dictionaries used by the validator API.
package dict

import (
	"context"
	"embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

//go:embed data/first_names.txt data/last_names.txt
var seedFS embed.FS

// File names the name validator looks for inside the dictionary directory.
const (
	FirstNamesFile = "first_names.txt"
	LastNamesFile  = "last_names.txt"
)

// HTTPFetcher downloads dictionary files over HTTP.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a new HTTPFetcher with sensible defaults.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch downloads data from a URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	return data, nil
}

// Ensure creates dir and writes the built-in seed dictionaries for any file
// that does not already exist. Existing files are left untouched.
func Ensure(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dictionary directory: %w", err)
	}

	for _, name := range []string{FirstNamesFile, LastNamesFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		data, err := seedFS.ReadFile("data/" + name)
		if err != nil {
			return fmt.Errorf("failed to read seed dictionary %s: %w", name, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// FetchInto downloads dictionaries from the given URLs into dir, replacing
// whatever is there. An empty URL skips that file.
func FetchInto(ctx context.Context, f *HTTPFetcher, dir, firstNamesURL, lastNamesURL string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dictionary directory: %w", err)
	}

	sources := []struct {
		url  string
		name string
	}{
		{firstNamesURL, FirstNamesFile},
		{lastNamesURL, LastNamesFile},
	}
	for _, src := range sources {
		if src.url == "" {
			continue
		}
		data, err := f.Fetch(ctx, src.url)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, src.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}
