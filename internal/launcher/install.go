package launcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fieldstone/navctl/internal/dict"
)

// Install builds the two service binaries into the managed bin directory so
// later launches do not depend on PATH.
func (l *Launcher) Install(ctx context.Context) error {
	if err := l.Runner.CheckBinaryExists("go"); err != nil {
		return fmt.Errorf("go toolchain required to install services: %w", err)
	}

	binDir := l.Config.BinDir()
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating bin directory: %w", err)
	}

	for _, s := range specs {
		out := filepath.Join(binDir, s.binary)
		l.printf("Building %s", out)
		result := l.Runner.Run(ctx, "go", []string{"build", "-o", out, "./cmd/" + s.binary})
		if !result.Success {
			return fmt.Errorf("building %s: %s", s.binary, result.Stderr)
		}
	}

	dictDir := l.Config.DictDir()
	if err := dict.Ensure(dictDir); err != nil {
		return fmt.Errorf("seeding name dictionaries: %w", err)
	}
	if l.Config.FirstNamesURL != "" || l.Config.LastNamesURL != "" {
		l.printf("Downloading name dictionaries to %s", dictDir)
		err := dict.FetchInto(ctx, dict.NewHTTPFetcher(), dictDir,
			l.Config.FirstNamesURL, l.Config.LastNamesURL)
		if err != nil {
			return fmt.Errorf("downloading name dictionaries: %w", err)
		}
	}

	l.printf("Installed service binaries to %s", binDir)
	return nil
}
