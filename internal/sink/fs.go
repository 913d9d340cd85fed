package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pbaranau/offersnap/internal/scrape"
)

// Filesystem writes one snapshot document per site per day under a base
// directory, as <base>/<site>/<YYYY-MM-DD>.json. A second harvest on the same
// day overwrites that day's document.
type Filesystem struct {
	baseDir string
	pretty  bool
}

// NewFilesystem verifies the base directory exists and is writable, creating
// it when missing. With pretty set, documents are indented for inspection.
func NewFilesystem(baseDir string, pretty bool) (*Filesystem, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(baseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(baseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("clean up test file: %w", err)
	}

	return &Filesystem{baseDir: baseDir, pretty: pretty}, nil
}

// WriteSnapshot persists the offers harvested from site at takenAt.
func (f *Filesystem) WriteSnapshot(_ context.Context, site string, takenAt time.Time, offers []scrape.Offer) error {
	if strings.TrimSpace(site) == "" {
		return fmt.Errorf("site is required")
	}

	snap := NewSnapshot(takenAt, offers)

	var (
		data []byte
		err  error
	)
	if f.pretty {
		data, err = json.MarshalIndent(snap, "", "\t")
	} else {
		data, err = json.Marshal(snap)
	}
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Join(f.baseDir, site)

	// Reject site names that would escape the base directory.
	cleanBase := filepath.Clean(f.baseDir)
	if !strings.HasPrefix(filepath.Clean(dir), cleanBase+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected")
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create site directory: %w", err)
	}

	path := filepath.Join(dir, Day(takenAt)+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
