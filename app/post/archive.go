package post

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadArchive reads a JSON archive: an array of raw post records in the
// persisted layout. The records come back untyped; normalization is the
// caller's next step.
func LoadArchive(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	var records []any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse archive %s: %w", path, err)
	}

	return records, nil
}

// SaveArchive writes raw records back out in the persisted layout. The
// records are written verbatim, so a load-save-load cycle reproduces the
// archive exactly.
func SaveArchive(path string, records []any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	return nil
}
