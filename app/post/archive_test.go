package post

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestArchiveRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "archive.json")

	records := []any{
		map[string]any{
			"id":         "p1",
			"type":       "Sidecar",
			"caption":    "round trip",
			"timestamp":  "2024-03-15T10:30:00Z",
			"likesCount": float64(42),
			"hashtags":   []any{"one", "two"},
			"owner":      map[string]any{"username": "alice"},
		},
		map[string]any{
			"id":   "p2",
			"type": "Video",
		},
	}

	if err := SaveArchive(path, records); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadArchive(path)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(records, loaded) {
		t.Errorf("Expected loaded records to equal saved records\nsaved:  %v\nloaded: %v", records, loaded)
	}

	// Normalization of the reloaded records matches the original
	normalizer := NewNormalizer()
	original, _, err := normalizer.Run(records)
	if err != nil {
		t.Fatal(err)
	}
	reloaded, _, err := normalizer.Run(loaded)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(original, reloaded) {
		t.Errorf("Expected identical normalization after round trip\noriginal: %+v\nreloaded: %+v", original, reloaded)
	}
}

func TestArchiveCreatesDirectories(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "dir", "archive.json")

	if err := SaveArchive(path, []any{}); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected archive file to exist, got: %v", err)
	}
}

func TestArchiveEmptyRecords(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "empty.json")

	if err := SaveArchive(path, []any{}); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadArchive(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected 0 records, got %d", len(loaded))
	}
}

func TestArchiveMissingFile(t *testing.T) {
	_, err := LoadArchive(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Error("Expected error for missing archive file, got none")
	}
}

func TestArchiveMalformedJSON(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "broken.json")

	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadArchive(path)
	if err == nil {
		t.Error("Expected error for malformed archive, got none")
	}
}

func TestArchiveNonArrayJSON(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "object.json")

	if err := os.WriteFile(path, []byte(`{"id": "p1"}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadArchive(path)
	if err == nil {
		t.Error("Expected error for non-array archive, got none")
	}
}
