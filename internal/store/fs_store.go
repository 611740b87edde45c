package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore implements the Store interface on the filesystem.
// Records are stored in a directory structure: <baseDir>/renders/<id>/
//
// Thread-safety: This implementation uses atomic file operations (rename)
// and does not require locks. Multiple goroutines can safely call methods
// concurrently.
type FSStore struct {
	baseDir string // Root directory for all render data (e.g., "./data")
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

func (fs *FSStore) rendersDir() string {
	return filepath.Join(fs.baseDir, "renders")
}

// recordDir returns the directory path for a given record ID.
func (fs *FSStore) recordDir(id string) string {
	return filepath.Join(fs.rendersDir(), id)
}

// recordPath returns the path to the record.json file.
func (fs *FSStore) recordPath(id string) string {
	return filepath.Join(fs.recordDir(id), "record.json")
}

// checkID rejects IDs that would escape the renders directory.
func checkID(id string) error {
	if id == "" {
		return fmt.Errorf("record ID cannot be empty")
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid record ID: %q", id)
	}
	return nil
}

// SaveRecord atomically saves a record.
// Uses temp file + rename pattern to ensure atomicity.
func (fs *FSStore) SaveRecord(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if err := checkID(rec.ID); err != nil {
		return err
	}

	dir := fs.recordDir(rec.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	// Write to temporary file first (atomic pattern)
	finalPath := fs.recordPath(rec.ID)
	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp record file: %w", err)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename record file: %w", err)
	}

	slog.Debug("Record saved", "id", rec.ID, "path", finalPath)
	return nil
}

// LoadRecord retrieves the record with the given ID.
func (fs *FSStore) LoadRecord(id string) (*Record, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	path := fs.recordPath(id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{ID: id}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to deserialize record: %w", err)
	}

	slog.Debug("Record loaded", "id", id, "path", path)
	return &rec, nil
}

// ListRecords returns metadata for all stored records, newest first.
func (fs *FSStore) ListRecords() ([]RecordInfo, error) {
	entries, err := os.ReadDir(fs.rendersDir())
	if os.IsNotExist(err) {
		// Nothing rendered yet
		return []RecordInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read renders directory: %w", err)
	}

	infos := []RecordInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		id := entry.Name()
		if _, err := os.Stat(fs.recordPath(id)); os.IsNotExist(err) {
			continue // Skip directories without record.json
		}

		rec, err := fs.LoadRecord(id)
		if err != nil {
			slog.Warn("Failed to load record for listing", "id", id, "error", err)
			continue
		}
		infos = append(infos, rec.ToInfo())
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})

	slog.Debug("Listed records", "count", len(infos))
	return infos, nil
}

// DeleteRecord removes the record directory and all of its artifacts.
func (fs *FSStore) DeleteRecord(id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	dir := fs.recordDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &NotFoundError{ID: id}
	} else if err != nil {
		return fmt.Errorf("failed to stat record directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove record directory: %w", err)
	}

	slog.Debug("Record deleted", "id", id, "path", dir)
	return nil
}

// ArtifactPath returns <baseDir>/renders/<id>/<name>, creating the record
// directory so callers can write to the path directly.
func (fs *FSStore) ArtifactPath(id, name string) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid artifact name: %q", name)
	}

	dir := fs.recordDir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create record directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}
