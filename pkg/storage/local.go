package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LocalFiles persists generated content under a root directory. Market
// snapshots live under daily/, share pages under share/ and generated
// posts under posts/; callers pass paths relative to the root.
type LocalFiles struct {
	root string
}

// NewLocalFiles creates the root directory if needed and returns a store
// rooted there.
func NewLocalFiles(root string) (*LocalFiles, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &LocalFiles{root: root}, nil
}

// Root returns the absolute root directory of the store.
func (s *LocalFiles) Root() string {
	return s.root
}

// Path resolves a relative path against the store root.
func (s *LocalFiles) Path(relPath string) string {
	return filepath.Join(s.root, relPath)
}

// WriteFile writes data to relPath, creating parent directories as
// needed, and returns the absolute path written.
func (s *LocalFiles) WriteFile(relPath string, data []byte) (string, error) {
	path := s.Path(relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

// ReadFile reads the file at relPath.
func (s *LocalFiles) ReadFile(relPath string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(relPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// WriteJSON marshals v with indentation and writes it to relPath.
func (s *LocalFiles) WriteJSON(relPath string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return s.WriteFile(relPath, data)
}

// ReadJSON reads relPath and unmarshals it into dest.
func (s *LocalFiles) ReadJSON(relPath string, dest interface{}) error {
	data, err := s.ReadFile(relPath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// Exists reports whether relPath exists.
func (s *LocalFiles) Exists(relPath string) bool {
	_, err := os.Stat(s.Path(relPath))
	return err == nil
}

// List returns the file names in relDir sorted ascending. Subdirectories
// are skipped. A missing directory yields an empty list, not an error,
// so first runs behave the same as empty ones.
func (s *LocalFiles) List(relDir string) ([]string, error) {
	entries, err := os.ReadDir(s.Path(relDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Strings(names)
	return names, nil
}
