package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// BundleStore persists submission bundles on disk under a base directory.
// Keys are relative paths derived deterministically from the submission, so
// deletion never requires reading a stored key back first.
type BundleStore struct {
	baseDir string
}

// NewBundleStore ensures the base directory exists and returns a handle.
func NewBundleStore(baseDir string) (*BundleStore, error) {
	if baseDir == "" {
		baseDir = "./bundles"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create bundle directory: %w", err)
	}
	return &BundleStore{baseDir: baseDir}, nil
}

// Save writes the given bytes under the provided key and returns the key.
func (s *BundleStore) Save(key string, data []byte) (string, error) {
	path := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare bundle directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write bundle: %w", err)
	}
	return key, nil
}

// SaveStream copies from reader into the target bundle path.
func (s *BundleStore) SaveStream(key string, r io.Reader) (string, error) {
	path := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare bundle directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create bundle file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write bundle stream: %w", err)
	}
	return key, nil
}

// Open returns a read-only handle for the stored bundle.
func (s *BundleStore) Open(key string) (*os.File, error) {
	file, err := os.Open(s.resolve(key))
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	return file, nil
}

// Exists reports whether a bundle is present under the key.
func (s *BundleStore) Exists(key string) bool {
	info, err := os.Stat(s.resolve(key))
	return err == nil && !info.IsDir()
}

// Delete removes a stored bundle. A missing bundle is treated as success so
// repeated export confirmations stay idempotent at the storage layer.
func (s *BundleStore) Delete(key string) error {
	if err := os.Remove(s.resolve(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete bundle: %w", err)
	}
	return nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *BundleStore) Path(key string) string {
	return s.resolve(key)
}

func (s *BundleStore) resolve(key string) string {
	if filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(s.baseDir, key)
}
