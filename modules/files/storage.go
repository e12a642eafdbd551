package files

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for blob storage operations.
var (
	// ErrBlobNotFound is returned when the requested blob does not exist.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrInvalidBlobName is returned when a blob name contains path
	// separators or other characters that could escape the storage dir.
	ErrInvalidBlobName = errors.New("invalid blob name")
)

// BlobStore defines the interface for attachment blob storage.
type BlobStore interface {
	Save(ctx context.Context, name string, data []byte) error
	Open(ctx context.Context, name string) ([]byte, error)
	Remove(ctx context.Context, name string) error
}

// DiskStore implements BlobStore on the local filesystem. Blobs are
// written once and never modified; removal is the only mutation.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a DiskStore rooted at dir. Call Init before use.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Init creates the storage directory if it does not exist.
func (s *DiskStore) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create blob directory %s: %w", s.dir, err)
	}
	return nil
}

// Dir returns the storage directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes a blob under the given generated name.
func (s *DiskStore) Save(_ context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	return nil
}

// Open reads a blob back.
func (s *DiskStore) Open(_ context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	return data, nil
}

// Remove deletes a blob. Removing a blob that is already gone is not an
// error.
func (s *DiskStore) Remove(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to remove blob %s: %w", name, err)
	}
	return nil
}

// path validates the blob name and resolves it inside the storage dir.
// Names are generated server-side, but the check keeps a stored name that
// somehow picked up separators from escaping the directory.
func (s *DiskStore) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", ErrInvalidBlobName
	}
	return filepath.Join(s.dir, name), nil
}
