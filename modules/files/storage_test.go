package files

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func setupTestStore(t *testing.T) *DiskStore {
	t.Helper()

	store := NewDiskStore(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return store
}

func TestDiskStore_SaveAndOpen(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	content := []byte("attachment bytes")
	if err := store.Save(ctx, "blob-1.txt", content); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Open(ctx, "blob-1.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Open() = %q, want %q", got, content)
	}
}

func TestDiskStore_OpenMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Open(context.Background(), "no-such-blob")
	if !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Open() error = %v, want ErrBlobNotFound", err)
	}
}

func TestDiskStore_Remove(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "blob-2.txt", []byte("bye")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Remove(ctx, "blob-2.txt"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := store.Open(ctx, "blob-2.txt"); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Open() after remove error = %v, want ErrBlobNotFound", err)
	}

	// Removing a missing blob is not an error.
	if err := store.Remove(ctx, "blob-2.txt"); err != nil {
		t.Errorf("Remove() second call error = %v", err)
	}
}

func TestDiskStore_RejectsPathTraversal(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		blobName string
	}{
		{
			name:     "parent traversal",
			blobName: "../escape.txt",
		},
		{
			name:     "nested path",
			blobName: "sub/dir.txt",
		},
		{
			name:     "empty name",
			blobName: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Save(ctx, tt.blobName, []byte("x")); !errors.Is(err, ErrInvalidBlobName) {
				t.Errorf("Save(%q) error = %v, want ErrInvalidBlobName", tt.blobName, err)
			}
			if _, err := store.Open(ctx, tt.blobName); !errors.Is(err, ErrInvalidBlobName) {
				t.Errorf("Open(%q) error = %v, want ErrInvalidBlobName", tt.blobName, err)
			}
		})
	}
}

func TestNewStoredName(t *testing.T) {
	tests := []struct {
		name     string
		original string
		wantExt  string
	}{
		{
			name:     "plain extension",
			original: "report.pdf",
			wantExt:  ".pdf",
		},
		{
			name:     "uppercase extension lowered",
			original: "PHOTO.JPG",
			wantExt:  ".jpg",
		},
		{
			name:     "no extension",
			original: "README",
			wantExt:  "",
		},
		{
			name:     "unsafe extension dropped",
			original: "weird.t@r!",
			wantExt:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewStoredName(tt.original)
			if err != nil {
				t.Fatalf("NewStoredName() error = %v", err)
			}

			base := got
			if tt.wantExt != "" {
				if len(got) <= len(tt.wantExt) || got[len(got)-len(tt.wantExt):] != tt.wantExt {
					t.Fatalf("NewStoredName() = %q, want suffix %q", got, tt.wantExt)
				}
				base = got[:len(got)-len(tt.wantExt)]
			}
			if len(base) != blobNameLength {
				t.Errorf("stored name base length = %d, want %d", len(base), blobNameLength)
			}
			if got == tt.original {
				t.Error("stored name must never equal the client filename")
			}
		})
	}
}

func TestNewStoredName_Unique(t *testing.T) {
	a, err := NewStoredName("same.txt")
	if err != nil {
		t.Fatalf("NewStoredName() error = %v", err)
	}
	b, err := NewStoredName("same.txt")
	if err != nil {
		t.Fatalf("NewStoredName() error = %v", err)
	}
	if a == b {
		t.Error("NewStoredName() produced identical names for two calls")
	}
}
