package files

import (
	"path/filepath"
	"strings"

	nanoid "github.com/jaevor/go-nanoid"
)

// blobNameLength is the length of the random part of a stored blob name.
const blobNameLength = 21

// maxExtLength caps the extension carried over from the original
// filename, so a hostile filename cannot inflate the stored name.
const maxExtLength = 10

// NewStoredName generates a collision-resistant name for a blob,
// preserving the original file extension when it looks sane. The
// client-supplied filename itself is never used on disk.
func NewStoredName(originalName string) (string, error) {
	gen, err := nanoid.Standard(blobNameLength)
	if err != nil {
		return "", err
	}
	return gen() + safeExt(originalName), nil
}

// safeExt extracts a lowercase alphanumeric extension from a filename,
// or returns "" when there is none worth keeping.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || ext == "." || len(ext) > maxExtLength {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
