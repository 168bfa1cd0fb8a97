package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafeFilename is returned when a filename has nothing left after sanitization.
var ErrUnsafeFilename = errors.New("storage: filename is empty after sanitization")

// allowedExtensions is the document allow-list, matched case-insensitively.
var allowedExtensions = map[string]struct{}{
	"pdf": {}, "doc": {}, "docx": {}, "txt": {}, "ppt": {},
	"pptx": {}, "odt": {}, "ods": {}, "odp": {}, "rtf": {},
}

// AllowedExtension reports whether the filename carries an extension from
// the document allow-list.
func AllowedExtension(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	_, ok := allowedExtensions[ext]
	return ok
}

// SanitizeFilename reduces an incoming filename to a safe base name: path
// components are stripped and only letters, digits, '.', '-' and '_' remain
// (spaces become underscores). The extension is sanitized separately so that
// trimming stray dots never eats the separator before it. Returns "" when no
// safe base name is left, which also covers "." and "..".
func SanitizeFilename(name string) string {
	// filepath.Base does not treat '\' as a separator on Unix
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	ext := filepath.Ext(name)
	base := strings.Trim(sanitizeSegment(strings.TrimSuffix(name, ext)), "._")
	ext = strings.Trim(sanitizeSegment(ext), "._")
	if base == "" {
		return ""
	}
	if ext == "" {
		return base
	}
	return base + "." + ext
}

func sanitizeSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '_':
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ResolveCollision returns the first candidate derived from name that the
// exists probe reports free, appending _1, _2, ... before the extension.
// The probe runs against live state, so the check-then-act window between
// concurrent uploads of the same name remains; the unique index on stored
// paths turns a lost race into an insert failure handled by the caller.
func ResolveCollision(name string, exists func(string) bool) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := name
	for counter := 1; exists(candidate); counter++ {
		candidate = fmt.Sprintf("%s_%d%s", base, counter, ext)
	}
	return candidate
}

// Store abstracts where uploaded note files live so handlers and tests can
// swap the backing filesystem. Paths returned by Save are relative,
// prefixed with the store root, and are what Note.FilePath records.
type Store interface {
	// Save sanitizes filename, resolves collisions and writes src. It
	// returns the stored path and the number of bytes written. Partial
	// writes are removed before an error is returned.
	Save(filename string, src io.Reader) (relPath string, written int64, err error)
	// Remove deletes a previously stored file.
	Remove(relPath string) error
	// Exists reports whether relPath currently exists in the store.
	Exists(relPath string) bool
	// Path maps relPath to a filesystem path servable by the HTTP layer.
	Path(relPath string) string
	// Join maps a bare sanitized filename to the rel path Save would have
	// recorded for it, without touching the store.
	Join(filename string) string
}

// DiskStore keeps uploads as plain files under a single directory.
type DiskStore struct {
	root string
}

// NewDiskStore creates the storage directory if needed and returns a store
// rooted there.
func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("storage: empty root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) Save(filename string, src io.Reader) (string, int64, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return "", 0, ErrUnsafeFilename
	}

	name = ResolveCollision(name, func(candidate string) bool {
		_, err := os.Stat(filepath.Join(s.root, candidate))
		return err == nil
	})
	rel := filepath.Join(s.root, name)

	f, err := os.OpenFile(rel, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, err
	}
	written, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(rel)
		return "", 0, err
	}
	return rel, written, nil
}

func (s *DiskStore) Remove(relPath string) error {
	return os.Remove(relPath)
}

func (s *DiskStore) Exists(relPath string) bool {
	_, err := os.Stat(relPath)
	return err == nil
}

func (s *DiskStore) Path(relPath string) string {
	return relPath
}

func (s *DiskStore) Join(filename string) string {
	return filepath.Join(s.root, filename)
}
