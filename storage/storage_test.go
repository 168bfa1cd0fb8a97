package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "notes.pdf", "notes.pdf"},
		{"spaces", "my lecture notes.pdf", "my_lecture_notes.pdf"},
		{"unix traversal", "../../etc/passwd", "passwd"},
		{"windows path", `C:\docs\report.docx`, "report.docx"},
		{"hidden file", "..hidden.pdf", "hidden.pdf"},
		{"shell metachars", "a;b&&c.pdf", "abc.pdf"},
		{"dotted run keeps extension", "...notes..pdf", "notes.pdf"},
		{"dots-only base", "....pdf", ""},
		{"nothing left", "###", ""},
		{"dot", ".", ""},
		{"dotdot", "..", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestAllowedExtension(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"notes.pdf", true},
		{"NOTES.PDF", true},
		{"slides.pptx", true},
		{"sheet.ods", true},
		{"malware.exe", false},
		{"script.sh", false},
		{"noextension", false},
		{"archive.pdf.zip", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, AllowedExtension(tt.in))
		})
	}
}

func TestResolveCollision(t *testing.T) {
	taken := map[string]bool{}
	exists := func(name string) bool { return taken[name] }

	assert.Equal(t, "notes.pdf", ResolveCollision("notes.pdf", exists))

	taken["notes.pdf"] = true
	assert.Equal(t, "notes_1.pdf", ResolveCollision("notes.pdf", exists))

	taken["notes_1.pdf"] = true
	assert.Equal(t, "notes_2.pdf", ResolveCollision("notes.pdf", exists))
}

func TestDiskStoreSaveResolvesCollisions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	first, n, err := store.Save("notes.pdf", strings.NewReader("one"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, "notes.pdf", filepath.Base(first))

	second, _, err := store.Save("notes.pdf", strings.NewReader("two"))
	require.NoError(t, err)
	assert.Equal(t, "notes_1.pdf", filepath.Base(second))

	third, _, err := store.Save("notes.pdf", strings.NewReader("three"))
	require.NoError(t, err)
	assert.Equal(t, "notes_2.pdf", filepath.Base(third))

	// both files keep their own contents
	b, err := os.ReadFile(store.Path(first))
	require.NoError(t, err)
	assert.Equal(t, "one", string(b))
	b, err = os.ReadFile(store.Path(second))
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))
}

func TestDiskStoreSaveRejectsUnsafeName(t *testing.T) {
	store, err := NewDiskStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	_, _, err = store.Save("###", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsafeFilename)
}

func TestDiskStoreSaveStripsPathComponents(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	rel, _, err := store.Save("../escape.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "escape.pdf"), rel)
	assert.True(t, store.Exists(rel))
}

func TestDiskStoreRemove(t *testing.T) {
	store, err := NewDiskStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	rel, _, err := store.Save("notes.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	require.True(t, store.Exists(rel))

	require.NoError(t, store.Remove(rel))
	assert.False(t, store.Exists(rel))
}

func TestDiskStoreJoin(t *testing.T) {
	store, err := NewDiskStore(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	assert.Equal(t, store.Join("notes.pdf"), filepath.Join(store.root, "notes.pdf"))
}
