package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opspulse/internal/errors"
)

func writeArchive(t *testing.T, root, month, name string) {
	t.Helper()
	dir := filepath.Join(root, month)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("archive"), 0644))
}

func TestDiscoverArchives(t *testing.T) {
	root := t.TempDir()
	writeArchive(t, root, "202506", "20250610.7z")
	writeArchive(t, root, "202506", "20250609.zip")
	writeArchive(t, root, "202505", "20250531.7z")

	// Noise that must be ignored.
	writeArchive(t, root, "202506", "notes.txt")
	writeArchive(t, root, "backup", "20250601.7z")
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.7z"), []byte("x"), 0644))

	candidates, err := DiscoverArchives(root)
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// Ascending by date so comparisons can read the preceding day.
	assert.Equal(t, time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC), candidates[0].Date)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), candidates[1].Date)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), candidates[2].Date)
	assert.Equal(t, filepath.Join(root, "202506", "20250609.zip"), candidates[1].Path)
}

func TestDiscoverArchivesRejectsDateOutsideMonthFolder(t *testing.T) {
	root := t.TempDir()
	writeArchive(t, root, "202506", "20250710.7z")

	candidates, err := DiscoverArchives(root)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestDiscoverArchivesMissingRoot(t *testing.T) {
	_, err := DiscoverArchives(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestFindArchive(t *testing.T) {
	root := t.TempDir()
	writeArchive(t, root, "202506", "20250609.zip")

	path, err := FindArchive(root, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "202506", "20250609.zip"), path)
}

func TestFindArchivePrefers7z(t *testing.T) {
	root := t.TempDir()
	writeArchive(t, root, "202506", "20250609.7z")
	writeArchive(t, root, "202506", "20250609.zip")

	path, err := FindArchive(root, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "202506", "20250609.7z"), path)
}

func TestFindArchiveNotFound(t *testing.T) {
	root := t.TempDir()

	_, err := FindArchive(root, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArchiveNotFound)
}
