package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func writeVideo(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	// prefix with the name so equally-sized files have distinct content
	require.NoError(t, os.WriteFile(path, append([]byte(name), make([]byte, size)...), 0644))
	return path
}

func TestIsVideoFile(t *testing.T) {
	assert.True(t, IsVideoFile("clip.mp4"))
	assert.True(t, IsVideoFile("CLIP.MOV"))
	assert.True(t, IsVideoFile("a/b/clip.webm"))
	assert.False(t, IsVideoFile("notes.txt"))
	assert.False(t, IsVideoFile("clip.mp4.part"))
}

func TestScanRegistersVideosOnly(t *testing.T) {
	dir := t.TempDir()
	writeVideo(t, dir, "b.mp4", 10)
	writeVideo(t, dir, "a.mov", 20)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	c := openTestCatalog(t)
	entries, err := c.Scan(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// ReadDir returns names sorted
	assert.Equal(t, "a.mov", filepath.Base(entries[0].Path))
	assert.Equal(t, "b.mp4", filepath.Base(entries[1].Path))
	assert.False(t, entries[0].Uploaded)
}

func TestScanIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeVideo(t, dir, "a.mp4", 10)

	c := openTestCatalog(t)
	ctx := context.Background()

	first, err := c.Scan(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, c.MarkUploaded(ctx, first[0].Fingerprint, "https://example.com/v/1"))

	// Rescanning must not resurrect the file as pending.
	second, err := c.Scan(ctx, dir)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.True(t, second[0].Uploaded)

	pending, err := c.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMarkUploadedAndHistory(t *testing.T) {
	dir := t.TempDir()
	writeVideo(t, dir, "a.mp4", 10)
	writeVideo(t, dir, "b.mp4", 10)

	c := openTestCatalog(t)
	ctx := context.Background()

	entries, err := c.Scan(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, c.MarkUploaded(ctx, entries[0].Fingerprint, "https://example.com/v/1"))

	pending, err := c.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entries[1].Fingerprint, pending[0].Fingerprint)

	history, err := c.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Uploaded)
	assert.Equal(t, "https://example.com/v/1", history[0].RemoteURL)
	assert.False(t, history[0].UploadTime.IsZero())
}

func TestMarkUploadedUnknownFingerprint(t *testing.T) {
	c := openTestCatalog(t)
	err := c.MarkUploaded(context.Background(), "no-such-fp", "")
	assert.Error(t, err)
}

func TestClearHistory(t *testing.T) {
	dir := t.TempDir()
	writeVideo(t, dir, "a.mp4", 10)

	c := openTestCatalog(t)
	ctx := context.Background()

	entries, err := c.Scan(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, c.MarkUploaded(ctx, entries[0].Fingerprint, ""))

	cleared, err := c.ClearHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	pending, err := c.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func fingerprintOf(t *testing.T, path string) string {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	fp, err := Fingerprint(path, info)
	require.NoError(t, err)
	return fp
}

func TestFingerprintChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	path := writeVideo(t, dir, "a.mp4", 10)
	fp1 := fingerprintOf(t, path)

	require.NoError(t, os.WriteFile(path, []byte("0123456789ABCDE"), 0644))
	fp2 := fingerprintOf(t, path)

	assert.NotEqual(t, fp1, fp2, "same size, different bytes")
}

func TestFingerprintSurvivesRename(t *testing.T) {
	dir := t.TempDir()
	path := writeVideo(t, dir, "a.mp4", 10)
	fp1 := fingerprintOf(t, path)

	renamed := filepath.Join(dir, "b.mp4")
	require.NoError(t, os.Rename(path, renamed))
	fp2 := fingerprintOf(t, renamed)

	assert.Equal(t, fp1, fp2, "identity follows content, not path")
}
