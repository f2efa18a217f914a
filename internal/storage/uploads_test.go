package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesadeayuda/helpdesk/internal/config"
)

func newTestStore(t *testing.T) *UploadStore {
	t.Helper()
	store, err := NewUploadStore(config.UploadConfig{
		Dir:               t.TempDir(),
		MaxSizeBytes:      1024,
		AllowedExtensions: []string{"jpg", "jpeg", "png", "gif"},
	})
	require.NoError(t, err)
	return store
}

func TestGenerateFilename(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	name := GenerateFilename("captura de pantalla.png", now)
	parts := strings.SplitN(name, "_", 3)
	require.Len(t, parts, 3)
	assert.Equal(t, "20240315103000", parts[0])
	assert.Len(t, parts[1], 8)
	assert.Equal(t, "captura_de_pantalla.png", parts[2])

	// two calls for the same input never collide
	other := GenerateFilename("captura de pantalla.png", now)
	assert.NotEqual(t, name, other)

	// path components in the original name are stripped
	name = GenerateFilename("../../etc/passwd", now)
	assert.NotContains(t, name, "/")
	assert.True(t, strings.HasSuffix(name, "_passwd"))
}

func TestPathRejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	for _, filename := range []string{"../secret.png", "a/b.png", "..", ".", ""} {
		_, err := store.Path(filename)
		assert.Error(t, err, "filename %q", filename)
	}
}

func TestPathResolvesStoredFile(t *testing.T) {
	store := newTestStore(t)

	full := filepath.Join(store.dir, "foto.png")
	require.NoError(t, os.WriteFile(full, []byte("png"), 0o644))

	path, err := store.Path("foto.png")
	require.NoError(t, err)
	assert.Equal(t, full, path)

	_, err = store.Path("ausente.png")
	assert.Error(t, err)
}

func TestDeleteMissingFileIsNoError(t *testing.T) {
	store := newTestStore(t)

	assert.NoError(t, store.Delete("no-existe.png"))
	assert.NoError(t, store.Delete(""))
	assert.NoError(t, store.Delete("../fuera.png"))
}

func TestDeleteRemovesFile(t *testing.T) {
	store := newTestStore(t)

	full := filepath.Join(store.dir, "foto.png")
	require.NoError(t, os.WriteFile(full, []byte("png"), 0o644))

	require.NoError(t, store.Delete("foto.png"))
	_, err := os.Stat(full)
	assert.True(t, os.IsNotExist(err))
}
