package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// pngHeader — минимальные магические байты PNG.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func TestPhotoStorage_SaveReportImage(t *testing.T) {
	root := t.TempDir()
	store, err := NewPhotoStorage(root, "/media", 1)
	assert.NoError(t, err)

	url, err := store.SaveReportImage(context.Background(), pngHeader)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/media/reports/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	relative := strings.TrimPrefix(url, "/media/")
	saved, err := os.ReadFile(filepath.Join(root, relative))
	assert.NoError(t, err)
	assert.Equal(t, pngHeader, saved)
}

func TestPhotoStorage_DeleteByPublicURL(t *testing.T) {
	root := t.TempDir()
	store, err := NewPhotoStorage(root, "/media", 1)
	assert.NoError(t, err)

	url, err := store.SaveReportImage(context.Background(), pngHeader)
	assert.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), url))

	relative := strings.TrimPrefix(url, "/media/")
	_, err = os.Stat(filepath.Join(root, relative))
	assert.True(t, os.IsNotExist(err))

	// Повторное удаление того же URL не ошибка.
	assert.NoError(t, store.Delete(context.Background(), url))
}

func TestPhotoStorage_RejectsNonImages(t *testing.T) {
	store, err := NewPhotoStorage(t.TempDir(), "/media", 1)
	assert.NoError(t, err)

	_, err = store.SaveReportImage(context.Background(), []byte("%PDF-1.4 not an image"))
	assert.Error(t, err)
}

func TestPhotoStorage_RejectsOversized(t *testing.T) {
	store, err := NewPhotoStorage(t.TempDir(), "/media", 1)
	assert.NoError(t, err)

	big := make([]byte, 2*1024*1024)
	copy(big, pngHeader)

	_, err = store.SaveReportImage(context.Background(), big)
	assert.Error(t, err)
}

func TestPhotoStorage_RejectsEmpty(t *testing.T) {
	store, err := NewPhotoStorage(t.TempDir(), "/media", 1)
	assert.NoError(t, err)

	_, err = store.SaveReportImage(context.Background(), nil)
	assert.Error(t, err)
}
