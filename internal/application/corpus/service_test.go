package corpus

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemScribe/internal/config"
	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemScribe/internal/testutil"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

func newTestService(t *testing.T) (Service, *testutil.MemStore, string) {
	t.Helper()
	store := testutil.NewMemStore()
	dir := t.TempDir()
	svc := NewService(store, "chemscribe-corpus", dir, config.UploadConfig{
		MaxSizeBytes: 1024,
		AllowedExts:  []string{".pdf", ".docx", ".txt"},
	}, logging.NewNopLogger())
	return svc, store, dir
}

func TestUpload_StoresAndMirrors(t *testing.T) {
	svc, store, dir := newTestService(t)

	info, err := svc.Upload(context.Background(), "zeolites.txt", 11,
		strings.NewReader("MOF review."))
	require.NoError(t, err)

	assert.Equal(t, "zeolites.txt", info.Name)
	assert.Equal(t, int64(11), info.Size)
	assert.True(t, store.Has("chemscribe-corpus", "corpus/zeolites.txt"))

	mirrored, err := os.ReadFile(filepath.Join(dir, "zeolites.txt"))
	require.NoError(t, err)
	assert.Equal(t, "MOF review.", string(mirrored))
}

func TestUpload_StripsDirectoryTraversal(t *testing.T) {
	svc, store, _ := newTestService(t)

	info, err := svc.Upload(context.Background(), "../../etc/passwd.txt", 4,
		strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "passwd.txt", info.Name)
	assert.True(t, store.Has("chemscribe-corpus", "corpus/passwd.txt"))
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), "malware.exe", 4,
		strings.NewReader("data"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUploadInvalidType))
}

func TestUpload_RejectsOversizeDeclared(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Upload(context.Background(), "big.txt", 4096,
		strings.NewReader("small body"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUploadTooLarge))
}

func TestUpload_RejectsOversizeActual(t *testing.T) {
	svc, _, _ := newTestService(t)

	// Declared size lies; the actual body exceeds the cap.
	body := bytes.Repeat([]byte("x"), 2048)
	_, err := svc.Upload(context.Background(), "lying.txt", 10,
		bytes.NewReader(body))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUploadTooLarge))
}

func TestList_ReturnsStoredFiles(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "b.txt", 1, strings.NewReader("b"))
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "a.txt", 1, strings.NewReader("a"))
	require.NoError(t, err)

	infos, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "a.txt", infos[0].Name)
	assert.Equal(t, "b.txt", infos[1].Name)
}

func TestRemove_DeletesStoreAndMirror(t *testing.T) {
	svc, store, dir := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "gone.txt", 1, strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, "gone.txt"))

	assert.False(t, store.Has("chemscribe-corpus", "corpus/gone.txt"))
	_, err = os.Stat(filepath.Join(dir, "gone.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestList_WithoutObjectStoreFallsBackToDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.bin"), []byte("x"), 0o644))

	svc := NewService(nil, "", dir, config.UploadConfig{
		MaxSizeBytes: 1024,
		AllowedExts:  []string{".txt"},
	}, logging.NewNopLogger())

	infos, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "local.txt", infos[0].Name)
}
