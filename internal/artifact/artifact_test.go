package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/runtimeerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverReturnsPathDirectly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "libplc_a.so")
	require.NoError(t, os.WriteFile(path, []byte{}, 0o644))

	got, err := Discover(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestDiscoverScansDirectoryForLibplcPrefix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte{}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "libplc_prog.so"), []byte{}, 0o644))

	got, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "libplc_prog.so"), got)
}

func TestDiscoverNotFoundWhenNoMatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.so"), []byte{}, 0o644))

	_, err := Discover(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, runtimeerrors.ErrNotFound))
}

func TestDiscoverNotFoundWhenPathMissing(t *testing.T) {
	_, err := Discover("/nonexistent/path/artifact.so")
	require.Error(t, err)
	assert.True(t, errors.Is(err, runtimeerrors.ErrNotFound))
}

func TestCStringReadsUntilNUL(t *testing.T) {
	buf := []byte("deadbeefcafef00d\x00trailing garbage")
	got := cString(uintptr(unsafe.Pointer(&buf[0])))
	assert.Equal(t, "deadbeefcafef00d", got)
}

func TestCStringEmptyAtNulAddress(t *testing.T) {
	assert.Equal(t, "", cString(0))
}
