package plugindriver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/imagetable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDescriptorFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "plugins.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigSkipsDisabledDescriptors(t *testing.T) {
	path := writeDescriptorFile(t, "disabled,plugins/none.so,0,1,/cfg\n")

	d := New(imagetable.New())
	require.NoError(t, d.LoadConfig(path))
	assert.Equal(t, 0, d.Count())
}

func TestLoadConfigRecordsFailedNativeOpenWithoutAborting(t *testing.T) {
	path := writeDescriptorFile(t, "missing,/nonexistent/plugin.so,1,1,/cfg\n")

	d := New(imagetable.New())
	require.NoError(t, d.LoadConfig(path))
	assert.Equal(t, 1, d.Count())

	d.Init()
	d.Start()
	d.CycleStart()
	d.CycleEnd()
	d.Stop()
}

func TestDestroyResetsCount(t *testing.T) {
	path := writeDescriptorFile(t, "missing,/nonexistent/plugin.so,1,1,/cfg\n")

	d := New(imagetable.New())
	require.NoError(t, d.LoadConfig(path))
	require.Equal(t, 1, d.Count())

	d.Destroy()
	assert.Equal(t, 0, d.Count())
}

func TestLoadConfigRejectsBadDescriptorFile(t *testing.T) {
	path := writeDescriptorFile(t, "too,few,fields\n")

	d := New(imagetable.New())
	err := d.LoadConfig(path)
	assert.Error(t, err)
}
