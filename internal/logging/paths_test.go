package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathManager_BaseDir(t *testing.T) {
	pm := NewPathManager("/var/log/drover")
	assert.Equal(t, "/var/log/drover", pm.BaseDir())
}

func TestPathManager_RunDir(t *testing.T) {
	pm := NewPathManager("/var/log/drover")
	assert.Equal(t, "/var/log/drover/abc123", pm.RunDir("abc123"))
}

func TestPathManager_HostLogPath(t *testing.T) {
	pm := NewPathManager("/var/log/drover")
	path := pm.HostLogPath("abc123", "web-01.example.com")
	assert.Equal(t, "/var/log/drover/abc123/web-01.example.com.log", path)
}

func TestPathManager_EnsureRunDir(t *testing.T) {
	baseDir := t.TempDir()
	pm := NewPathManager(baseDir)

	dir, err := pm.EnsureRunDir("test-run")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(baseDir, "test-run"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPathManager_EnsureHostLog(t *testing.T) {
	baseDir := t.TempDir()
	pm := NewPathManager(baseDir)

	path, err := pm.EnsureHostLog("run1", "web-01")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(baseDir, "run1", "web-01.log"), path)

	// Verify directory was created
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPathManager_LogExists(t *testing.T) {
	baseDir := t.TempDir()
	pm := NewPathManager(baseDir)

	// Transcript doesn't exist yet
	assert.False(t, pm.LogExists("run1", "web-01"))

	// Create the transcript file
	path, err := pm.EnsureHostLog("run1", "web-01")
	require.NoError(t, err)

	err = os.WriteFile(path, []byte("test"), 0644)
	require.NoError(t, err)

	// Now it should exist
	assert.True(t, pm.LogExists("run1", "web-01"))
}

func TestPathManager_RemoveRunLogs(t *testing.T) {
	baseDir := t.TempDir()
	pm := NewPathManager(baseDir)

	// Create transcripts for two hosts
	for _, host := range []string{"web-01", "web-02"} {
		path, err := pm.EnsureHostLog("run1", host)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
	}

	err := pm.RemoveRunLogs("run1")
	require.NoError(t, err)

	_, err = os.Stat(pm.RunDir("run1"))
	assert.True(t, os.IsNotExist(err))

	// Removing a nonexistent run is not an error
	assert.NoError(t, pm.RemoveRunLogs("nonexistent"))
}

func TestPathManager_ListHostLogs(t *testing.T) {
	baseDir := t.TempDir()
	pm := NewPathManager(baseDir)

	t.Run("lists hosts with transcripts", func(t *testing.T) {
		for _, host := range []string{"web-01", "web-02"} {
			path, err := pm.EnsureHostLog("run1", host)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, []byte("test"), 0644))
		}

		hosts, err := pm.ListHostLogs("run1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"web-01", "web-02"}, hosts)
	})

	t.Run("returns nil for a run without logs", func(t *testing.T) {
		hosts, err := pm.ListHostLogs("nonexistent")
		require.NoError(t, err)
		assert.Nil(t, hosts)
	})

	t.Run("ignores non-log files", func(t *testing.T) {
		dir, err := pm.EnsureRunDir("run2")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

		hosts, err := pm.ListHostLogs("run2")
		require.NoError(t, err)
		assert.Empty(t, hosts)
	})
}
