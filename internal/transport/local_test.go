package transport

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Execute_CapturesOutput(t *testing.T) {
	l := NewLocal()

	result, err := l.Execute(context.Background(), "echo hello", ExecOpts{})
	require.NoError(t, err)

	assert.Equal(t, "hello\n", result.Output)
	assert.Equal(t, "", result.Stderr)
	assert.Equal(t, 0, result.ExitCode)
}

func TestLocal_Execute_NonZeroExit(t *testing.T) {
	l := NewLocal()

	result, err := l.Execute(context.Background(), "echo oops >&2; exit 3", ExecOpts{})
	require.Error(t, err)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Contains(t, cmdErr.Stderr, "oops")

	// The result still carries what the command produced.
	require.NotNil(t, result)
	assert.Equal(t, 3, result.ExitCode)
}

func TestLocal_Execute_Streams(t *testing.T) {
	l := NewLocal()

	var buf bytes.Buffer
	result, err := l.Execute(context.Background(), "echo streamed", ExecOpts{Stream: &buf})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "streamed")
	assert.Equal(t, "", result.Output)
}

func TestLocal_ExistsDir(t *testing.T) {
	l := NewLocal()
	tmp := t.TempDir()

	file := filepath.Join(tmp, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	t.Run("directory exists", func(t *testing.T) {
		ok, err := l.ExistsDir(context.Background(), tmp)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("file is not a directory", func(t *testing.T) {
		ok, err := l.ExistsDir(context.Background(), file)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing path", func(t *testing.T) {
		ok, err := l.ExistsDir(context.Background(), filepath.Join(tmp, "missing"))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestLocal_ExistsFile(t *testing.T) {
	l := NewLocal()
	tmp := t.TempDir()

	file := filepath.Join(tmp, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	t.Run("file exists", func(t *testing.T) {
		ok, err := l.ExistsFile(context.Background(), file)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("directory is not a file", func(t *testing.T) {
		ok, err := l.ExistsFile(context.Background(), tmp)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing path", func(t *testing.T) {
		ok, err := l.ExistsFile(context.Background(), filepath.Join(tmp, "missing"))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestLocal_RemoveFile(t *testing.T) {
	l := NewLocal()
	tmp := t.TempDir()

	file := filepath.Join(tmp, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	require.NoError(t, l.RemoveFile(context.Background(), file, false))
	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))

	// Removing an absent file is idempotent.
	assert.NoError(t, l.RemoveFile(context.Background(), file, false))
}

func TestLocal_Symlink(t *testing.T) {
	l := NewLocal()
	tmp := t.TempDir()

	target := filepath.Join(tmp, "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	link := filepath.Join(tmp, "link")

	require.NoError(t, l.Symlink(context.Background(), target, link, false))
	got, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	// Replacing an existing link points it at the new target.
	other := filepath.Join(tmp, "other.txt")
	require.NoError(t, os.WriteFile(other, []byte("y"), 0644))
	require.NoError(t, l.Symlink(context.Background(), other, link, false))
	got, err = os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, other, got)
}

func TestLocal_Execute_ContextCancelled(t *testing.T) {
	l := NewLocal()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Execute(ctx, "sleep 10", ExecOpts{})
	require.Error(t, err)

	var cmdErr *CommandError
	assert.False(t, errors.As(err, &cmdErr))
}

func TestLocal_Host(t *testing.T) {
	l := NewLocal()
	assert.Equal(t, "localhost", l.Host())
	assert.NoError(t, l.Close())
}
