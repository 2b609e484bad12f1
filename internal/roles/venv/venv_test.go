package venv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/drover/internal/role"
	"github.com/jmgilman/drover/internal/transport"
	"github.com/jmgilman/drover/internal/transport/mocks"
)

// envTransport reports the given directories as existing and succeeds on
// every command.
func envTransport(existing ...string) *mocks.TransportMock {
	return &mocks.TransportMock{
		HostFunc: func() string { return "web-01" },
		ExistsDirFunc: func(_ context.Context, p string) (bool, error) {
			for _, dir := range existing {
				if dir == p {
					return true, nil
				}
			}
			return false, nil
		},
		ExecuteFunc: func(_ context.Context, _ string, _ transport.ExecOpts) (*transport.Result, error) {
			return &transport.Result{}, nil
		},
	}
}

func newContext(t *testing.T, mock *mocks.TransportMock, user string) *role.Context {
	t.Helper()

	c, err := role.NewContext(role.ContextConfig{Transport: mock, User: user})
	require.NoError(t, err)
	return c
}

func TestVenv_EnvDir(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		base     string
		env      string
		expected string
	}{
		{"root user default", "root", "", "app", "/root/.virtualenvs/app"},
		{"regular user default", "johndoe", "", "app", "/home/johndoe/.virtualenvs/app"},
		{"explicit base wins", "johndoe", "/x", "app", "/x/app"},
		{"explicit base wins for root", "root", "/srv/envs", "app", "/srv/envs/app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(newContext(t, envTransport(), tt.user))
			v.BaseDirectory = tt.base
			assert.Equal(t, tt.expected, v.EnvDir(tt.env))
		})
	}
}

func TestVenv_UserOverride(t *testing.T) {
	v := New(newContext(t, envTransport(), "root"))

	// Defaults to the context user, reconfigurable afterwards.
	assert.Equal(t, "/root/.virtualenvs", v.BaseDir())
	v.User = "johndoe"
	assert.Equal(t, "/home/johndoe/.virtualenvs", v.BaseDir())
}

func TestVenv_Exists(t *testing.T) {
	mock := envTransport("/root/.virtualenvs/app")
	v := New(newContext(t, mock, "root"))

	exists, err := v.Exists(context.Background(), "app")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = v.Exists(context.Background(), "other")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestVenv_Create(t *testing.T) {
	mock := envTransport()
	v := New(newContext(t, mock, "johndoe"))

	dir, err := v.Create(context.Background(), "app", Options{})
	require.NoError(t, err)
	assert.Equal(t, "/home/johndoe/.virtualenvs/app", dir)

	calls := mock.ExecuteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "virtualenv /home/johndoe/.virtualenvs/app", calls[0].Command)
	// Created as the environment's owner.
	assert.Equal(t, "johndoe", calls[0].Opts.User)
}

func TestVenv_Create_SystemSitePackages(t *testing.T) {
	mock := envTransport()
	v := New(newContext(t, mock, "root"))

	_, err := v.Create(context.Background(), "app", Options{SystemSitePackages: true})
	require.NoError(t, err)

	calls := mock.ExecuteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "virtualenv --system-site-packages /root/.virtualenvs/app", calls[0].Command)
}

func TestVenv_In_CreatesAbsentEnvironment(t *testing.T) {
	mock := envTransport()
	c := newContext(t, mock, "root")
	v := New(c)

	err := v.In(context.Background(), "app", Options{}, func() error {
		_, err := c.Execute(context.Background(), "pip install flask", transport.ExecOpts{})
		return err
	})
	require.NoError(t, err)

	calls := mock.ExecuteCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "virtualenv /root/.virtualenvs/app", calls[0].Command)
	assert.Equal(t, "source /root/.virtualenvs/app/bin/activate && pip install flask", calls[1].Command)
}

func TestVenv_In_ReusesExistingEnvironment(t *testing.T) {
	mock := envTransport("/root/.virtualenvs/app")
	c := newContext(t, mock, "root")
	v := New(c)

	err := v.In(context.Background(), "app", Options{}, func() error {
		_, err := c.Execute(context.Background(), "python --version", transport.ExecOpts{})
		return err
	})
	require.NoError(t, err)

	// No creation command, just the wrapped command.
	calls := mock.ExecuteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "source /root/.virtualenvs/app/bin/activate && python --version", calls[0].Command)
}

func TestVenv_In_PopsPrefixAfterExit(t *testing.T) {
	mock := envTransport("/root/.virtualenvs/app")
	c := newContext(t, mock, "root")
	v := New(c)

	require.NoError(t, v.In(context.Background(), "app", Options{}, func() error {
		return nil
	}))

	_, err := c.Execute(context.Background(), "whoami", transport.ExecOpts{})
	require.NoError(t, err)

	calls := mock.ExecuteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "whoami", calls[0].Command)
}

func TestVenv_In_PopsPrefixOnFailure(t *testing.T) {
	mock := envTransport("/root/.virtualenvs/app")
	c := newContext(t, mock, "root")
	v := New(c)

	wantErr := errors.New("install failed")
	err := v.In(context.Background(), "app", Options{}, func() error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Empty(t, c.Prefixes())
}

func TestVenv_In_NestedScopes(t *testing.T) {
	mock := envTransport("/root/.virtualenvs/outer", "/root/.virtualenvs/inner")
	c := newContext(t, mock, "root")
	v := New(c)

	err := v.In(context.Background(), "outer", Options{}, func() error {
		return v.In(context.Background(), "inner", Options{}, func() error {
			_, err := c.Execute(context.Background(), "run", transport.ExecOpts{})
			return err
		})
	})
	require.NoError(t, err)

	calls := mock.ExecuteCalls()
	require.Len(t, calls, 1)
	assert.Equal(t,
		"source /root/.virtualenvs/outer/bin/activate && source /root/.virtualenvs/inner/bin/activate && run",
		calls[0].Command)
}

func TestVenv_In_ReentryPushesFreshFrame(t *testing.T) {
	mock := envTransport("/root/.virtualenvs/app")
	c := newContext(t, mock, "root")
	v := New(c)

	// The same name entered twice nests two frames; it is a stack, not a
	// singleton.
	err := v.In(context.Background(), "app", Options{}, func() error {
		return v.In(context.Background(), "app", Options{}, func() error {
			assert.Len(t, c.Prefixes(), 2)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Empty(t, c.Prefixes())
}

func TestVenv_In_QuotesActivationPath(t *testing.T) {
	mock := envTransport()
	c := newContext(t, mock, "root")
	v := New(c)
	v.BaseDirectory = "/srv/my envs"

	err := v.In(context.Background(), "app", Options{}, func() error {
		_, err := c.Execute(context.Background(), "run", transport.ExecOpts{})
		return err
	})
	require.NoError(t, err)

	calls := mock.ExecuteCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "source '/srv/my envs/app/bin/activate' && run", calls[1].Command)
}
