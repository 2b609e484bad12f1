package apache

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/drover/internal/role"
	"github.com/jmgilman/drover/internal/transport"
	"github.com/jmgilman/drover/internal/transport/mocks"
)

// apacheTransport simulates a host where apache2 is installed and the given
// files exist.
func apacheTransport(files ...string) *mocks.TransportMock {
	return &mocks.TransportMock{
		HostFunc: func() string { return "web-01" },
		ExecuteFunc: func(_ context.Context, command string, _ transport.ExecOpts) (*transport.Result, error) {
			if strings.HasPrefix(command, "dpkg -s ") {
				return &transport.Result{Output: "Status: install ok installed\n"}, nil
			}
			return &transport.Result{}, nil
		},
		ExistsFileFunc: func(_ context.Context, p string) (bool, error) {
			for _, f := range files {
				if f == p {
					return true, nil
				}
			}
			return false, nil
		},
		RemoveFileFunc: func(_ context.Context, _ string, _ bool) error { return nil },
		SymlinkFunc:    func(_ context.Context, _, _ string, _ bool) error { return nil },
	}
}

func newRole(t *testing.T, mock *mocks.TransportMock) *Apache {
	t.Helper()

	c, err := role.NewContext(role.ContextConfig{Transport: mock, User: "root"})
	require.NoError(t, err)
	return New(c)
}

func commands(mock *mocks.TransportMock) []string {
	var out []string
	for _, call := range mock.ExecuteCalls() {
		if !strings.HasPrefix(call.Command, "dpkg -s ") {
			out = append(out, call.Command)
		}
	}
	return out
}

func TestApache_EnsureMod(t *testing.T) {
	t.Run("skips enabled mod", func(t *testing.T) {
		mock := apacheTransport("/etc/apache2/mods-enabled/rewrite.load")
		a := newRole(t, mock)

		require.NoError(t, a.EnsureMod(context.Background(), "rewrite"))
		assert.Empty(t, commands(mock))
		assert.False(t, a.needsRestart)
	})

	t.Run("enables missing mod", func(t *testing.T) {
		mock := apacheTransport()
		a := newRole(t, mock)

		require.NoError(t, a.EnsureMod(context.Background(), "rewrite"))
		assert.Equal(t, []string{"a2enmod rewrite"}, commands(mock))
		assert.True(t, a.needsRestart)
	})
}

func TestApache_EnsureSite(t *testing.T) {
	t.Run("skips enabled site", func(t *testing.T) {
		mock := apacheTransport("/etc/apache2/sites-enabled/blog.conf")
		a := newRole(t, mock)

		require.NoError(t, a.EnsureSite(context.Background(), "blog"))
		assert.Empty(t, mock.SymlinkCalls())
	})

	t.Run("links missing site", func(t *testing.T) {
		mock := apacheTransport()
		a := newRole(t, mock)

		require.NoError(t, a.EnsureSite(context.Background(), "blog"))

		calls := mock.SymlinkCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, "/etc/apache2/sites-available/blog.conf", calls[0].Target)
		assert.Equal(t, "/etc/apache2/sites-enabled/blog.conf", calls[0].Link)
		assert.True(t, calls[0].Sudo)
	})
}

func TestApache_DisableSite(t *testing.T) {
	t.Run("removes enabled site", func(t *testing.T) {
		mock := apacheTransport("/etc/apache2/sites-enabled/000-default.conf")
		a := newRole(t, mock)

		require.NoError(t, a.DisableSite(context.Background(), "000-default"))

		calls := mock.RemoveFileCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, "/etc/apache2/sites-enabled/000-default.conf", calls[0].Path)
	})

	t.Run("absent site is a no-op", func(t *testing.T) {
		mock := apacheTransport()
		a := newRole(t, mock)

		require.NoError(t, a.DisableSite(context.Background(), "000-default"))
		assert.Empty(t, mock.RemoveFileCalls())
	})
}

func TestApache_Provision(t *testing.T) {
	mock := apacheTransport("/etc/apache2/sites-enabled/000-default.conf")
	a := newRole(t, mock)
	a.Mods = []string{"rewrite", "ssl"}
	a.Sites = []string{"blog"}
	a.DisableDefault = true

	require.NoError(t, a.Provision(context.Background()))

	cmds := commands(mock)
	assert.Equal(t, []string{"a2enmod rewrite", "a2enmod ssl", "service apache2 restart"}, cmds)
	assert.Len(t, mock.SymlinkCalls(), 1)
	assert.Len(t, mock.RemoveFileCalls(), 1)
}

func TestApache_Provision_ConvergedHostRestartsNothing(t *testing.T) {
	mock := apacheTransport(
		"/etc/apache2/mods-enabled/rewrite.load",
		"/etc/apache2/sites-enabled/blog.conf",
	)
	a := newRole(t, mock)
	a.Mods = []string{"rewrite"}
	a.Sites = []string{"blog"}
	a.DisableDefault = true

	require.NoError(t, a.Provision(context.Background()))

	assert.Empty(t, commands(mock))
	assert.Empty(t, mock.SymlinkCalls())
	assert.Empty(t, mock.RemoveFileCalls())
}
