package ruby

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

// rubyTransport reports rubyVersion from `ruby --version` (empty means no
// interpreter), treats every package as installed, and succeeds otherwise.
func rubyTransport(rubyVersion string) *mocks.TransportMock {
	return &mocks.TransportMock{
		HostFunc: func() string { return "web-01" },
		ExecuteFunc: func(_ context.Context, command string, _ transport.ExecOpts) (*transport.Result, error) {
			switch {
			case command == "ruby --version":
				if rubyVersion == "" {
					return &transport.Result{Stderr: "ruby: command not found\n", ExitCode: 127},
						&transport.CommandError{Command: command, ExitCode: 127}
				}
				out := "ruby " + rubyVersion + " (2024-04-23 revision abc123) [x86_64-linux]\n"
				return &transport.Result{Output: out}, nil
			case strings.HasPrefix(command, "dpkg -s "):
				return &transport.Result{Output: "Status: install ok installed\n"}, nil
			}
			return &transport.Result{}, nil
		},
		RemoveFileFunc: func(_ context.Context, _ string, _ bool) error { return nil },
		SymlinkFunc:    func(_ context.Context, _, _ string, _ bool) error { return nil },
	}
}

func newRole(t *testing.T, mock *mocks.TransportMock) *Ruby {
	t.Helper()

	c, err := role.NewContext(role.ContextConfig{Transport: mock, User: "root"})
	require.NoError(t, err)
	return New(c)
}

func TestRuby_InstalledVersion(t *testing.T) {
	t.Run("parses patch-suffixed version", func(t *testing.T) {
		r := newRole(t, rubyTransport("3.2.4p170"))

		v, err := r.InstalledVersion(context.Background())
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, "3.2.4", v.String())
	})

	t.Run("missing interpreter is nil, not an error", func(t *testing.T) {
		r := newRole(t, rubyTransport(""))

		v, err := r.InstalledVersion(context.Background())
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestRuby_IsInstalled(t *testing.T) {
	tests := []struct {
		name      string
		installed string
		want      string
		expected  bool
	}{
		{"exact version", "3.2.4p170", "3.2.4", true},
		{"newer version satisfies", "3.3.1p55", "3.2.4", true},
		{"older version does not", "3.1.0p0", "3.2.4", false},
		{"no interpreter", "", "3.2.4", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRole(t, rubyTransport(tt.installed))
			r.Version = tt.want

			got, err := r.IsInstalled(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRuby_TarballURL(t *testing.T) {
	r := newRole(t, rubyTransport(""))

	assert.Equal(t,
		"https://cache.ruby-lang.org/pub/ruby/3.2/ruby-3.2.4.tar.gz",
		r.tarballURL(),
	)

	r.Source = "https://mirror.internal/ruby.tar.gz"
	assert.Equal(t, "https://mirror.internal/ruby.tar.gz", r.tarballURL())
}

func TestRuby_Provision_SkipsSatisfiedHost(t *testing.T) {
	mock := rubyTransport("3.2.4p170")
	r := newRole(t, mock)

	require.NoError(t, r.Provision(context.Background()))

	for _, call := range mock.ExecuteCalls() {
		assert.NotContains(t, call.Command, "make install")
	}
	assert.Empty(t, mock.SymlinkCalls())
}

func TestRuby_Provision_BuildsMissingInterpreter(t *testing.T) {
	mock := rubyTransport("")
	r := newRole(t, mock)

	require.NoError(t, r.Provision(context.Background()))

	var build string
	for _, call := range mock.ExecuteCalls() {
		if strings.Contains(call.Command, "make install") {
			build = call.Command
			assert.True(t, call.Opts.Sudo)
			assert.NotNil(t, call.Opts.Stream)
		}
	}
	require.NotEmpty(t, build, "expected a build command")
	assert.Contains(t, build, "wget -q https://cache.ruby-lang.org/pub/ruby/3.2/ruby-3.2.4.tar.gz")
	assert.Contains(t, build, "tar xzf ruby-3.2.4.tar.gz")
	assert.Contains(t, build, "./configure --disable-install-doc")

	// The tarball is cleaned up and the binaries relinked.
	removed := mock.RemoveFileCalls()
	require.NotEmpty(t, removed)
	assert.Equal(t, "/tmp/ruby-3.2.4.tar.gz", removed[0].Path)

	links := mock.SymlinkCalls()
	require.Len(t, links, len(binaries))
	assert.Equal(t, "/usr/local/bin/erb", links[0].Target)
	assert.Equal(t, "/usr/bin/erb", links[0].Link)
}
