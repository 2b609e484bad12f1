package gitrepo

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

// gitTransport simulates a host with git installed and the given .git
// directories present.
func gitTransport(gitDirs ...string) *mocks.TransportMock {
	return &mocks.TransportMock{
		HostFunc: func() string { return "web-01" },
		ExistsDirFunc: func(_ context.Context, p string) (bool, error) {
			for _, dir := range gitDirs {
				if dir == p {
					return true, nil
				}
			}
			return false, nil
		},
		ExecuteFunc: func(_ context.Context, command string, _ transport.ExecOpts) (*transport.Result, error) {
			if strings.HasPrefix(command, "dpkg -s ") {
				return &transport.Result{Output: "Status: install ok installed\n"}, nil
			}
			return &transport.Result{}, nil
		},
	}
}

func newRole(t *testing.T, mock *mocks.TransportMock) *GitRepo {
	t.Helper()

	c, err := role.NewContext(role.ContextConfig{Transport: mock, User: "deploy"})
	require.NoError(t, err)
	return New(c)
}

func gitCommands(mock *mocks.TransportMock) []string {
	var out []string
	for _, call := range mock.ExecuteCalls() {
		if strings.HasPrefix(call.Command, "git") {
			out = append(out, call.Command)
		}
	}
	return out
}

func TestGitRepo_EnsureRepository_Clones(t *testing.T) {
	mock := gitTransport()
	g := newRole(t, mock)

	repo := Repo{URL: "https://github.com/pallets/flask.git", Path: "/srv/flask"}
	require.NoError(t, g.EnsureRepository(context.Background(), repo))

	cmds := gitCommands(mock)
	require.Len(t, cmds, 1)
	assert.Equal(t, "git clone https://github.com/pallets/flask.git /srv/flask", cmds[0])

	// Clones run as the context's target user when no owner is set.
	calls := mock.ExecuteCalls()
	assert.Equal(t, "deploy", calls[len(calls)-1].Opts.User)
}

func TestGitRepo_EnsureRepository_ClonesBranch(t *testing.T) {
	mock := gitTransport()
	g := newRole(t, mock)

	repo := Repo{URL: "https://github.com/pallets/flask.git", Path: "/srv/flask", Branch: "stable"}
	require.NoError(t, g.EnsureRepository(context.Background(), repo))

	cmds := gitCommands(mock)
	require.Len(t, cmds, 1)
	assert.Equal(t, "git clone -b stable https://github.com/pallets/flask.git /srv/flask", cmds[0])
}

func TestGitRepo_EnsureRepository_UpdatesExisting(t *testing.T) {
	mock := gitTransport("/srv/flask/.git")
	g := newRole(t, mock)

	repo := Repo{URL: "https://github.com/pallets/flask.git", Path: "/srv/flask", Owner: "www-data"}
	require.NoError(t, g.EnsureRepository(context.Background(), repo))

	cmds := gitCommands(mock)
	require.Len(t, cmds, 1)
	assert.Equal(t, "git -C /srv/flask pull --ff-only", cmds[0])

	calls := mock.ExecuteCalls()
	assert.Equal(t, "www-data", calls[len(calls)-1].Opts.User)
}

func TestGitRepo_EnsureRepository_UpdatesPinnedBranch(t *testing.T) {
	mock := gitTransport("/srv/flask/.git")
	g := newRole(t, mock)

	repo := Repo{URL: "https://github.com/pallets/flask.git", Path: "/srv/flask", Branch: "stable"}
	require.NoError(t, g.EnsureRepository(context.Background(), repo))

	cmds := gitCommands(mock)
	require.Len(t, cmds, 1)
	assert.Equal(t, "git -C /srv/flask checkout stable && git -C /srv/flask pull --ff-only", cmds[0])
}

func TestGitRepo_EnsureRepository_RejectsIncompleteEntry(t *testing.T) {
	g := newRole(t, gitTransport())

	err := g.EnsureRepository(context.Background(), Repo{URL: "https://example.com/x.git"})
	assert.ErrorIs(t, err, errIncomplete)

	err = g.EnsureRepository(context.Background(), Repo{Path: "/srv/x"})
	assert.ErrorIs(t, err, errIncomplete)
}

func TestGitRepo_CurrentBranch(t *testing.T) {
	mock := gitTransport("/srv/flask/.git")
	mock.ExecuteFunc = func(_ context.Context, _ string, _ transport.ExecOpts) (*transport.Result, error) {
		return &transport.Result{Output: "stable\n"}, nil
	}
	g := newRole(t, mock)

	branch, err := g.CurrentBranch(context.Background(), "/srv/flask")
	require.NoError(t, err)
	assert.Equal(t, "stable", branch)

	cmds := gitCommands(mock)
	require.Len(t, cmds, 1)
	assert.Equal(t, "git -C /srv/flask rev-parse --abbrev-ref HEAD", cmds[0])
}

func TestGitRepo_Provision(t *testing.T) {
	mock := gitTransport("/srv/app/.git")
	g := newRole(t, mock)
	g.Repos = []Repo{
		{URL: "https://example.com/app.git", Path: "/srv/app"},
		{URL: "https://example.com/site.git", Path: "/srv/site"},
	}

	require.NoError(t, g.Provision(context.Background()))

	cmds := gitCommands(mock)
	require.Len(t, cmds, 2)
	assert.Equal(t, "git -C /srv/app pull --ff-only", cmds[0])
	assert.Equal(t, "git clone https://example.com/site.git /srv/site", cmds[1])
}
