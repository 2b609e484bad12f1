package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeManifest writes content to drover.yaml in a temp dir and returns the
// file path.
func writeManifest(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_Load(t *testing.T) {
	t.Run("loads a full manifest", func(t *testing.T) {
		path := writeManifest(t, `
servers:
  web:
    hosts:
      - web-01.example.com
      - web-02.example.com
    user: deploy
    sudo: true
    auth:
      method: key
      key_path: ~/.ssh/id_ed25519
    roles:
      - apt
      - apache
    options:
      apt:
        update: true
        packages:
          - htop
  db:
    hosts:
      - db-01.example.com
    user: postgres
    port: 2222
    roles:
      - apt
`)

		loader, err := NewLoader(path)
		require.NoError(t, err)

		m, err := loader.Load()
		require.NoError(t, err)

		web, err := m.Group("web")
		require.NoError(t, err)
		assert.Equal(t, "web", web.Name)
		assert.Equal(t, []string{"web-01.example.com", "web-02.example.com"}, web.Hosts)
		assert.Equal(t, "deploy", web.User)
		assert.True(t, web.Sudo)
		assert.Equal(t, []string{"apt", "apache"}, web.Roles)
		assert.Equal(t, AuthKey, web.Auth.Method)

		db, err := m.Group("db")
		require.NoError(t, err)
		assert.Equal(t, 2222, db.Port)
		assert.False(t, db.Sudo)
	})

	t.Run("defaults port and auth method", func(t *testing.T) {
		path := writeManifest(t, `
servers:
  web:
    hosts: [web-01]
    user: deploy
    roles: [apt]
`)

		loader, err := NewLoader(path)
		require.NoError(t, err)

		m, err := loader.Load()
		require.NoError(t, err)

		web, err := m.Group("web")
		require.NoError(t, err)
		assert.Equal(t, 22, web.Port)
		assert.Equal(t, AuthAgent, web.Auth.Method)
	})

	t.Run("expands ~ in auth paths", func(t *testing.T) {
		path := writeManifest(t, `
servers:
  web:
    hosts: [web-01]
    user: deploy
    auth:
      method: key
      key_path: ~/.ssh/id_ed25519
      known_hosts: ~/.ssh/known_hosts
    roles: [apt]
`)

		loader, err := NewLoader(path)
		require.NoError(t, err)

		m, err := loader.Load()
		require.NoError(t, err)

		home, err := os.UserHomeDir()
		require.NoError(t, err)

		web, err := m.Group("web")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".ssh", "id_ed25519"), web.Auth.KeyPath)
		assert.Equal(t, filepath.Join(home, ".ssh", "known_hosts"), web.Auth.KnownHosts)
	})

	t.Run("returns ErrNotFound for a missing file", func(t *testing.T) {
		loader, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)

		_, err = loader.Load()
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects a group without hosts", func(t *testing.T) {
		path := writeManifest(t, `
servers:
  web:
    user: deploy
    roles: [apt]
`)

		loader, err := NewLoader(path)
		require.NoError(t, err)

		_, err = loader.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("rejects a group without roles", func(t *testing.T) {
		path := writeManifest(t, `
servers:
  web:
    hosts: [web-01]
    user: deploy
`)

		loader, err := NewLoader(path)
		require.NoError(t, err)

		_, err = loader.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("rejects an unknown auth method", func(t *testing.T) {
		path := writeManifest(t, `
servers:
  web:
    hosts: [web-01]
    user: deploy
    auth:
      method: kerberos
    roles: [apt]
`)

		loader, err := NewLoader(path)
		require.NoError(t, err)

		_, err = loader.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("rejects an empty user", func(t *testing.T) {
		path := writeManifest(t, `
servers:
  web:
    hosts: [web-01]
    roles: [apt]
`)

		loader, err := NewLoader(path)
		require.NoError(t, err)

		_, err = loader.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})
}

func TestManifest_Group(t *testing.T) {
	m := &Manifest{Servers: map[string]ServerGroup{
		"web": {Name: "web", Hosts: []string{"web-01"}},
	}}

	t.Run("returns a defined group", func(t *testing.T) {
		g, err := m.Group("web")
		require.NoError(t, err)
		assert.Equal(t, "web", g.Name)
	})

	t.Run("returns ErrGroupNotFound for an unknown group", func(t *testing.T) {
		_, err := m.Group("cache")
		assert.ErrorIs(t, err, ErrGroupNotFound)
	})
}

func TestManifest_GroupNames(t *testing.T) {
	m := &Manifest{Servers: map[string]ServerGroup{
		"web": {}, "db": {}, "cache": {},
	}}

	assert.Equal(t, []string{"cache", "db", "web"}, m.GroupNames())
}

func TestServerGroup_RoleOptions(t *testing.T) {
	g := &ServerGroup{Options: map[string]map[string]any{
		"apt": {"update": true},
	}}

	t.Run("returns configured options", func(t *testing.T) {
		opts := g.RoleOptions("apt")
		assert.Equal(t, true, opts["update"])
	})

	t.Run("returns empty map for an unconfigured role", func(t *testing.T) {
		opts := g.RoleOptions("apache")
		assert.NotNil(t, opts)
		assert.Empty(t, opts)
	})
}
