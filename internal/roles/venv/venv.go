// Package venv manages Python virtual environments and provides the scoped
// activation construct: commands run inside an In block transparently
// execute within the named environment.
package venv

import (
	"context"
	"fmt"
	"path"

	"mvdan.cc/sh/v3/syntax"

	"github.com/jmgilman/drover/internal/role"
	"github.com/jmgilman/drover/internal/roles/pip"
	"github.com/jmgilman/drover/internal/transport"
)

func init() {
	role.Register(role.DefaultRegistry, "venv", New)
}

// envSubdir is the directory under the owner's home that holds environments
// when no base directory is configured.
const envSubdir = ".virtualenvs"

// Options configure a single environment entry.
type Options struct {
	// SystemSitePackages exposes the host's globally installed packages
	// inside the environment.
	SystemSitePackages bool
}

// Venv creates and activates Python virtual environments.
//
// Environment directories default to <home>/.virtualenvs/<name> for the
// bound user; set BaseDirectory to relocate them. Entering an environment
// with In guarantees it exists, creating it on first use.
type Venv struct {
	c *role.Context

	// User owns the environments. Defaults to the context's target user.
	User string `mapstructure:"user"`

	// BaseDirectory overrides the default environment location.
	BaseDirectory string `mapstructure:"base_directory"`
}

// New returns the venv role bound to c. Environments belong to the
// context's target user until configured otherwise.
func New(c *role.Context) *Venv {
	return &Venv{c: c, User: c.User()}
}

// Name implements role.Role.
func (v *Venv) Name() string { return "venv" }

// Provision installs the virtualenv tooling through pip.
func (v *Venv) Provision(ctx context.Context) error {
	p, err := role.Require[*pip.Pip](ctx, v.c)
	if err != nil {
		return err
	}
	if err := p.EnsurePackage(ctx, "virtualenv"); err != nil {
		return err
	}
	return p.EnsurePackage(ctx, "virtualenvwrapper")
}

// BaseDir returns the directory environments are created under: the
// configured BaseDirectory, or <home>/.virtualenvs derived from the bound
// user (root's home is /root, every other user's is /home/<user>).
func (v *Venv) BaseDir() string {
	if v.BaseDirectory != "" {
		return v.BaseDirectory
	}
	return path.Join(v.homeDir(), envSubdir)
}

func (v *Venv) homeDir() string {
	if v.User == "root" {
		return "/root"
	}
	return "/home/" + v.User
}

// EnvDir returns the directory of the named environment. It does not check
// that the environment exists.
func (v *Venv) EnvDir(name string) string {
	return path.Join(v.BaseDir(), name)
}

// Exists reports whether the named environment exists on the target host.
func (v *Venv) Exists(ctx context.Context, name string) (bool, error) {
	return v.c.ExistsDir(ctx, v.EnvDir(name))
}

// Create creates the named environment as the bound user and returns its
// directory. virtualenv converges on an existing directory, so racing
// creations of the same name are safe.
func (v *Venv) Create(ctx context.Context, name string, opts Options) (string, error) {
	dir := v.EnvDir(name)

	command := "virtualenv "
	if opts.SystemSitePackages {
		command += "--system-site-packages "
	}
	command += dir

	v.c.Logger().Info("creating virtual environment", "host", v.c.Host(), "dir", dir, "user", v.User)
	if _, err := v.c.Execute(ctx, command, transport.ExecOpts{User: v.User}); err != nil {
		return "", fmt.Errorf("create virtual environment %s: %w", dir, err)
	}
	return dir, nil
}

// In runs fn inside the named environment. The environment is created on
// first use; for the extent of fn every command issued through the context
// is prefixed with the environment's activation, nesting with any scopes
// already active. The activation is removed again on every exit path, so a
// failure inside fn cannot leak the environment into later commands.
func (v *Venv) In(ctx context.Context, name string, opts Options, fn func() error) error {
	exists, err := v.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("check virtual environment %s: %w", name, err)
	}
	if !exists {
		if _, err := v.Create(ctx, name, opts); err != nil {
			return err
		}
	}

	activate, err := syntax.Quote(path.Join(v.EnvDir(name), "bin", "activate"), syntax.LangBash)
	if err != nil {
		return fmt.Errorf("quote activation path: %w", err)
	}

	return v.c.WithPrefix("source "+activate, fn)
}
