// Package apt provides Debian package installation through apt-get, with
// dpkg-based idempotency checks.
package apt

import (
	"context"
	"fmt"

	"github.com/jmgilman/drover/internal/role"
	"github.com/jmgilman/drover/internal/transport"
)

func init() {
	role.Register(role.DefaultRegistry, "apt", New)
}

// aptGet is the non-interactive apt-get invocation every mutating command
// uses. DEBIAN_FRONTEND suppresses dpkg configuration prompts, which would
// otherwise hang a non-interactive channel.
const aptGet = "DEBIAN_FRONTEND=noninteractive apt-get -y -q"

// Apt installs Debian packages. Other roles resolve it for its
// EnsurePackage capability; a manifest can also drive it directly.
type Apt struct {
	c *role.Context

	// Packages are installed by Provision, in order.
	Packages []string `mapstructure:"packages"`

	// Update refreshes the package index before the first install.
	Update bool `mapstructure:"update"`

	// updated tracks whether the index was refreshed this run.
	updated bool
}

// New returns the apt role bound to c.
func New(c *role.Context) *Apt {
	return &Apt{c: c}
}

// Name implements role.Role.
func (a *Apt) Name() string { return "apt" }

// Provision refreshes the package index when configured and installs the
// configured packages. Already-installed packages are skipped.
func (a *Apt) Provision(ctx context.Context) error {
	if a.Update {
		if err := a.EnsureUpToDate(ctx); err != nil {
			return err
		}
	}
	return a.EnsurePackages(ctx, a.Packages...)
}

// IsInstalled reports whether a package is installed, via dpkg. The probe
// tolerates absence: an unknown package is false, not an error.
func (a *Apt) IsInstalled(ctx context.Context, name string) (bool, error) {
	_, ok, err := a.c.Check(ctx, fmt.Sprintf("dpkg -s %s", name), transport.ExecOpts{})
	if err != nil {
		return false, fmt.Errorf("check package %s: %w", name, err)
	}
	return ok, nil
}

// EnsurePackage installs a package unless it already is installed.
func (a *Apt) EnsurePackage(ctx context.Context, name string) error {
	installed, err := a.IsInstalled(ctx, name)
	if err != nil {
		return err
	}
	if installed {
		a.c.Logger().Debug("package already installed", "host", a.c.Host(), "package", name)
		return nil
	}

	a.c.Logger().Info("installing package", "host", a.c.Host(), "package", name)
	if _, err := a.c.Execute(ctx, fmt.Sprintf("%s install %s", aptGet, name), transport.ExecOpts{Sudo: true}); err != nil {
		return fmt.Errorf("install package %s: %w", name, err)
	}
	return nil
}

// EnsurePackages installs each package in order.
func (a *Apt) EnsurePackages(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := a.EnsurePackage(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// EnsureUpToDate refreshes the package index. At most one refresh runs per
// provisioning run, however many roles ask for it.
func (a *Apt) EnsureUpToDate(ctx context.Context) error {
	if a.updated {
		return nil
	}

	a.c.Logger().Info("updating package index", "host", a.c.Host())
	if _, err := a.c.Execute(ctx, aptGet+" update", transport.ExecOpts{Sudo: true}); err != nil {
		return fmt.Errorf("update package index: %w", err)
	}
	a.updated = true
	return nil
}
