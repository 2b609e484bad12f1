// Package pip provides Python package installation. Installs are
// environment-aware: inside an active virtualenv scope they target that
// environment, outside one they target the system interpreter.
package pip

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmgilman/drover/internal/role"
	"github.com/jmgilman/drover/internal/roles/apt"
	"github.com/jmgilman/drover/internal/transport"
)

func init() {
	role.Register(role.DefaultRegistry, "pip", New)
}

// Pip installs Python packages.
type Pip struct {
	c *role.Context

	// Packages are installed by Provision. Entries may pin a version with
	// the pip == syntax ("flask==3.0.3").
	Packages []string `mapstructure:"packages"`
}

// New returns the pip role bound to c.
func New(c *role.Context) *Pip {
	return &Pip{c: c}
}

// Name implements role.Role.
func (p *Pip) Name() string { return "pip" }

// Provision makes pip itself available, then installs the configured
// packages.
func (p *Pip) Provision(ctx context.Context) error {
	a, err := role.Using[*apt.Apt](p.c)
	if err != nil {
		return err
	}
	if err := a.EnsurePackage(ctx, "python3-pip"); err != nil {
		return err
	}
	return p.EnsurePackages(ctx, p.Packages...)
}

// IsInstalled reports whether a package is importable by the active
// interpreter. Inside a virtualenv scope this answers for that environment.
func (p *Pip) IsInstalled(ctx context.Context, name string) (bool, error) {
	_, ok, err := p.c.Check(ctx, fmt.Sprintf("pip show %s", name), transport.ExecOpts{})
	if err != nil {
		return false, fmt.Errorf("check package %s: %w", name, err)
	}
	return ok, nil
}

// PackageVersion returns the installed version of a package, or "" when the
// package is absent.
func (p *Pip) PackageVersion(ctx context.Context, name string) (string, error) {
	out, ok, err := p.c.Check(ctx, fmt.Sprintf("pip show %s", name), transport.ExecOpts{})
	if err != nil {
		return "", fmt.Errorf("check package %s: %w", name, err)
	}
	if !ok {
		return "", nil
	}

	for _, line := range strings.Split(out, "\n") {
		if v, found := strings.CutPrefix(line, "Version: "); found {
			return strings.TrimSpace(v), nil
		}
	}
	return "", nil
}

// EnsurePackage installs a package unless it already is installed. A
// version-pinned spec ("name==version") is reinstalled when the installed
// version differs.
func (p *Pip) EnsurePackage(ctx context.Context, spec string) error {
	name, want, pinned := strings.Cut(spec, "==")

	if pinned {
		got, err := p.PackageVersion(ctx, name)
		if err != nil {
			return err
		}
		if got == want {
			p.c.Logger().Debug("package already at version", "host", p.c.Host(), "package", name, "version", got)
			return nil
		}
	} else {
		installed, err := p.IsInstalled(ctx, name)
		if err != nil {
			return err
		}
		if installed {
			p.c.Logger().Debug("package already installed", "host", p.c.Host(), "package", name)
			return nil
		}
	}

	p.c.Logger().Info("installing python package", "host", p.c.Host(), "package", spec)
	if _, err := p.c.Execute(ctx, fmt.Sprintf("pip install %s", spec), transport.ExecOpts{Sudo: p.systemInstall()}); err != nil {
		return fmt.Errorf("install package %s: %w", spec, err)
	}
	return nil
}

// EnsurePackages installs each package spec in order.
func (p *Pip) EnsurePackages(ctx context.Context, specs ...string) error {
	for _, spec := range specs {
		if err := p.EnsurePackage(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// systemInstall reports whether an install targets the system interpreter.
// System installs need elevation; installs inside an active environment
// scope must not be forced root, the environment owner's rights suffice.
func (p *Pip) systemInstall() bool {
	return len(p.c.Prefixes()) == 0
}
