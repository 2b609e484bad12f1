// Package ruby installs Ruby from source. The installed interpreter's
// self-reported version is the idempotency predicate: hosts at or above the
// requested version are left alone.
package ruby

import (
	"context"
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/jmgilman/drover/internal/role"
	"github.com/jmgilman/drover/internal/roles/apt"
	"github.com/jmgilman/drover/internal/transport"
)

func init() {
	role.Register(role.DefaultRegistry, "ruby", New)
}

const (
	defaultVersion = "3.2.4"
	sourceURL      = "https://cache.ruby-lang.org/pub/ruby/%s/ruby-%s.tar.gz"
)

// buildDeps are the packages a source build needs.
var buildDeps = []string{
	"build-essential",
	"zlib1g-dev",
	"libreadline-dev",
	"libssl-dev",
	"libyaml-dev",
	"libffi-dev",
	"libgmp-dev",
	"wget",
}

// binaries are linked from /usr/local/bin into /usr/bin after a build, so
// the fresh toolchain shadows any distribution install.
var binaries = []string{"erb", "gem", "irb", "rake", "rdoc", "ri", "ruby", "bundle", "bundler"}

// Ruby builds and installs the Ruby toolchain.
type Ruby struct {
	c *role.Context

	// Version is the minimum interpreter version to converge on.
	Version string `mapstructure:"version"`

	// Source overrides the tarball URL.
	Source string `mapstructure:"source"`
}

// New returns the ruby role bound to c.
func New(c *role.Context) *Ruby {
	return &Ruby{c: c, Version: defaultVersion}
}

// Name implements role.Role.
func (r *Ruby) Name() string { return "ruby" }

// InstalledVersion returns the interpreter version on the host, or nil when
// no interpreter is present. A missing interpreter is data, not an error.
func (r *Ruby) InstalledVersion(ctx context.Context) (*goversion.Version, error) {
	out, ok, err := r.c.Check(ctx, "ruby --version", transport.ExecOpts{})
	if err != nil {
		return nil, fmt.Errorf("probe ruby version: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return parseVersion(out)
}

// parseVersion extracts the release version from ruby --version output,
// e.g. "ruby 3.2.4p170 (2024-04-23 revision ...) [x86_64-linux]".
func parseVersion(out string) (*goversion.Version, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return nil, fmt.Errorf("parse ruby version from %q: unexpected format", out)
	}

	// Drop the patch suffix: 3.2.4p170 -> 3.2.4.
	raw, _, _ := strings.Cut(fields[1], "p")
	v, err := goversion.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ruby version %q: %w", raw, err)
	}
	return v, nil
}

// IsInstalled reports whether the host's interpreter satisfies the
// requested version.
func (r *Ruby) IsInstalled(ctx context.Context) (bool, error) {
	installed, err := r.InstalledVersion(ctx)
	if err != nil {
		return false, err
	}
	if installed == nil {
		return false, nil
	}

	want, err := goversion.NewVersion(r.Version)
	if err != nil {
		return false, fmt.Errorf("parse requested version %q: %w", r.Version, err)
	}
	return installed.GreaterThanOrEqual(want), nil
}

// Provision installs the build dependencies and builds Ruby from source
// when the host's interpreter is missing or too old.
func (r *Ruby) Provision(ctx context.Context) error {
	pkg, err := role.Using[*apt.Apt](r.c)
	if err != nil {
		return err
	}
	if err := pkg.EnsurePackages(ctx, buildDeps...); err != nil {
		return err
	}

	installed, err := r.IsInstalled(ctx)
	if err != nil {
		return err
	}
	if installed {
		r.c.Logger().Debug("ruby already installed", "host", r.c.Host(), "version", r.Version)
		return nil
	}

	r.c.Logger().Info("building ruby from source", "host", r.c.Host(), "version", r.Version)
	if err := r.build(ctx); err != nil {
		return err
	}
	return r.linkBinaries(ctx)
}

// build downloads, compiles, and installs the requested version. Build
// output streams to the run transcript as it is produced.
func (r *Ruby) build(ctx context.Context) error {
	url := r.tarballURL()
	dir := "ruby-" + r.Version

	command := fmt.Sprintf(
		"cd /tmp && wget -q %s && tar xzf %s.tar.gz && cd %s && ./configure --disable-install-doc && make && make install",
		url, dir, dir,
	)
	if _, err := r.c.Execute(ctx, command, transport.ExecOpts{Sudo: true, Stream: r.c.Output()}); err != nil {
		return fmt.Errorf("build ruby %s: %w", r.Version, err)
	}

	if err := r.c.RemoveFile(ctx, fmt.Sprintf("/tmp/%s.tar.gz", dir), true); err != nil {
		return err
	}
	return nil
}

// tarballURL returns the source tarball location, deriving the release
// series directory (3.2.4 -> 3.2) unless Source overrides it.
func (r *Ruby) tarballURL() string {
	if r.Source != "" {
		return r.Source
	}

	series := r.Version
	if parts := strings.SplitN(r.Version, ".", 3); len(parts) >= 2 {
		series = parts[0] + "." + parts[1]
	}
	return fmt.Sprintf(sourceURL, series, r.Version)
}

// linkBinaries points /usr/bin at the freshly installed toolchain.
func (r *Ruby) linkBinaries(ctx context.Context) error {
	for _, bin := range binaries {
		usr := "/usr/bin/" + bin
		local := "/usr/local/bin/" + bin

		if err := r.c.RemoveFile(ctx, usr, true); err != nil {
			return err
		}
		if err := r.c.Symlink(ctx, local, usr, true); err != nil {
			return err
		}
	}
	return nil
}
