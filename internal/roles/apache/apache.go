// Package apache provisions the Apache web server. Modules and sites are
// enabled through the mods-enabled / sites-enabled directories, with the
// enabled file serving as the idempotency predicate.
package apache

import (
	"context"
	"fmt"

	"github.com/jmgilman/drover/internal/role"
	"github.com/jmgilman/drover/internal/roles/apt"
	"github.com/jmgilman/drover/internal/transport"
)

func init() {
	role.Register(role.DefaultRegistry, "apache", New)
}

const (
	sitesAvailable = "/etc/apache2/sites-available"
	sitesEnabled   = "/etc/apache2/sites-enabled"
	modsEnabled    = "/etc/apache2/mods-enabled"
	defaultSite    = "000-default"
)

// Apache installs and configures the Apache web server.
type Apache struct {
	c *role.Context

	// Mods are enabled by Provision (a2enmod).
	Mods []string `mapstructure:"mods"`

	// Sites are enabled by Provision; each must have a configuration file
	// under sites-available.
	Sites []string `mapstructure:"sites"`

	// DisableDefault removes the distribution's default site.
	DisableDefault bool `mapstructure:"disable_default"`

	// needsRestart is set when a mod or site changed this run.
	needsRestart bool
}

// New returns the apache role bound to c.
func New(c *role.Context) *Apache {
	return &Apache{c: c}
}

// Name implements role.Role.
func (a *Apache) Name() string { return "apache" }

// Provision installs the server, enables the configured mods and sites, and
// restarts the server once when anything changed.
func (a *Apache) Provision(ctx context.Context) error {
	pkg, err := role.Using[*apt.Apt](a.c)
	if err != nil {
		return err
	}
	if err := pkg.EnsurePackage(ctx, "apache2"); err != nil {
		return err
	}

	for _, mod := range a.Mods {
		if err := a.EnsureMod(ctx, mod); err != nil {
			return err
		}
	}
	for _, site := range a.Sites {
		if err := a.EnsureSite(ctx, site); err != nil {
			return err
		}
	}
	if a.DisableDefault {
		if err := a.DisableSite(ctx, defaultSite); err != nil {
			return err
		}
	}

	if a.needsRestart {
		return a.Restart(ctx)
	}
	return nil
}

// EnsureMod enables an Apache module unless it already is enabled.
func (a *Apache) EnsureMod(ctx context.Context, mod string) error {
	enabled, err := a.c.ExistsFile(ctx, fmt.Sprintf("%s/%s.load", modsEnabled, mod))
	if err != nil {
		return fmt.Errorf("check mod %s: %w", mod, err)
	}
	if enabled {
		return nil
	}

	a.c.Logger().Info("enabling apache mod", "host", a.c.Host(), "mod", mod)
	if _, err := a.c.Execute(ctx, "a2enmod "+mod, transport.ExecOpts{Sudo: true}); err != nil {
		return fmt.Errorf("enable mod %s: %w", mod, err)
	}
	a.needsRestart = true
	return nil
}

// EnsureSite enables a site by linking its sites-available configuration
// into sites-enabled, unless the link already exists.
func (a *Apache) EnsureSite(ctx context.Context, site string) error {
	link := fmt.Sprintf("%s/%s.conf", sitesEnabled, site)

	enabled, err := a.c.ExistsFile(ctx, link)
	if err != nil {
		return fmt.Errorf("check site %s: %w", site, err)
	}
	if enabled {
		return nil
	}

	a.c.Logger().Info("enabling apache site", "host", a.c.Host(), "site", site)
	target := fmt.Sprintf("%s/%s.conf", sitesAvailable, site)
	if err := a.c.Symlink(ctx, target, link, true); err != nil {
		return fmt.Errorf("enable site %s: %w", site, err)
	}
	a.needsRestart = true
	return nil
}

// DisableSite removes a site's sites-enabled entry. Disabling an absent
// site is a no-op.
func (a *Apache) DisableSite(ctx context.Context, site string) error {
	link := fmt.Sprintf("%s/%s.conf", sitesEnabled, site)

	enabled, err := a.c.ExistsFile(ctx, link)
	if err != nil {
		return fmt.Errorf("check site %s: %w", site, err)
	}
	if !enabled {
		return nil
	}

	a.c.Logger().Info("disabling apache site", "host", a.c.Host(), "site", site)
	if err := a.c.RemoveFile(ctx, link, true); err != nil {
		return fmt.Errorf("disable site %s: %w", site, err)
	}
	a.needsRestart = true
	return nil
}

// Restart restarts the server.
func (a *Apache) Restart(ctx context.Context) error {
	a.c.Logger().Info("restarting apache", "host", a.c.Host())
	if _, err := a.c.Execute(ctx, "service apache2 restart", transport.ExecOpts{Sudo: true}); err != nil {
		return fmt.Errorf("restart apache: %w", err)
	}
	a.needsRestart = false
	return nil
}
