// Package docker installs the Docker engine and keeps container images
// current against their registry.
package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmgilman/drover/internal/registry"
	"github.com/jmgilman/drover/internal/role"
	"github.com/jmgilman/drover/internal/roles/apt"
	"github.com/jmgilman/drover/internal/transport"
)

func init() {
	role.Register(role.DefaultRegistry, "docker", New)
}

// digestClient resolves the digest a registry currently serves for an image
// reference.
type digestClient interface {
	Digest(ctx context.Context, ref string) (string, error)
}

// Docker installs the Docker engine and pulls images. A present image is
// re-pulled only when the registry serves a different digest for its
// reference, so a moving tag converges without unconditional pulls.
type Docker struct {
	c *role.Context

	// Images are ensured present and current by Provision, in order.
	Images []string `mapstructure:"images"`

	// Insecure allows plain-HTTP registries for the digest lookup.
	Insecure bool `mapstructure:"insecure"`

	digests digestClient
}

// New returns the docker role bound to c.
func New(c *role.Context) *Docker {
	return &Docker{c: c}
}

// Name implements role.Role.
func (d *Docker) Name() string { return "docker" }

// Provision installs the engine, starts the daemon, and ensures every
// configured image is present and current.
func (d *Docker) Provision(ctx context.Context) error {
	pkg, err := role.Using[*apt.Apt](d.c)
	if err != nil {
		return err
	}
	if err := pkg.EnsurePackage(ctx, "docker.io"); err != nil {
		return err
	}

	if err := d.EnsureRunning(ctx); err != nil {
		return err
	}
	for _, image := range d.Images {
		if err := d.EnsureImage(ctx, image); err != nil {
			return err
		}
	}
	return nil
}

// IsRunning reports whether the Docker daemon answers.
func (d *Docker) IsRunning(ctx context.Context) (bool, error) {
	_, ok, err := d.c.Check(ctx, "docker info", transport.ExecOpts{Sudo: true})
	if err != nil {
		return false, fmt.Errorf("check docker daemon: %w", err)
	}
	return ok, nil
}

// EnsureRunning starts the Docker daemon unless it already answers.
func (d *Docker) EnsureRunning(ctx context.Context) error {
	running, err := d.IsRunning(ctx)
	if err != nil {
		return err
	}
	if running {
		return nil
	}

	d.c.Logger().Info("starting docker daemon", "host", d.c.Host())
	if _, err := d.c.Execute(ctx, "service docker start", transport.ExecOpts{Sudo: true}); err != nil {
		return fmt.Errorf("start docker daemon: %w", err)
	}
	return nil
}

// LocalDigest returns the digest the host holds for image, or ok=false when
// the image is absent. An image that was built locally rather than pulled
// has no registry digest and reports absent, so Provision converges it to
// the registry's copy.
func (d *Docker) LocalDigest(ctx context.Context, image string) (string, bool, error) {
	probe := fmt.Sprintf("docker image inspect --format '{{index .RepoDigests 0}}' %s", image)
	out, ok, err := d.c.Check(ctx, probe, transport.ExecOpts{Sudo: true})
	if err != nil {
		return "", false, fmt.Errorf("inspect image %s: %w", image, err)
	}
	if !ok {
		return "", false, nil
	}

	// RepoDigests entries have the form name@sha256:<hex>.
	_, digest, found := strings.Cut(out, "@")
	if !found {
		return "", false, nil
	}
	return digest, true, nil
}

// EnsureImage pulls an image when it is absent or when the registry serves a
// different digest for its reference.
func (d *Docker) EnsureImage(ctx context.Context, image string) error {
	local, present, err := d.LocalDigest(ctx, image)
	if err != nil {
		return err
	}
	if !present {
		return d.Pull(ctx, image)
	}

	published, err := d.registryClient().Digest(ctx, image)
	if err != nil {
		return fmt.Errorf("resolve digest for %s: %w", image, err)
	}
	if published == local {
		d.c.Logger().Debug("image up to date", "host", d.c.Host(), "image", image)
		return nil
	}

	d.c.Logger().Info("image digest changed", "host", d.c.Host(), "image", image)
	return d.Pull(ctx, image)
}

// Pull pulls an image, streaming docker's progress output to the transcript.
func (d *Docker) Pull(ctx context.Context, image string) error {
	d.c.Logger().Info("pulling image", "host", d.c.Host(), "image", image)
	if _, err := d.c.Execute(ctx, "docker pull "+image, transport.ExecOpts{Sudo: true, Stream: d.c.Output()}); err != nil {
		return fmt.Errorf("pull image %s: %w", image, err)
	}
	return nil
}

func (d *Docker) registryClient() digestClient {
	if d.digests == nil {
		d.digests = registry.NewClient(registry.ClientConfig{Insecure: d.Insecure})
	}
	return d.digests
}
