// Package gitrepo keeps git checkouts on the target host present and
// current. The .git directory is the idempotency predicate: absent
// repositories are cloned, existing ones are fast-forwarded.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/jmgilman/drover/internal/role"
	"github.com/jmgilman/drover/internal/roles/apt"
	"github.com/jmgilman/drover/internal/transport"
)

func init() {
	role.Register(role.DefaultRegistry, "git", New)
}

// errIncomplete marks a repo entry missing its url or path.
var errIncomplete = errors.New("repository url and path are required")

// Repo describes one checkout to maintain.
type Repo struct {
	// URL is the clone source.
	URL string `mapstructure:"url"`

	// Path is the checkout location on the target host.
	Path string `mapstructure:"path"`

	// Branch pins the checkout to a branch. Empty follows the remote
	// default.
	Branch string `mapstructure:"branch"`

	// Owner runs the git commands as this user. Empty means the context's
	// target user.
	Owner string `mapstructure:"owner"`
}

// GitRepo clones and updates git repositories.
type GitRepo struct {
	c *role.Context

	// Repos are converged by Provision, in order.
	Repos []Repo `mapstructure:"repos"`
}

// New returns the git role bound to c.
func New(c *role.Context) *GitRepo {
	return &GitRepo{c: c}
}

// Name implements role.Role.
func (g *GitRepo) Name() string { return "git" }

// Provision installs git and converges every configured checkout.
func (g *GitRepo) Provision(ctx context.Context) error {
	pkg, err := role.Using[*apt.Apt](g.c)
	if err != nil {
		return err
	}
	if err := pkg.EnsurePackage(ctx, "git"); err != nil {
		return err
	}

	for _, repo := range g.Repos {
		if err := g.EnsureRepository(ctx, repo); err != nil {
			return err
		}
	}
	return nil
}

// IsRepository reports whether a git checkout exists at p.
func (g *GitRepo) IsRepository(ctx context.Context, p string) (bool, error) {
	return g.c.ExistsDir(ctx, path.Join(p, ".git"))
}

// EnsureRepository clones repo when absent, otherwise fast-forwards it.
func (g *GitRepo) EnsureRepository(ctx context.Context, repo Repo) error {
	if repo.URL == "" || repo.Path == "" {
		return fmt.Errorf("ensure repository: %w", errIncomplete)
	}

	owner := repo.Owner
	if owner == "" {
		owner = g.c.User()
	}

	exists, err := g.IsRepository(ctx, repo.Path)
	if err != nil {
		return fmt.Errorf("check repository %s: %w", repo.Path, err)
	}

	if !exists {
		g.c.Logger().Info("cloning repository", "host", g.c.Host(), "url", repo.URL, "path", repo.Path)
		command := "git clone"
		if repo.Branch != "" {
			command += " -b " + repo.Branch
		}
		command += fmt.Sprintf(" %s %s", repo.URL, repo.Path)

		if _, err := g.c.Execute(ctx, command, transport.ExecOpts{User: owner}); err != nil {
			return fmt.Errorf("clone %s: %w", repo.URL, err)
		}
		return nil
	}

	g.c.Logger().Debug("updating repository", "host", g.c.Host(), "path", repo.Path)
	command := fmt.Sprintf("git -C %s", repo.Path)
	if repo.Branch != "" {
		command += fmt.Sprintf(" checkout %s && git -C %s", repo.Branch, repo.Path)
	}
	command += " pull --ff-only"

	if _, err := g.c.Execute(ctx, command, transport.ExecOpts{User: owner}); err != nil {
		return fmt.Errorf("update %s: %w", repo.Path, err)
	}
	return nil
}

// CurrentBranch returns the branch checked out at p.
func (g *GitRepo) CurrentBranch(ctx context.Context, p string) (string, error) {
	out, err := g.c.Execute(ctx, fmt.Sprintf("git -C %s rev-parse --abbrev-ref HEAD", p), transport.ExecOpts{})
	if err != nil {
		return "", fmt.Errorf("resolve branch of %s: %w", p, err)
	}
	return out, nil
}
