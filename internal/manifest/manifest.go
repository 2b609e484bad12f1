// Package manifest loads the drover.yaml host manifest: server groups, their
// connection settings, and the ordered roles to apply to them.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// DefaultFile is the manifest file name looked up in the working directory.
const DefaultFile = "drover.yaml"

// Authentication method names for auth.method.
const (
	AuthAgent    = "agent"
	AuthKey      = "key"
	AuthPassword = "password"
)

// Sentinel errors for manifest operations.
var (
	ErrNotFound      = errors.New("manifest file not found")
	ErrGroupNotFound = errors.New("server group not defined")
)

// validate is the shared validator instance.
var validate = validator.New()

// Manifest represents the full host manifest.
type Manifest struct {
	Servers map[string]ServerGroup `mapstructure:"servers" validate:"required,min=1,dive"`
}

// ServerGroup describes a set of hosts provisioned identically.
type ServerGroup struct {
	Name string `mapstructure:"-"` // Group key, filled in by the loader

	Hosts []string `mapstructure:"hosts" validate:"required,min=1,dive,required"`
	User  string   `mapstructure:"user" validate:"required"`
	Port  int      `mapstructure:"port" validate:"min=0,max=65535"`

	// Sudo elevates every command of the run by default.
	Sudo bool `mapstructure:"sudo"`

	Auth Auth `mapstructure:"auth"`

	// Roles are applied in order; Options carries per-role configuration
	// decoded onto the role instance at run time.
	Roles   []string                  `mapstructure:"roles" validate:"required,min=1,dive,required"`
	Options map[string]map[string]any `mapstructure:"options"`
}

// Auth holds SSH authentication settings for a server group. Passwords and
// key passphrases are never written to the manifest; the runner reads them
// from the secret store by host.
type Auth struct {
	Method     string `mapstructure:"method" validate:"omitempty,oneof=agent key password"`
	KeyPath    string `mapstructure:"key_path"`
	KnownHosts string `mapstructure:"known_hosts"`
	Insecure   bool   `mapstructure:"insecure"`
}

// Validate checks the manifest for errors using struct tags.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("manifest validation failed: %w", err)
	}
	return nil
}

// Group returns the named server group.
// Returns ErrGroupNotFound if the manifest does not define it.
func (m *Manifest) Group(name string) (*ServerGroup, error) {
	g, ok := m.Servers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, name)
	}
	return &g, nil
}

// GroupNames returns the defined group names, sorted.
func (m *Manifest) GroupNames() []string {
	names := make([]string, 0, len(m.Servers))
	for name := range m.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RoleOptions returns the option map for a role, or an empty map when the
// manifest configures none.
func (g *ServerGroup) RoleOptions(role string) map[string]any {
	opts, ok := g.Options[role]
	if !ok {
		return map[string]any{}
	}
	return opts
}

// Loader provides manifest loading.
type Loader struct {
	v       *viper.Viper
	path    string
	homeDir string
}

// NewLoader creates a manifest loader for path. An empty path means
// DefaultFile in the working directory.
func NewLoader(path string) (*Loader, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}

	if path == "" {
		path = DefaultFile
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	return &Loader{
		v:       v,
		path:    path,
		homeDir: home,
	}, nil
}

// Path returns the manifest file path.
func (l *Loader) Path() string {
	return l.path
}

// Load reads and validates the manifest file.
func (l *Loader) Load() (*Manifest, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, l.path)
	}

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := l.v.Unmarshal(&m, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	for name, g := range m.Servers {
		g.Name = name
		if g.Port == 0 {
			g.Port = 22
		}
		if g.Auth.Method == "" {
			g.Auth.Method = AuthAgent
		}
		g.Auth.KeyPath = l.expandPath(g.Auth.KeyPath)
		g.Auth.KnownHosts = l.expandPath(g.Auth.KnownHosts)
		m.Servers[name] = g
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// expandPath replaces ~ with the home directory.
func (l *Loader) expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(l.homeDir, path[2:])
	}
	if path == "~" {
		return l.homeDir
	}
	return path
}
