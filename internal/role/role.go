// Package role implements the provisioning engine: the per-host execution
// context, the role contract, and the capability resolver that guarantees at
// most one instance of each role per run.
package role

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Role is a unit of provisioning capability. Provision brings the target
// host into the role's desired state and must be idempotent: when the state
// is already in place it performs no mutating commands.
type Role interface {
	// Name returns the name the role is registered under.
	Name() string

	// Provision converges the host to the role's desired state.
	Provision(ctx context.Context) error
}

// Factory constructs a role instance bound to a host context.
type Factory func(*Context) Role

// entry is a registered role: its name, concrete type, and factory.
type entry struct {
	name    string
	typ     reflect.Type
	factory Factory
}

// Registry maps role names and types to their factories. The package-level
// DefaultRegistry is populated by the built-in role packages in init; tests
// may carry a private registry on their Context instead.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*entry
	byType map[reflect.Type]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*entry),
		byType: make(map[reflect.Type]*entry),
	}
}

// DefaultRegistry holds the built-in roles.
var DefaultRegistry = NewRegistry()

// Register binds a role type and name to its factory. It is meant to be
// called from init and panics on duplicate registrations, mirroring
// database/sql driver registration.
func Register[R Role](r *Registry, name string, factory func(*Context) R) {
	typ := reflect.TypeFor[R]()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[name]; dup {
		panic("role: Register called twice for name " + name)
	}
	if _, dup := r.byType[typ]; dup {
		panic("role: Register called twice for type " + typ.String())
	}

	e := &entry{
		name: name,
		typ:  typ,
		factory: func(c *Context) Role {
			return factory(c)
		},
	}
	r.byName[name] = e
	r.byType[typ] = e
}

// Names returns the registered role names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a role is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byName[name]
	return ok
}

func (r *Registry) lookupName(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	return e, ok
}

func (r *Registry) lookupType(typ reflect.Type) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byType[typ]
	return e, ok
}

// Using resolves the role of type R for the context's current run. The first
// resolution constructs the instance through the registry; every later one
// returns the same instance, so configuration set through one reference is
// visible through all of them. Resolution performs no remote commands.
func Using[R Role](c *Context) (R, error) {
	var zero R
	typ := reflect.TypeFor[R]()

	if inst, ok := c.instances[typ]; ok {
		return inst.(R), nil
	}

	e, ok := c.registry.lookupType(typ)
	if !ok {
		return zero, fmt.Errorf("resolve role %s: %w", typ, ErrNotRegistered)
	}

	inst := e.factory(c)
	c.instances[typ] = inst
	return inst.(R), nil
}

// Resolve returns the per-run instance of the role registered under name,
// constructing it on first use. It shares the cache with Using, so a role
// resolved by name and by type is the same instance.
func Resolve(c *Context, name string) (Role, error) {
	e, ok := c.registry.lookupName(name)
	if !ok {
		return nil, fmt.Errorf("resolve role %q: %w", name, ErrNotRegistered)
	}

	if inst, ok := c.instances[e.typ]; ok {
		return inst, nil
	}

	inst := e.factory(c)
	c.instances[e.typ] = inst
	return inst, nil
}

// Provision runs r.Provision at most once per run. Later calls for the same
// role type are no-ops; a failed attempt is not recorded, so it may be
// retried.
func Provision(ctx context.Context, c *Context, r Role) error {
	typ := reflect.TypeOf(r)
	if c.provisioned[typ] {
		return nil
	}
	if err := r.Provision(ctx); err != nil {
		return fmt.Errorf("provision role %s: %w", r.Name(), err)
	}
	c.provisioned[typ] = true
	return nil
}

// Require resolves the role of type R and ensures it has been provisioned
// this run. It is the dependency hook for roles that need another role's
// capability in place before they can do their own work.
func Require[R Role](ctx context.Context, c *Context) (R, error) {
	r, err := Using[R](c)
	if err != nil {
		return r, err
	}
	if err := Provision(ctx, c, r); err != nil {
		var zero R
		return zero, err
	}
	return r, nil
}
