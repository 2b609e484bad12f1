package role

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/jmgilman/drover/internal/transport"
)

// ErrNotRegistered is returned when a role is resolved that no registry
// entry exists for.
var ErrNotRegistered = errors.New("role is not registered")

// ConfigError describes an invalid context configuration, detected before
// any remote command is attempted.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid context configuration: %s %s", e.Field, e.Reason)
}

// ContextConfig configures a provisioning context.
type ContextConfig struct {
	// Transport is the execution channel to the target host (required).
	Transport transport.Transport

	// User is the target user state is provisioned for (required). It is
	// not necessarily the connection user.
	User string

	// Sudo elevates every command by default.
	Sudo bool

	// Registry resolves role names and types. Defaults to DefaultRegistry.
	Registry *Registry

	// Logger receives per-command debug logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Output receives a transcript of every command and its output, in
	// shell-session form. Defaults to io.Discard.
	Output io.Writer
}

// Context is the per-run state for provisioning a single host: the target
// user, the default elevation, the active environment-prefix stack, and the
// resolver cache. A Context is bound to one host and one goroutine; it is
// not safe for concurrent use.
type Context struct {
	transport   transport.Transport
	user        string
	sudo        bool
	registry    *Registry
	log         *slog.Logger
	out         io.Writer
	prefixes    []string
	instances   map[reflect.Type]Role
	provisioned map[reflect.Type]bool
}

// NewContext validates cfg and returns a context ready for provisioning.
func NewContext(cfg ContextConfig) (*Context, error) {
	if cfg.Transport == nil {
		return nil, &ConfigError{Field: "transport", Reason: "is required"}
	}
	if cfg.User == "" {
		return nil, &ConfigError{Field: "user", Reason: "must not be empty"}
	}

	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := cfg.Output
	if out == nil {
		out = io.Discard
	}

	return &Context{
		transport:   cfg.Transport,
		user:        cfg.User,
		sudo:        cfg.Sudo,
		registry:    registry,
		log:         logger,
		out:         out,
		instances:   make(map[reflect.Type]Role),
		provisioned: make(map[reflect.Type]bool),
	}, nil
}

// User returns the target user.
func (c *Context) User() string {
	return c.user
}

// Sudo reports whether commands elevate by default.
func (c *Context) Sudo() bool {
	return c.sudo
}

// Host returns the target host identity.
func (c *Context) Host() string {
	return c.transport.Host()
}

// Logger returns the context's logger.
func (c *Context) Logger() *slog.Logger {
	return c.log
}

// Transport returns the underlying execution channel.
func (c *Context) Transport() transport.Transport {
	return c.transport
}

// Output returns the transcript writer. It is never nil; roles pass it as
// the stream target for long-running commands so their output lands in the
// transcript as it is produced.
func (c *Context) Output() io.Writer {
	return c.out
}

// Execute runs a shell command on the target host. Active environment
// prefixes wrap the command transparently, outermost first. The context's
// default elevation is OR-ed with opts.Sudo. A non-zero exit is returned as
// a *transport.CommandError; the captured output, trimmed of surrounding
// whitespace, is returned either way.
func (c *Context) Execute(ctx context.Context, command string, opts transport.ExecOpts) (string, error) {
	wrapped := c.wrap(command)
	opts.Sudo = opts.Sudo || c.sudo

	c.log.Debug("executing command",
		"host", c.transport.Host(),
		"command", wrapped,
		"user", opts.User,
		"sudo", opts.Sudo,
	)
	fmt.Fprintf(c.out, "$ %s\n", wrapped)

	result, err := c.transport.Execute(ctx, wrapped, opts)
	c.transcribe(result, opts)

	var out string
	if result != nil {
		out = strings.TrimSpace(result.Output)
	}
	if err != nil {
		return out, err
	}
	return out, nil
}

// transcribe appends a completed command's output to the transcript.
// Streamed commands already wrote their output live, so only the exit
// status is added for them.
func (c *Context) transcribe(result *transport.Result, opts transport.ExecOpts) {
	if result == nil {
		return
	}
	if opts.Stream == nil {
		if result.Output != "" {
			fmt.Fprintln(c.out, strings.TrimRight(result.Output, "\n"))
		}
		if result.Stderr != "" {
			fmt.Fprintln(c.out, strings.TrimRight(result.Stderr, "\n"))
		}
	}
	if result.ExitCode != 0 {
		fmt.Fprintf(c.out, "exit status %d\n", result.ExitCode)
	}
}

// Check runs a probe command, tolerating command failure: a non-zero exit
// yields ok=false with a nil error. Only channel failures (broken
// connection, cancelled context) are returned as errors, so idempotency
// predicates can distinguish "state absent" from "cannot tell".
func (c *Context) Check(ctx context.Context, command string, opts transport.ExecOpts) (out string, ok bool, err error) {
	out, err = c.Execute(ctx, command, opts)

	var cmdErr *transport.CommandError
	if errors.As(err, &cmdErr) {
		return out, false, nil
	}
	if err != nil {
		return "", false, err
	}
	return out, true, nil
}

// ExistsDir reports whether path is a directory on the target host.
func (c *Context) ExistsDir(ctx context.Context, path string) (bool, error) {
	return c.transport.ExistsDir(ctx, path)
}

// ExistsFile reports whether path is a regular file on the target host.
func (c *Context) ExistsFile(ctx context.Context, path string) (bool, error) {
	return c.transport.ExistsFile(ctx, path)
}

// RemoveFile deletes a file on the target host. Absent files are not an
// error. The context's default elevation applies.
func (c *Context) RemoveFile(ctx context.Context, path string, sudo bool) error {
	return c.transport.RemoveFile(ctx, path, sudo || c.sudo)
}

// Symlink creates or replaces a symbolic link on the target host. The
// context's default elevation applies.
func (c *Context) Symlink(ctx context.Context, target, link string, sudo bool) error {
	return c.transport.Symlink(ctx, target, link, sudo || c.sudo)
}

// WithPrefix pushes an environment-activation prefix, runs fn, and pops the
// prefix again. The pop happens on every exit path, including errors and
// panics, so a failing fn never leaks its environment into later commands.
// Nested calls stack: prefixes apply outermost first.
func (c *Context) WithPrefix(prefix string, fn func() error) error {
	c.pushPrefix(prefix)
	defer c.popPrefix()
	return fn()
}

// Prefixes returns a copy of the active prefix stack, outermost first.
func (c *Context) Prefixes() []string {
	out := make([]string, len(c.prefixes))
	copy(out, c.prefixes)
	return out
}

func (c *Context) pushPrefix(prefix string) {
	c.prefixes = append(c.prefixes, prefix)
}

func (c *Context) popPrefix() {
	if len(c.prefixes) == 0 {
		return
	}
	c.prefixes = c.prefixes[:len(c.prefixes)-1]
}

// wrap joins the active prefixes and the command with && so the command
// runs inside every active environment.
func (c *Context) wrap(command string) string {
	if len(c.prefixes) == 0 {
		return command
	}
	parts := make([]string, 0, len(c.prefixes)+1)
	parts = append(parts, c.prefixes...)
	parts = append(parts, command)
	return strings.Join(parts, " && ")
}
