// Package transport provides an abstraction over executing shell commands on
// a target host, either over SSH or locally. It is the execution channel the
// role engine issues every provisioning command through.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sentinel errors for transport operations.
var (
	// ErrNoAuthMethod is returned when an SSH transport is configured
	// without any usable authentication method.
	ErrNoAuthMethod = errors.New("no SSH authentication method configured")

	// ErrClosed is returned when a command is executed on a closed transport.
	ErrClosed = errors.New("transport is closed")
)

// CommandError describes a command that ran but exited non-zero.
// Transports return it from Execute; callers use errors.As to inspect the
// exit code and captured stderr.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr != "" {
		return fmt.Sprintf("command exited with status %d: %s", e.ExitCode, stderr)
	}
	return fmt.Sprintf("command exited with status %d", e.ExitCode)
}

// ExecOpts configures a single command execution.
type ExecOpts struct {
	// User runs the command as this user via sudo. Empty means the
	// connection user.
	User string

	// Sudo elevates the command with administrative privilege. Implied
	// when User is set, since switching users requires elevation.
	Sudo bool

	// Stream receives combined output as the command runs instead of
	// capturing it. When set, Result.Output and Result.Stderr are empty.
	// Useful for long-running commands (source builds, package upgrades).
	Stream io.Writer
}

// Result holds the output from a completed command.
type Result struct {
	Output   string // Captured stdout (empty when streamed)
	Stderr   string // Captured stderr (empty when streamed)
	ExitCode int
}

// Transport runs commands and file operations on a target host.
//
// Execute returns *CommandError on non-zero exit. The existence predicates
// never fail on absence; they only fail when the channel itself does.
//
//go:generate go run github.com/matryer/moq@latest -pkg mocks -out mocks/transport.go . Transport
type Transport interface {
	// Execute runs a shell command on the target host.
	Execute(ctx context.Context, command string, opts ExecOpts) (*Result, error)

	// ExistsDir reports whether path exists and is a directory.
	ExistsDir(ctx context.Context, path string) (bool, error)

	// ExistsFile reports whether path exists and is a regular file.
	ExistsFile(ctx context.Context, path string) (bool, error)

	// RemoveFile deletes a file. Removing an absent file is not an error.
	RemoveFile(ctx context.Context, path string, sudo bool) error

	// Symlink creates (or replaces) a symbolic link at link pointing to target.
	Symlink(ctx context.Context, target, link string, sudo bool) error

	// Host returns the host identity for logs and reports.
	Host() string

	// Close releases the underlying connection.
	Close() error
}
