package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// localHost is the host identity reported by the local transport.
const localHost = "localhost"

// Local is a Transport that runs commands on the machine drover itself runs
// on. It serves `provision --local` and the test suite; the command and
// privilege semantics match the SSH transport.
type Local struct{}

// NewLocal returns a transport that executes against the local machine.
func NewLocal() *Local {
	return &Local{}
}

// Execute runs a shell command locally.
func (l *Local) Execute(ctx context.Context, command string, opts ExecOpts) (*Result, error) {
	wrapped, err := buildCommand(command, opts)
	if err != nil {
		return nil, err
	}

	// G204: running caller-supplied commands is this transport's purpose.
	cmd := exec.CommandContext(ctx, shell, "-c", wrapped) //nolint:gosec // intentional shell execution

	var stdout, stderr bytes.Buffer
	if opts.Stream != nil {
		cmd.Stdout = opts.Stream
		cmd.Stderr = opts.Stream
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err = cmd.Run()

	result := &Result{
		Output: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &CommandError{
				Command:  command,
				ExitCode: result.ExitCode,
				Stderr:   result.Stderr,
			}
		}
		return nil, fmt.Errorf("run local command: %w", err)
	}

	return result, nil
}

// ExistsDir reports whether path is a local directory.
func (l *Local) ExistsDir(_ context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.IsDir(), nil
}

// ExistsFile reports whether path is a local regular file.
func (l *Local) ExistsFile(_ context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// RemoveFile deletes a local file. Absent files are not an error.
func (l *Local) RemoveFile(ctx context.Context, path string, sudo bool) error {
	if sudo {
		cmd, err := removeCommand(path)
		if err != nil {
			return err
		}
		if _, err := l.Execute(ctx, cmd, ExecOpts{Sudo: true}); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		return nil
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Symlink creates or replaces a local symbolic link.
func (l *Local) Symlink(ctx context.Context, target, link string, sudo bool) error {
	if sudo {
		cmd, err := symlinkCommand(target, link)
		if err != nil {
			return err
		}
		if _, err := l.Execute(ctx, cmd, ExecOpts{Sudo: true}); err != nil {
			return fmt.Errorf("symlink %s -> %s: %w", link, target, err)
		}
		return nil
	}

	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace symlink %s: %w", link, err)
	}
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("symlink %s -> %s: %w", link, target, err)
	}
	return nil
}

// Host returns the local host identity.
func (l *Local) Host() string {
	return localHost
}

// Close is a no-op for the local transport.
func (l *Local) Close() error {
	return nil
}
