package transport

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// shell is the interpreter every wrapped command runs under. Activation
// scripts pushed by scoped environments use bash syntax (source), so a plain
// POSIX sh is not enough.
const shell = "/bin/bash"

// quote returns s as a single shell word.
func quote(s string) (string, error) {
	quoted, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("quote shell word: %w", err)
	}
	return quoted, nil
}

// buildCommand wraps a shell command for execution as a given user with
// optional privilege elevation.
//
// Plain commands pass through untouched and run under the connection user's
// shell. Elevated commands run as `sudo -n -H /bin/bash -c <command>`;
// setting opts.User switches to that user with `sudo -u`. Sudo runs
// non-interactively: the connection user must hold passwordless sudo on the
// target.
func buildCommand(command string, opts ExecOpts) (string, error) {
	if opts.User == "" && !opts.Sudo {
		return command, nil
	}

	quoted, err := quote(command)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("sudo -n -H")
	if opts.User != "" {
		user, err := quote(opts.User)
		if err != nil {
			return "", err
		}
		b.WriteString(" -u ")
		b.WriteString(user)
	}
	b.WriteString(" ")
	b.WriteString(shell)
	b.WriteString(" -c ")
	b.WriteString(quoted)

	return b.String(), nil
}

// testCommand builds a `test` invocation for an existence predicate.
// flag is -d for directories and -f for regular files.
func testCommand(flag, path string) (string, error) {
	quoted, err := quote(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("test %s %s", flag, quoted), nil
}

// removeCommand builds an idempotent file removal.
func removeCommand(path string) (string, error) {
	quoted, err := quote(path)
	if err != nil {
		return "", err
	}
	return "rm -f " + quoted, nil
}

// symlinkCommand builds a force-replace symlink creation.
func symlinkCommand(target, link string) (string, error) {
	quotedTarget, err := quote(target)
	if err != nil {
		return "", err
	}
	quotedLink, err := quote(link)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ln -sf %s %s", quotedTarget, quotedLink), nil
}
