package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	sshagent "github.com/xanzy/ssh-agent"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Default connection parameters.
const (
	defaultPort           = 22
	defaultConnectTimeout = 30 * time.Second
	defaultKnownHosts     = "~/.ssh/known_hosts"
)

// SSHConfig configures an SSH transport.
type SSHConfig struct {
	Host string // Target hostname or address (required)
	Port int    // SSH port (default 22)
	User string // Connection user (required)

	// Authentication. Methods are tried in order: agent, key, password.
	UseAgent      bool   // Authenticate via the local SSH agent
	KeyPath       string // Path to a private key file (~ is expanded)
	KeyPassphrase string // Passphrase for an encrypted key
	Password      string // Password authentication

	// Host key verification.
	KnownHostsPath string // known_hosts file (default ~/.ssh/known_hosts)
	Insecure       bool   // Skip host key verification

	Timeout time.Duration // Connection timeout (default 30s)
}

// SSH is a Transport that runs commands on a remote host over SSH.
// Each command runs in its own session on one shared connection.
type SSH struct {
	host      string
	client    *ssh.Client
	agentConn net.Conn
}

// NewSSH connects to the configured host and returns a ready transport.
// Connection or authentication failures surface here, before any
// provisioning command is attempted.
func NewSSH(cfg SSHConfig) (*SSH, error) {
	auth, agentConn, err := buildAuthMethods(cfg)
	if err != nil {
		return nil, err
	}

	hostKeys, err := buildHostKeyCallback(cfg)
	if err != nil {
		closeConn(agentConn)
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		closeConn(agentConn)
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return &SSH{
		host:      cfg.Host,
		client:    client,
		agentConn: agentConn,
	}, nil
}

// buildAuthMethods assembles the SSH authentication chain from the config.
// The returned net.Conn is the agent socket, if one was opened.
func buildAuthMethods(cfg SSHConfig) ([]ssh.AuthMethod, net.Conn, error) {
	var methods []ssh.AuthMethod
	var agentConn net.Conn

	if cfg.UseAgent {
		ag, conn, err := sshagent.New()
		if err != nil {
			return nil, nil, fmt.Errorf("connect to SSH agent: %w", err)
		}
		agentConn = conn
		methods = append(methods, ssh.PublicKeysCallback(ag.Signers))
	}

	if cfg.KeyPath != "" {
		signer, err := loadKey(cfg.KeyPath, cfg.KeyPassphrase)
		if err != nil {
			closeConn(agentConn)
			return nil, nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}

	if len(methods) == 0 {
		return nil, nil, ErrNoAuthMethod
	}

	return methods, agentConn, nil
}

// loadKey reads and parses a private key file.
func loadKey(path, passphrase string) (ssh.Signer, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand key path: %w", err)
	}

	pem, err := os.ReadFile(expanded) //nolint:gosec // G304: path comes from the user's own manifest
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	if passphrase != "" {
		signer, err := ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return signer, nil
	}

	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return signer, nil
}

// buildHostKeyCallback selects host key verification per the config.
func buildHostKeyCallback(cfg SSHConfig) (ssh.HostKeyCallback, error) {
	if cfg.Insecure {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicit opt-in via config
	}

	path := cfg.KnownHostsPath
	if path == "" {
		path = defaultKnownHosts
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand known_hosts path: %w", err)
	}

	callback, err := knownhosts.New(expanded)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts: %w", err)
	}
	return callback, nil
}

func closeConn(conn net.Conn) {
	if conn != nil {
		_ = conn.Close() //nolint:errcheck // best-effort cleanup
	}
}

// Execute runs a shell command on the remote host.
func (s *SSH) Execute(ctx context.Context, command string, opts ExecOpts) (*Result, error) {
	if s.client == nil {
		return nil, ErrClosed
	}

	wrapped, err := buildCommand(command, opts)
	if err != nil {
		return nil, err
	}

	session, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open SSH session: %w", err)
	}
	defer session.Close() //nolint:errcheck // session already finished or force-closed

	var stdout, stderr bytes.Buffer
	if opts.Stream != nil {
		// Stdout and stderr are written from separate goroutines inside
		// the SSH library, so a shared stream needs serializing.
		w := &syncWriter{w: opts.Stream}
		session.Stdout = w
		session.Stderr = w
	} else {
		session.Stdout = &stdout
		session.Stderr = &stderr
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Run(wrapped)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL) //nolint:errcheck // best-effort interrupt
		_ = session.Close()             //nolint:errcheck // unblocks the Run goroutine
		return nil, ctx.Err()
	case err = <-done:
	}

	result := &Result{
		Output:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, &CommandError{
				Command:  command,
				ExitCode: result.ExitCode,
				Stderr:   result.Stderr,
			}
		}
		return nil, fmt.Errorf("run remote command: %w", err)
	}

	return result, nil
}

// ExistsDir reports whether path is a directory on the remote host.
func (s *SSH) ExistsDir(ctx context.Context, path string) (bool, error) {
	return s.exists(ctx, "-d", path)
}

// ExistsFile reports whether path is a regular file on the remote host.
func (s *SSH) ExistsFile(ctx context.Context, path string) (bool, error) {
	return s.exists(ctx, "-f", path)
}

// exists runs a test(1) predicate, mapping a non-zero exit to false.
func (s *SSH) exists(ctx context.Context, flag, path string) (bool, error) {
	cmd, err := testCommand(flag, path)
	if err != nil {
		return false, err
	}

	_, err = s.Execute(ctx, cmd, ExecOpts{})
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemoveFile deletes a remote file. Absent files are not an error.
func (s *SSH) RemoveFile(ctx context.Context, path string, sudo bool) error {
	cmd, err := removeCommand(path)
	if err != nil {
		return err
	}
	if _, err := s.Execute(ctx, cmd, ExecOpts{Sudo: sudo}); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Symlink creates or replaces a remote symbolic link.
func (s *SSH) Symlink(ctx context.Context, target, link string, sudo bool) error {
	cmd, err := symlinkCommand(target, link)
	if err != nil {
		return err
	}
	if _, err := s.Execute(ctx, cmd, ExecOpts{Sudo: sudo}); err != nil {
		return fmt.Errorf("symlink %s -> %s: %w", link, target, err)
	}
	return nil
}

// Host returns the configured hostname.
func (s *SSH) Host() string {
	return s.host
}

// Close tears down the SSH connection and the agent socket, if any.
func (s *SSH) Close() error {
	closeConn(s.agentConn)
	s.agentConn = nil

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	if err != nil {
		return fmt.Errorf("close SSH connection: %w", err)
	}
	return nil
}

// syncWriter serializes writes from concurrent goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
