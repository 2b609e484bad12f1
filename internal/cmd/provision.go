package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmgilman/drover/internal/manifest"
	"github.com/jmgilman/drover/internal/report"
	"github.com/jmgilman/drover/internal/run"
	"github.com/jmgilman/drover/internal/secrets"
	"github.com/jmgilman/drover/internal/slogger"
	"github.com/jmgilman/drover/internal/spinner"
	"github.com/jmgilman/drover/internal/transport"
)

var provisionCmd = &cobra.Command{
	Use:   "provision [group]",
	Short: "Converge a server group to its manifest state",
	Long: `Converge the hosts of a manifest server group to their declared state.

The group's roles are applied in manifest order on every host. Roles are
idempotent: state that is already in place is detected and skipped, so
provisioning can be repeated at any time and interrupted runs converge on
the next attempt.

Hosts are provisioned in parallel, each over its own SSH connection with
its own command transcript. A failing host does not stop the others. When
the manifest defines a single group, the group argument may be omitted.`,
	Example: `  # Provision the only group in ./drover.yaml
  drover provision

  # Provision the web group from an explicit manifest
  drover provision web --manifest infra/drover.yaml

  # Provision one host at a time
  drover provision web --parallel 1

  # Apply the group's roles to this machine instead of connecting out
  drover provision dev --local`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProvisionCmd,
}

func runProvisionCmd(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig(cmd.Context())
	if err != nil {
		return err
	}

	manifestPath, err := cmd.Flags().GetString("manifest")
	if err != nil {
		return fmt.Errorf("get manifest flag: %w", err)
	}
	if manifestPath == "" {
		manifestPath = cfg.Default.Manifest
	}

	parallel, err := cmd.Flags().GetInt("parallel")
	if err != nil {
		return fmt.Errorf("get parallel flag: %w", err)
	}
	if parallel == 0 {
		parallel = cfg.Default.Parallel
	}

	local, err := cmd.Flags().GetBool("local")
	if err != nil {
		return fmt.Errorf("get local flag: %w", err)
	}

	loader, err := manifest.NewLoader(manifestPath)
	if err != nil {
		return fmt.Errorf("init manifest loader: %w", err)
	}
	m, err := loader.Load()
	if err != nil {
		return err
	}

	group, err := selectGroup(m, args)
	if err != nil {
		return err
	}

	dial, err := buildDialer(cmd.Context(), group, local)
	if err != nil {
		return err
	}

	runner := run.New(report.NewStore(cfg.Storage.Reports), dial, run.Config{
		LogsDir: cfg.Storage.Logs,
		Logger:  slogger.L(cmd.Context()),
	})

	opts := run.Options{Parallel: parallel}

	// Quiet interactive runs get a spinner ticking over the live command
	// output; verbose runs read the structured logs instead.
	var spin *spinner.Spinner
	if verbosity == 0 && term.IsTerminal(int(os.Stderr.Fd())) {
		spin = spinner.New(os.Stderr)
		go func() {
			_ = spin.Start() //nolint:errcheck // display is best-effort
		}()
		opts.Output = spin.HostWriter
	}

	summary, runErr := runner.Provision(cmd.Context(), *group, opts)
	if spin != nil {
		spin.Stop()
	}

	if summary != nil {
		if err := printSummary(summary, cfg.Storage.Logs); err != nil {
			return err
		}
	}

	return runErr
}

// selectGroup picks the group to provision: the one named on the command
// line, or the manifest's only group when it defines exactly one.
func selectGroup(m *manifest.Manifest, args []string) (*manifest.ServerGroup, error) {
	if len(args) == 1 {
		return m.Group(args[0])
	}

	names := m.GroupNames()
	if len(names) == 1 {
		return m.Group(names[0])
	}
	return nil, fmt.Errorf("manifest defines %d groups (%s): name the one to provision", len(names), formatList(names))
}

// buildDialer returns the transport factory for a group. Local runs bypass
// SSH entirely; SSH runs read passwords and key passphrases from the secret
// store, keyed by host.
func buildDialer(ctx context.Context, group *manifest.ServerGroup, local bool) (run.Dialer, error) {
	if local {
		return func(context.Context, string) (transport.Transport, error) {
			return transport.NewLocal(), nil
		}, nil
	}

	// Open the secret store up front so a missing keyring fails before the
	// run fans out, not on every host.
	var store secrets.Store
	if group.Auth.Method == manifest.AuthKey || group.Auth.Method == manifest.AuthPassword {
		var err error
		store, err = openSecrets(ctx)
		if err != nil {
			return nil, err
		}
	}

	return func(_ context.Context, host string) (transport.Transport, error) {
		sshCfg, err := sshConfigForHost(group, store, host)
		if err != nil {
			return nil, err
		}
		return transport.NewSSH(sshCfg)
	}, nil
}

// sshConfigForHost resolves one host's connection settings, reading the
// credential the group's auth method calls for from the secret store. A key
// passphrase is optional (unencrypted keys have none); a password is not.
func sshConfigForHost(group *manifest.ServerGroup, store secrets.Store, host string) (transport.SSHConfig, error) {
	sshCfg := transport.SSHConfig{
		Host:           host,
		Port:           group.Port,
		User:           group.User,
		KnownHostsPath: group.Auth.KnownHosts,
		Insecure:       group.Auth.Insecure,
	}

	switch group.Auth.Method {
	case manifest.AuthKey:
		sshCfg.KeyPath = group.Auth.KeyPath

		passphrase, err := store.Get(secrets.PassphraseKey(host))
		if err != nil && !errors.Is(err, secrets.ErrNotFound) {
			return transport.SSHConfig{}, fmt.Errorf("read key passphrase for %s: %w", host, err)
		}
		sshCfg.KeyPassphrase = passphrase

	case manifest.AuthPassword:
		password, err := store.Get(secrets.PasswordKey(host))
		if errors.Is(err, secrets.ErrNotFound) {
			return transport.SSHConfig{}, fmt.Errorf("no stored password for %s (run 'drover secret set %s')", host, host)
		}
		if err != nil {
			return transport.SSHConfig{}, fmt.Errorf("read password for %s: %w", host, err)
		}
		sshCfg.Password = password

	default:
		sshCfg.UseAgent = true
	}

	return sshCfg, nil
}

// printSummary writes the per-host outcome table and the transcript
// location.
func printSummary(summary *run.Summary, logsDir string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "NAME\tHOST\tSTATUS"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range summary.Hosts {
		res := &summary.Hosts[i]
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", res.Name, res.Host, res.Status); err != nil {
			return fmt.Errorf("write host result: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	fmt.Printf("\n%d converged, %d failed\n", summary.Converged, summary.Failed)
	fmt.Printf("transcripts: %s\n", logsDirForRun(logsDir, summary.RunID))
	return nil
}

func init() {
	rootCmd.AddCommand(provisionCmd)

	provisionCmd.Flags().StringP("manifest", "m", "", "manifest file (default from config)")
	provisionCmd.Flags().IntP("parallel", "p", 0, "hosts provisioned concurrently (default from config)")
	provisionCmd.Flags().Bool("local", false, "provision this machine instead of connecting over SSH")
}
