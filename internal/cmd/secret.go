package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmgilman/drover/internal/prompt"
	"github.com/jmgilman/drover/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage stored host credentials",
	Long: `Manage the SSH credentials drover uses to reach hosts.

Passwords and key passphrases are stored in the system keyring (with an
encrypted-file fallback on headless machines), keyed by host. The manifest
never holds a credential; a group using password or key authentication
reads them from this store at connect time.`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set <host>",
	Short: "Store a credential for a host",
	Long: `Store the SSH password for a host, prompting for the value.

With --passphrase, stores the private key passphrase instead; it is used
to unlock the group's key when connecting to this host.`,
	Example: `  # Store the SSH password for a host
  drover secret set db1.example.com

  # Store the private key passphrase for a host
  drover secret set db1.example.com --passphrase`,
	Args: cobra.ExactArgs(1),
	RunE: runSecretSet,
}

var secretLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored credentials",
	Long:  `List the hosts with stored credentials. Values are never printed.`,
	Args:  cobra.NoArgs,
	RunE:  runSecretLs,
}

var secretRmCmd = &cobra.Command{
	Use:   "rm <host>",
	Short: "Remove a stored credential",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretRm,
}

// secretPassphraseFlag selects the key passphrase slot instead of the
// password slot on set and rm.
var secretPassphraseFlag bool

func runSecretSet(cmd *cobra.Command, args []string) error {
	store, err := openSecrets(cmd.Context())
	if err != nil {
		return err
	}
	return storeSecret(store, prompt.New(), args[0], secretPassphraseFlag)
}

// storeSecret prompts for a credential value and stores it under the host's
// password or passphrase key. Empty values are rejected so a stray return at
// the prompt cannot silently blank a credential.
func storeSecret(store secrets.Store, prompter prompt.Prompter, host string, passphrase bool) error {
	key := secrets.PasswordKey(host)
	label := "SSH password"
	if passphrase {
		key = secrets.PassphraseKey(host)
		label = "key passphrase"
	}

	value, err := prompter.Secret(fmt.Sprintf("%s for %s: ", label, host))
	if err != nil {
		return fmt.Errorf("read secret: %w", err)
	}
	if value == "" {
		return fmt.Errorf("empty %s", label)
	}

	if err := store.Set(key, value); err != nil {
		return err
	}

	fmt.Printf("Stored %s for %s\n", label, host)
	return nil
}

func runSecretLs(cmd *cobra.Command, _ []string) error {
	store, err := openSecrets(cmd.Context())
	if err != nil {
		return err
	}

	keys, err := store.Keys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No credentials stored")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "HOST\tTYPE"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, key := range keys {
		kind, host, ok := strings.Cut(key, "/")
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", host, kind); err != nil {
			return fmt.Errorf("write credential: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

func runSecretRm(cmd *cobra.Command, args []string) error {
	host := args[0]

	store, err := openSecrets(cmd.Context())
	if err != nil {
		return err
	}

	key := secrets.PasswordKey(host)
	label := "password"
	if secretPassphraseFlag {
		key = secrets.PassphraseKey(host)
		label = "passphrase"
	}

	if err := store.Delete(key); err != nil {
		return err
	}

	fmt.Printf("Removed %s for %s\n", label, host)
	return nil
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretLsCmd)
	secretCmd.AddCommand(secretRmCmd)

	for _, cmd := range []*cobra.Command{secretSetCmd, secretRmCmd} {
		cmd.Flags().BoolVar(&secretPassphraseFlag, "passphrase", false, "target the key passphrase instead of the password")
	}
}
