package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmgilman/drover/internal/logging"
	"github.com/jmgilman/drover/internal/report"
	"github.com/jmgilman/drover/internal/slogger"
)

// Default poll interval for following transcripts.
const defaultLogPollInterval = 100 * time.Millisecond

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect provisioning run reports",
	Long: `Inspect the recorded outcomes of provisioning runs.

Every provisioned host leaves a report entry: which roles were applied,
whether they converged, and where the command transcript lives. Entries
are referenced by their generated record name (e.g. "bold-mare") or ID.`,
	Example: `  # List all recorded runs
  drover runs

  # List failed runs for the web group
  drover runs --group web --status failed

  # Show one host's per-role outcome
  drover runs show bold-mare

  # Tail a host's command transcript
  drover runs logs bold-mare -f`,
	Args: cobra.NoArgs,
	RunE: runListRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a run record in detail",
	Long:  `Show a host's run record: metadata, per-role outcomes, and the transcript path.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

var runsLogsCmd = &cobra.Command{
	Use:   "logs <name>",
	Short: "View a run's command transcript",
	Long: `View the command transcript of a run record.

The transcript holds every command issued to the host in shell-session
form, along with its output.`,
	Example: `  # View the last 100 transcript lines
  drover runs logs bold-mare

  # Follow a run still in flight
  drover runs logs bold-mare -f

  # Show the whole transcript
  drover runs logs bold-mare --full`,
	Args: cobra.ExactArgs(1),
	RunE: runRunLogs,
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a run record",
	Long: `Remove a run record from the report store.

The host's transcript is deleted along with the record once no other
record references the same run.`,
	Example: `  # Remove with confirmation prompt
  drover runs rm bold-mare

  # Force remove without confirmation
  drover runs rm bold-mare --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRemoveRun,
}

func runListRuns(cmd *cobra.Command, _ []string) error {
	cfg, err := requireConfig(cmd.Context())
	if err != nil {
		return err
	}

	group, err := cmd.Flags().GetString("group")
	if err != nil {
		return fmt.Errorf("get group flag: %w", err)
	}
	host, err := cmd.Flags().GetString("host")
	if err != nil {
		return fmt.Errorf("get host flag: %w", err)
	}
	status, err := cmd.Flags().GetString("status")
	if err != nil {
		return fmt.Errorf("get status flag: %w", err)
	}

	store := report.NewStore(cfg.Storage.Reports)
	entries, err := store.List(cmd.Context(), report.ListFilter{
		Group:  group,
		Host:   host,
		Status: report.Status(status),
	})
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(entries) == 0 {
		slogger.L(cmd.Context()).Info("no runs recorded")
		return nil
	}

	// Newest first.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "NAME\tGROUP\tHOST\tSTATUS\tROLES\tSTARTED"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range entries {
		e := &entries[i]
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Name,
			e.Group,
			e.Host,
			e.Status,
			formatRoleCount(e),
			formatTimeAgo(e.StartedAt),
		); err != nil {
			return fmt.Errorf("write entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig(cmd.Context())
	if err != nil {
		return err
	}

	store := report.NewStore(cfg.Storage.Reports)
	entry, err := findEntry(cmd.Context(), store, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Name:       %s\n", entry.Name)
	fmt.Printf("ID:         %s\n", entry.ID)
	fmt.Printf("Run:        %s\n", entry.RunID)
	fmt.Printf("Group:      %s\n", entry.Group)
	fmt.Printf("Host:       %s\n", entry.Host)
	fmt.Printf("User:       %s\n", entry.User)
	fmt.Printf("Status:     %s\n", entry.Status)
	fmt.Printf("Started:    %s\n", entry.StartedAt.Format(time.RFC3339))
	if !entry.FinishedAt.IsZero() {
		fmt.Printf("Finished:   %s (%s)\n",
			entry.FinishedAt.Format(time.RFC3339),
			entry.FinishedAt.Sub(entry.StartedAt).Round(time.Second),
		)
	}
	fmt.Printf("Transcript: %s\n", entry.Transcript)
	if entry.Error != "" {
		fmt.Printf("Error:      %s\n", entry.Error)
	}

	if len(entry.Roles) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ROLE\tSTATUS\tDURATION\tERROR"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range entry.Roles {
		duration := ""
		if r.Status != report.RoleSkipped {
			duration = r.Duration.Round(time.Millisecond).String()
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Status, duration, r.Error); err != nil {
			return fmt.Errorf("write role result: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

func runRunLogs(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig(cmd.Context())
	if err != nil {
		return err
	}

	follow, err := cmd.Flags().GetBool("follow")
	if err != nil {
		return fmt.Errorf("get follow flag: %w", err)
	}
	lines, err := cmd.Flags().GetInt("lines")
	if err != nil {
		return fmt.Errorf("get lines flag: %w", err)
	}
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return fmt.Errorf("get full flag: %w", err)
	}

	store := report.NewStore(cfg.Storage.Reports)
	entry, err := findEntry(cmd.Context(), store, args[0])
	if err != nil {
		return err
	}

	pathMgr := logging.NewPathManager(cfg.Storage.Logs)
	if !pathMgr.LogExists(entry.RunID, entry.Host) {
		return fmt.Errorf("no transcript found for %s", entry.Name)
	}
	reader := logging.NewReader(pathMgr)

	if follow {
		return reader.FollowWithHistory(cmd.Context(), entry.RunID, entry.Host, os.Stdout, lines, defaultLogPollInterval)
	}

	var logLines []string
	if full {
		logLines, err = reader.ReadAll(entry.RunID, entry.Host)
	} else {
		logLines, err = reader.ReadLastN(entry.RunID, entry.Host, lines)
	}
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	for _, line := range logLines {
		fmt.Println(line)
	}
	return nil
}

func runRemoveRun(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig(cmd.Context())
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("get force flag: %w", err)
	}

	store := report.NewStore(cfg.Storage.Reports)
	entry, err := findEntry(cmd.Context(), store, args[0])
	if err != nil {
		return err
	}

	if !force {
		fmt.Printf("This will remove the record %s for host %s.\n", entry.Name, entry.Host)
		fmt.Print("Are you sure? [y/N] ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Canceled")
			return nil
		}
	}

	if err := store.Remove(cmd.Context(), entry.ID); err != nil {
		return fmt.Errorf("remove record: %w", err)
	}

	// Drop the run's transcript directory once its last record is gone.
	remaining, err := store.List(cmd.Context(), report.ListFilter{RunID: entry.RunID})
	if err != nil {
		return fmt.Errorf("list run records: %w", err)
	}
	if len(remaining) == 0 {
		if err := logging.NewPathManager(cfg.Storage.Logs).RemoveRunLogs(entry.RunID); err != nil {
			return err
		}
	}

	fmt.Printf("Removed record %s for host %s\n", entry.Name, entry.Host)
	return nil
}

// findEntry resolves a record reference: the generated name first, the
// entry ID second.
func findEntry(ctx context.Context, store report.Store, ref string) (*report.Entry, error) {
	entry, err := store.GetByName(ctx, ref)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, report.ErrNotFound) {
		return nil, fmt.Errorf("get record: %w", err)
	}

	entry, err = store.Get(ctx, ref)
	if errors.Is(err, report.ErrNotFound) {
		return nil, fmt.Errorf("no run record named %q", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return entry, nil
}

// formatRoleCount summarizes an entry's role outcomes as converged/total.
func formatRoleCount(e *report.Entry) string {
	converged := 0
	for _, r := range e.Roles {
		if r.Status == report.RoleConverged {
			converged++
		}
	}
	return fmt.Sprintf("%d/%d", converged, len(e.Roles))
}

// formatTimeAgo formats a time as a human-readable relative time.
func formatTimeAgo(t time.Time) string {
	d := time.Since(t)

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", h)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	case d < 30*24*time.Hour:
		weeks := int(d.Hours() / 24 / 7)
		if weeks == 1 {
			return "1w ago"
		}
		return fmt.Sprintf("%dw ago", weeks)
	default:
		months := int(d.Hours() / 24 / 30)
		if months == 1 {
			return "1mo ago"
		}
		return fmt.Sprintf("%dmo ago", months)
	}
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsLogsCmd)
	runsCmd.AddCommand(runsRmCmd)

	runsCmd.Flags().String("group", "", "filter by manifest group")
	runsCmd.Flags().String("host", "", "filter by host")
	runsCmd.Flags().String("status", "", "filter by status (running, converged, failed)")

	runsLogsCmd.Flags().BoolP("follow", "f", false, "follow transcript output in real-time")
	runsLogsCmd.Flags().IntP("lines", "n", logging.DefaultTailLines, "number of lines to show")
	runsLogsCmd.Flags().Bool("full", false, "show the entire transcript")

	runsRmCmd.Flags().BoolP("force", "f", false, "skip confirmation prompt")
}
