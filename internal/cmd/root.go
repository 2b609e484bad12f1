// Package cmd implements the drover CLI commands using Cobra.
// It provides commands for provisioning manifest server groups, inspecting
// run reports and transcripts, and managing host credentials.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmgilman/drover/internal/config"
	"github.com/jmgilman/drover/internal/slogger"
)

// appConfig holds the loaded application configuration.
var appConfig *config.Config

// configLoader is used for reading and writing configuration keys.
var configLoader *config.Loader

// verbosity counts the -v flags: 0 errors only, 1 info, 2+ debug.
var verbosity int

var rootCmd = &cobra.Command{
	Use:   "drover",
	Short: "Provision servers from a declarative role manifest",
	Long: `Drover provisions servers over SSH from a declarative manifest.

A manifest defines server groups: the hosts in each group, how to reach
them, and the ordered roles that describe the state the hosts should
converge to. Roles are idempotent, so a group can be provisioned again at
any time; hosts that already match the desired state are left untouched.

Every run is recorded: per-role outcomes land in the report store and the
full command transcript of each host is kept on disk.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := slogger.New(slogger.Config{Verbosity: verbosity})

		// Store dependencies in context for subcommands
		ctx := slogger.WithLogger(cmd.Context(), logger)
		ctx = WithConfig(ctx, appConfig)
		ctx = WithLoader(ctx, configLoader)
		cmd.SetContext(ctx)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
}

func initConfig() {
	loader, err := config.NewLoader()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
		return
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		return
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config validation failed: %v\n", err)
	}

	appConfig = cfg
	configLoader = loader
}

// formatList joins strings with commas and "and" before the last item.
func formatList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		var builder strings.Builder
		for i, item := range items {
			if i == len(items)-1 {
				builder.WriteString("and ")
				builder.WriteString(item)
			} else {
				builder.WriteString(item)
				builder.WriteString(", ")
			}
		}
		return builder.String()
	}
}
