package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmgilman/drover/internal/role"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the available roles",
	Long: `List the roles a manifest can reference.

Each name can appear in a server group's roles list and be configured
through the group's options map.`,
	Args: cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		for _, name := range role.DefaultRegistry.Names() {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)
}
