package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set via ldflags
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of companybook",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "companybook %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
