package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkingovr/companybook/internal/app"
)

var checkCmd = &cobra.Command{
	Use:   "check NAME",
	Short: "Dry-run the naming policy for a name",
	Long: `Check what verdict a company name would receive without adding it.
Useful for testing and debugging naming rules.`,
	Example: `  companybook check -c companybook.yaml "Acme Holdings"
  companybook check -c companybook.yaml test`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, err := app.NewEngine(cfg)
	if err != nil {
		return err
	}

	resp, err := app.NewChecker(engine, logger).Check(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("checking %q: %w", args[0], err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
