package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tkingovr/companybook/api"
)

var (
	listWatch bool
	listJSON  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List companies",
	Long: `Print every company in insertion order. With --watch, keep printing
the full list each time it changes until interrupted. When a running server
owns the store, the list is read from its API and --watch is unavailable.`,
	Example: `  companybook list
  companybook list --json
  companybook list --watch`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listWatch, "watch", "w", false, "keep printing the list as it changes")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	b, a, err := openBook(ctx)
	if err != nil {
		return err
	}
	if a != nil {
		defer a.Close()
	}

	out := cmd.OutOrStdout()
	if !listWatch {
		snap, err := b.All(ctx)
		if err != nil {
			return err
		}
		return printSnapshot(out, snap)
	}
	if a == nil {
		return fmt.Errorf("--watch needs the store, which a running server owns; open its dashboard instead")
	}

	updates, stop := a.Controller.ObserveAll(ctx)
	defer stop()
	for snap := range updates {
		if err := printSnapshot(out, snap); err != nil {
			return err
		}
	}
	return nil
}

func printSnapshot(w io.Writer, snap api.Snapshot) error {
	if listJSON {
		return json.NewEncoder(w).Encode(snap)
	}
	if snap.Len() == 0 {
		_, err := fmt.Fprintln(w, "No companies available")
		return err
	}
	for _, c := range snap.Companies {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name); err != nil {
			return err
		}
	}
	return nil
}
