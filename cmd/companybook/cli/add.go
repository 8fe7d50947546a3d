package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkingovr/companybook/internal/app"
	"github.com/tkingovr/companybook/internal/permission"
)

var addAllowNotifications bool

var addCmd = &cobra.Command{
	Use:   "add NAME...",
	Short: "Add one or more companies",
	Long: `Add companies to the store. Names are trimmed; blank names and names
refused by the naming policy are reported and skipped. When a running
server owns the store, names are added through its API instead.`,
	Example: `  companybook add "Acme Corp" "Bolt LLC"
  companybook add --allow-notifications "Acme Corp"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().BoolVar(&addAllowNotifications, "allow-notifications", false, "send notifications for these additions")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	b, a, err := openBook(ctx)
	if err != nil {
		return err
	}
	if a != nil {
		defer a.Close()
		if addAllowNotifications {
			if err := allowNotifications(a); err != nil {
				return err
			}
		}
	} else if addAllowNotifications {
		logger.Warn("--allow-notifications ignored: the running server decides notification permission")
	}

	out := cmd.OutOrStdout()
	var errs []error
	for _, name := range args {
		rec, err := b.Insert(ctx, name)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %q: %v\n", name, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(out, "added %d\t%s\n", rec.ID, rec.Name)
	}
	return errors.Join(errs...)
}

// allowNotifications answers the permission prompt with a grant. A decision
// already recorded is left alone.
func allowNotifications(a *app.App) error {
	if a.Gate.Status() != permission.StatusPending {
		return nil
	}
	a.RequestPermission()
	if err := a.Gate.Grant(); err != nil {
		return fmt.Errorf("granting notification permission: %w", err)
	}
	return nil
}
