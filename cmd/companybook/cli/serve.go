package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tkingovr/companybook/internal/dashboard"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web dashboard",
	Long: `Start the web dashboard. On first launch the dashboard asks whether
notifications may be shown; nothing is sent until you allow it.`,
	Example: `  companybook serve
  companybook serve -c companybook.yaml -l 127.0.0.1:9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "listen", "l", "", "dashboard listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveAddr != "" {
		a.Config.DashboardAddr = serveAddr
	}
	a.RequestPermission()

	logger.Info("starting serve mode",
		slog.String("dashboard", a.Config.DashboardAddr),
		slog.String("store", a.Config.Store.Driver),
		slog.String("journal", a.Journal.Dir()),
		slog.String("permission", string(a.Gate.Status())),
	)

	dash := dashboard.NewServer(a.Config.DashboardAddr, a, logger)
	if err := dash.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
