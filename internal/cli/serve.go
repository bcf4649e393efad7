package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"closing-journal/internal/api"
)

func addServeCommand(rootCmd *cobra.Command, app *App) {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journal over HTTP",
		Long: `Serve the JSON API and, when server.static_dir is set, the static app
shell. Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Config.Server.Addr
			}
			handler := api.NewAPIHandler(app.Journal, app.Reports, app.maxItems(), app.Logger, api.Options{
				Version:   Version,
				StaticDir: app.Config.Server.StaticDir,
				Location:  app.location(),
				Now:       app.Now,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return handler.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	rootCmd.AddCommand(cmd)
}
