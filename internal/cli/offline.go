package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"closing-journal/internal/offline"
)

// addOfflineCommands adds the offline cache lifecycle commands.
func addOfflineCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "offline",
		Short: "Manage the offline asset cache",
		Long: `Manage the versioned offline cache of app assets.

install downloads every configured asset into the current version's
namespace. activate removes namespaces of older versions.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Download all assets into the current cache version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.offlineWorker()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := w.Install(ctx); err != nil {
				return err
			}
			app.output(cmd).Success("✓ %s: %d assets cached", w.Version, len(w.Assets))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "activate",
		Short: "Delete cache namespaces of other versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.offlineWorker()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := w.Activate(ctx); err != nil {
				return err
			}
			app.output(cmd).Success("✓ %s active", w.Version)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List cache namespaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			names, err := app.Store.CacheNames(ctx)
			if err != nil {
				return err
			}
			current := app.Config.Offline.CacheVersion
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]any{
					"enabled": app.Config.Offline.Enabled,
					"current": current,
					"caches":  names,
				})
			}
			if len(names) == 0 {
				output.Dim("No cache namespaces")
				return nil
			}
			for _, name := range names {
				if name == current {
					output.Printf("%s %s\n", name, output.Badge("current"))
				} else {
					output.Println(name)
				}
			}
			return nil
		},
	})

	rootCmd.AddCommand(cmd)
}

// offlineWorker returns the wired worker, or one built from the config
// when report requests are not routed through the cache.
func (a *App) offlineWorker() (*offline.Worker, error) {
	if a.Worker != nil {
		return a.Worker, nil
	}
	return offline.NewWorker(a.Store, a.Config.Offline.CacheVersion, a.Config.OfflineOrigin(),
		a.Config.Offline.Assets, http.DefaultTransport, a.Logger)
}
