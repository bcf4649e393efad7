package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// addStoreCommands adds raw record access, mainly for settings which no
// panel edits.
func addStoreCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Raw record access",
		Long: `Read and write raw JSON records.

Collections: candidates (key id), trades (key id), settings (key key).
Indexes: byDate on candidates and trades, bySymbol on trades.`,
	}

	var index, value string
	listCmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List records, optionally by index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			var (
				docs []json.RawMessage
				err  error
			)
			if index != "" {
				docs, err = app.Store.ListByIndex(ctx, args[0], index, value)
			} else {
				docs, err = app.Store.ListAll(ctx, args[0])
			}
			if err != nil {
				return err
			}
			if docs == nil {
				docs = []json.RawMessage{}
			}
			return app.output(cmd).JSON(docs)
		},
	}
	listCmd.Flags().StringVar(&index, "index", "", "index name")
	listCmd.Flags().StringVar(&value, "value", "", "index value")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <collection> <key>",
		Short: "Print one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			doc, err := app.Store.Get(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if doc == nil {
				return fmt.Errorf("%s/%s: not found", args[0], args[1])
			}
			return app.output(cmd).JSON(doc)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "put <collection> <json|->",
		Short: "Upsert one record",
		Example: `  closing-journal store put settings '{"key":"theme","value":"dark"}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = strings.NewReader(args[1])
			if args[1] == "-" {
				r = cmd.InOrStdin()
			}
			var doc json.RawMessage
			if err := json.NewDecoder(r).Decode(&doc); err != nil {
				return fmt.Errorf("parsing record: %w", err)
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.Store.Put(ctx, args[0], doc); err != nil {
				return err
			}
			app.output(cmd).Success("✓ saved")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <collection> <key>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.Store.Delete(ctx, args[0], args[1]); err != nil {
				return err
			}
			app.output(cmd).Success("✓ deleted")
			return nil
		},
	})

	rootCmd.AddCommand(cmd)
}
