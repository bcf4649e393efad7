package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"closing-journal/internal/errors"
	"closing-journal/internal/journal"
	"closing-journal/internal/view"
)

// addDataCommands adds backup, restore and reset commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExportCmd(app))
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newClearCmd(app))
}

func newExportCmd(app *App) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all data as a JSON backup",
		Long: `Export candidates, trades and settings as one JSON document.

The file is named closing-trade-<today>.json unless --out is given.
Use --out - to write to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if out == "-" {
				return app.Journal.WriteExport(ctx, cmd.OutOrStdout())
			}
			if out == "" {
				out = journal.ExportFileName(app.now(), app.location())
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			if err := app.Journal.WriteExport(ctx, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}

			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"file": out})
			}
			output.Success("✓ 내보내기 완료: %s", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, or - for stdout")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON backup",
		Long: `Import a backup produced by export. Records are upserted by id; existing
records not in the file are kept. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader
			if args[0] == "-" {
				r = cmd.InOrStdin()
			} else {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open import file: %w", err)
				}
				defer f.Close()
				r = f
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			res, err := app.Journal.Import(ctx, r)
			output := app.output(cmd)
			if err != nil {
				output.Error("가져오기 실패: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(res)
			}
			output.Success("✓ 가져오기 완료: 후보 %d, 매매 %d, 설정 %d", res.Candidates, res.Trades, res.Settings)
			return nil
		},
	}
}

func newClearCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all local data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			confirmed := confirmFunc(cmd, yes)(view.PromptClearAll)

			ctx, cancel := commandContext(cmd)
			defer cancel()
			err := app.Journal.ClearAll(ctx, confirmed)
			if errors.Is(err, errors.ErrNotConfirmed) {
				output.Warning("취소되었습니다")
				return nil
			}
			if err != nil {
				return err
			}
			output.Success("✓ 모든 로컬 데이터를 삭제했습니다")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
