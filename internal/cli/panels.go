package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"closing-journal/internal/errors"
	"closing-journal/internal/journal"
	"closing-journal/internal/models"
	"closing-journal/internal/view"
)

// addPanelCommands adds one command per panel plus its actions.
func addPanelCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAutoCmd(app))
	rootCmd.AddCommand(newTodayCmd(app))
	rootCmd.AddCommand(newJournalCmd(app))
	rootCmd.AddCommand(newPanelCmd(app, models.TabStats, "stats", "Show performance statistics"))
	rootCmd.AddCommand(newPanelCmd(app, models.TabPatterns, "patterns", "Show the entry pattern reference"))
	rootCmd.AddCommand(newPanelCmd(app, models.TabSettings, "settings", "Show backup and reset help"))
}

// newPanelCmd renders a panel with no actions of its own.
func newPanelCmd(app *App, tab models.Tab, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderTab(cmd, app, tab)
		},
	}
}

func renderTab(cmd *cobra.Command, app *App, tab models.Tab) error {
	st, err := app.state(cmd, tab)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	return app.renderer(cmd).Render(ctx, st)
}

func dispatchAction(cmd *cobra.Command, app *App, tab models.Tab, name, id string, yes bool) (view.Result, error) {
	st, err := app.state(cmd, tab)
	if err != nil {
		return view.Result{}, err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	return app.actions(cmd, yes).Dispatch(ctx, name, st, id)
}

// runAction dispatches a panel action and prints its result. A declined
// confirmation is not an error.
func runAction(cmd *cobra.Command, app *App, tab models.Tab, name, id string, yes bool) (view.Result, error) {
	output := app.output(cmd)
	res, err := dispatchAction(cmd, app, tab, name, id, yes)
	if errors.Is(err, errors.ErrNotConfirmed) {
		output.Warning("취소되었습니다")
		return res, nil
	}
	if err != nil {
		return res, err
	}

	switch {
	case output.IsJSON():
		return res, output.JSON(res)
	case res.Text != "":
		output.Println(res.Text)
	case res.Candidate != nil:
		output.Success("✓ 후보 저장: %s %s (%s)", res.Candidate.Symbol, res.Candidate.Name, res.Candidate.ID)
	case res.Draft == nil:
		output.Success("✓ 삭제했습니다: %s", id)
	}
	return res, nil
}

// ============================================================================
// Auto
// ============================================================================

func newAutoCmd(app *App) *cobra.Command {
	var reload bool
	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Show the auto-generated candidate report",
		Long: `Show today's auto-generated candidate report.

Use --reload to bypass HTTP caches when fetching the report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.state(cmd, models.TabAuto)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return app.renderer(cmd).RenderAuto(ctx, st, reload)
		},
	}
	cmd.Flags().BoolVar(&reload, "reload", false, "fetch the report bypassing caches")

	cmd.AddCommand(&cobra.Command{
		Use:   "save <code>",
		Short: "Save a report item as a candidate for the selected day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runAction(cmd, app, models.TabAuto, view.ActionAutoSave, args[0], false)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "copy <code>",
		Short: "Print the clipboard summary of a report item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runAction(cmd, app, models.TabAuto, view.ActionAutoCopy, args[0], false)
			return err
		},
	})
	return cmd
}

// ============================================================================
// Today
// ============================================================================

func newTodayCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show candidates for the selected day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderTab(cmd, app, models.TabToday)
		},
	}
	cmd.AddCommand(newTodayAddCmd(app))
	cmd.AddCommand(&cobra.Command{
		Use:   "copy <id>",
		Short: "Print the clipboard summary of a candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runAction(cmd, app, models.TabToday, view.ActionTodayCopy, args[0], false)
			return err
		},
	})
	cmd.AddCommand(newDeleteCmd(app, models.TabToday, view.ActionTodayDelete, "Delete a candidate"))
	cmd.AddCommand(newTodayPromoteCmd(app))
	return cmd
}

func newTodayAddCmd(app *App) *cobra.Command {
	var (
		in     journal.CandidateInput
		checks []string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a candidate for the selected day",
		Example: `  closing-journal today add --symbol 005930 --name 삼성전자 --theme 반도체 --check liquidity,leader`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			st, err := app.state(cmd, models.TabToday)
			if err != nil {
				return err
			}
			for _, key := range checks {
				if !in.Checklist.SetByKey(key, true) {
					return errors.NewValidationError("check", key, "unknown checklist item")
				}
			}
			in.Date = st.Date

			ctx, cancel := commandContext(cmd)
			defer cancel()
			c, err := app.Journal.AddCandidate(ctx, in)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(c)
			}
			output.Success("✓ 후보 저장: %s %s (%s)", c.Symbol, c.Name, c.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Symbol, "symbol", "", "stock code (required)")
	cmd.Flags().StringVar(&in.Name, "name", "", "stock name")
	cmd.Flags().StringVar(&in.Theme, "theme", "", "theme")
	cmd.Flags().StringVar(&in.NewsTier, "news", models.DefaultNewsTier, "news tier")
	cmd.Flags().StringVar(&in.Pattern, "pattern", models.DefaultPattern, "entry pattern")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "free-form notes")
	cmd.Flags().StringSliceVar(&checks, "check", nil, "checklist items that passed: "+strings.Join(models.ChecklistKeys, ", "))
	return cmd
}

func newTodayPromoteCmd(app *App) *cobra.Command {
	var (
		save bool
		in   journal.TradeInput
	)
	cmd := &cobra.Command{
		Use:   "promote <id>",
		Short: "Prefill a trade from a candidate",
		Long: `Prefill a trade from a candidate. The draft is printed; with --save the
trade is stored using the draft plus the given prices.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			res, err := dispatchAction(cmd, app, models.TabToday, view.ActionTodayPromote, args[0], false)
			if err != nil {
				return err
			}
			d := res.Draft
			if !save {
				if output.IsJSON() {
					return output.JSON(d)
				}
				output.Bold("매매 초안")
				output.Printf("  날짜: %s\n  종목: %s %s\n  계획: %s\n", d.Date, d.Symbol, d.Name, d.Plan)
				return nil
			}

			in.Date, in.Symbol, in.Name, in.Plan = d.Date, d.Symbol, d.Name, d.Plan
			ctx, cancel := commandContext(cmd)
			defer cancel()
			t, err := app.Journal.AddTrade(ctx, in, d.Date)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}
			output.Success("✓ 매매 저장: %s %s (%s)", t.Symbol, t.Name, t.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store the trade instead of printing the draft")
	addPriceFlags(cmd, &in)
	return cmd
}

// ============================================================================
// Journal
// ============================================================================

func newJournalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show all recorded trades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderTab(cmd, app, models.TabJournal)
		},
	}
	cmd.AddCommand(newJournalAddCmd(app))
	cmd.AddCommand(&cobra.Command{
		Use:   "copy <id>",
		Short: "Print the clipboard summary of a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runAction(cmd, app, models.TabJournal, view.ActionJournalCopy, args[0], false)
			return err
		},
	})
	cmd.AddCommand(newDeleteCmd(app, models.TabJournal, view.ActionJournalDelete, "Delete a trade"))
	return cmd
}

func newJournalAddCmd(app *App) *cobra.Command {
	var in journal.TradeInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a trade",
		Example: `  closing-journal journal add --symbol 005930 --entry 70000 --exit 72100 --qty 10`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			st, err := app.state(cmd, models.TabJournal)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			t, err := app.Journal.AddTrade(ctx, in, st.Date)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}
			output.Success("✓ 매매 저장: %s %s (%s)", t.Symbol, t.Name, t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Date, "trade-date", "", "trade date (default: --date or today)")
	cmd.Flags().StringVar(&in.Symbol, "symbol", "", "stock code (required)")
	cmd.Flags().StringVar(&in.Name, "name", "", "stock name")
	cmd.Flags().StringVar(&in.Plan, "plan", "", "plan")
	addPriceFlags(cmd, &in)
	return cmd
}

func addPriceFlags(cmd *cobra.Command, in *journal.TradeInput) {
	cmd.Flags().StringVar(&in.Entry, "entry", "", "entry price")
	cmd.Flags().StringVar(&in.Exit, "exit", "", "exit price")
	cmd.Flags().StringVar(&in.Qty, "qty", "", "quantity")
	cmd.Flags().StringVar(&in.Result, "result", "", "result notes")
}

func newDeleteCmd(app *App, tab models.Tab, action, short string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := runAction(cmd, app, tab, action, args[0], yes)
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
