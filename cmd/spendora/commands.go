package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"spendora/internal/amqp"
	"spendora/internal/cli"
	"spendora/internal/core"
	"spendora/internal/render"
	"spendora/internal/worker"
)

type runFunc func(ctx context.Context, cmd *cobra.Command, app *cli.App, args []string) error

// withApp loads configuration, builds the application and closes it after fn.
// needsModel commands fail early when no API key is configured.
func withApp(needsModel bool, fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return err
		}
		if needsModel {
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}
		}
		logger := cli.SetupLogger(cfg, os.Stderr)

		ctx, stop := cli.SignalContext(cmd.Context())
		defer stop()

		app, err := cli.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(ctx, cmd, app, args)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "spendora",
		Short:         "AI assisted bookkeeping: invoices, expenses, reconciliation and tax reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newInvoiceCmd(),
		newExpenseCmd(),
		newReconcileCmd(),
		newReportCmd(),
		newHistoryCmd(),
		newLedgerCmd(),
		newRemindersCmd(),
		newDashboardCmd(),
		newExportCmd(),
		newEventsCmd(),
		newSyncCmd(),
	)
	return root
}

func newInvoiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invoice <file>",
		Short: "Extract an invoice and schedule its tax reminder",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, app *cli.App, args []string) error {
			up, err := cli.ReadUpload(args[0])
			if err != nil {
				return err
			}
			out, err := app.Assistant.ProcessInvoice(ctx, up.Name, up.Data, up.MIMEType)
			if out.Item.Entry == nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Invoice(out))
			return err
		}),
	}
}

func newExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expense <description> <amount>",
		Short: "Categorize an expense",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, app *cli.App, args []string) error {
			amount, err := core.ParseAmount(args[1])
			if err != nil {
				return &core.ValidationError{Field: "amount", Err: err}
			}
			out, err := app.Assistant.CategorizeExpense(ctx, args[0], amount)
			if out.Item.Entry == nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Expense(out))
			return err
		}),
	}
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <statement>",
		Short: "Match a plain text bank statement against the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, app *cli.App, args []string) error {
			up, err := cli.ReadUpload(args[0])
			if err != nil {
				return err
			}
			out, err := app.Assistant.ReconcileStatement(ctx, up.Name, up.Data, up.MIMEType)
			if out.Item.Entry == nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Reconciliation(out.Result))
			return err
		}),
	}
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Generate a financial report from the ledger",
		Args:  cobra.NoArgs,
		RunE: withApp(true, func(ctx context.Context, cmd *cobra.Command, app *cli.App, _ []string) error {
			report, err := app.Assistant.GenerateReport(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Report(report))
			return nil
		}),
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List processed invoices, expenses and reconciliations, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, cmd *cobra.Command, app *cli.App, _ []string) error {
			fmt.Fprint(cmd.OutOrStdout(), render.History(app.Assistant.History(ctx), app.Location))
			return nil
		}),
	}
}

func newLedgerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ledger",
		Short: "Show the ledger derived from history",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, cmd *cobra.Command, app *cli.App, _ []string) error {
			fmt.Fprint(cmd.OutOrStdout(), render.Ledger(app.Assistant.Ledger(ctx)))
			return nil
		}),
	}
}

func newRemindersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reminders",
		Short: "List tax filing reminders, soonest first",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, cmd *cobra.Command, app *cli.App, _ []string) error {
			today := time.Now().In(app.Location)
			fmt.Fprint(cmd.OutOrStdout(), render.Reminders(app.Assistant.Reminders(ctx), today))
			return nil
		}),
	}
}

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show totals, category breakdowns, recent activity and upcoming filings",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, cmd *cobra.Command, app *cli.App, _ []string) error {
			now := time.Now().In(app.Location)
			fmt.Fprint(cmd.OutOrStdout(), render.Dashboard(app.Assistant.Dashboard(ctx, now), app.Location, now))
			return nil
		}),
	}
}

func newExportCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger and tax reminders to Google Sheets",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, cmd *cobra.Command, app *cli.App, _ []string) error {
			exp, mem, err := app.Exporter(ctx, dryRun)
			if err != nil {
				return err
			}
			res, err := exp.Export(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Ledger: %d rows -> %s\n", res.LedgerRows, res.LedgerRange)
			fmt.Fprintf(w, "Reminders: %d rows -> %s\n", res.ReminderRows, res.RemindersRange)
			if mem != nil {
				for _, sheet := range mem.Sheets() {
					fmt.Fprintf(w, "\n[%s]\n", sheet)
					for _, row := range mem.Rows(sheet) {
						fmt.Fprintln(w, row...)
					}
				}
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the rows instead of writing the spreadsheet")
	return cmd
}

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Follow store events published to the AMQP broker",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, cmd *cobra.Command, app *cli.App, _ []string) error {
			client, err := app.Events()
			if err != nil {
				return err
			}
			defer client.Close()

			w := cmd.OutOrStdout()
			err = client.Consume(ctx, func(e *amqp.Event) error {
				switch e.Type {
				case amqp.EventHistorySaved:
					fmt.Fprint(w, render.History([]core.HistoryItem{*e.HistoryItem}, app.Location))
				case amqp.EventReminderCreated:
					fmt.Fprint(w, render.Reminders([]core.TaxReminder{*e.Reminder}, time.Now().In(app.Location)))
				}
				return nil
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		}),
	}
}

func newSyncCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Keep the spreadsheet up to date from store events",
		Args:  cobra.NoArgs,
		RunE: withApp(false, func(ctx context.Context, cmd *cobra.Command, app *cli.App, _ []string) error {
			exp, _, err := app.Exporter(ctx, false)
			if err != nil {
				return err
			}
			client, err := app.Events()
			if err != nil {
				return err
			}
			defer client.Close()

			return worker.NewSyncWorker(exp, interval).Run(ctx, client)
		}),
	}
	cmd.Flags().DurationVar(&interval, "interval", 15*time.Minute, "periodic full resync, 0 to disable")
	return cmd
}
