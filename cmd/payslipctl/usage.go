package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"payslipx/internal/app"
	"payslipx/internal/config"
	"payslipx/internal/domain"
	"payslipx/internal/export"
	"payslipx/internal/repository/sqlite"
	"payslipx/internal/usage"
)

type windowFlags struct {
	from string
	to   string
	days int
}

func (w *windowFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.from, "from", "", "start date (YYYY-MM-DD), inclusive")
	cmd.Flags().StringVar(&w.to, "to", "", "end date (YYYY-MM-DD), exclusive")
	cmd.Flags().IntVar(&w.days, "days", 30, "window length when --from is not set")
}

func (w *windowFlags) resolve(now time.Time) (from, to time.Time, err error) {
	to = now.UTC()
	if w.to != "" {
		if to, err = time.Parse("2006-01-02", w.to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
	}
	from = to.AddDate(0, 0, -w.days)
	if w.from != "" {
		if from, err = time.Parse("2006-01-02", w.from); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
	}
	return from, to, nil
}

func newUsageCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Inspect the local usage ledger",
	}
	cmd.AddCommand(newUsageSummaryCmd(opts), newUsageExportCmd(opts))
	return cmd
}

func withLedger(opts *options, fn func(ledger *usage.Service) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	db, err := openLedger(opts, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(app.NewLedger(cfg, sqlite.NewUsageRepo(db), nil))
}

func newUsageSummaryCmd(opts *options) *cobra.Command {
	var (
		window windowFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize calls, tokens and cost per device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, err := window.resolve(time.Now())
			if err != nil {
				return err
			}
			return withLedger(opts, func(ledger *usage.Service) error {
				sum, err := ledger.Summary(cmd.Context(), from, to)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(sum)
				}
				return printSummary(cmd, sum)
			})
		},
	}
	window.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func printSummary(cmd *cobra.Command, sum *domain.UsageSummary) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s to %s\n", sum.From.Format("2006-01-02"), sum.To.Format("2006-01-02"))
	fmt.Fprintf(out, "calls %d (failed %d), tokens %d, cost $%.4f / ₹%.2f, p50 $%.6f, p95 $%.6f\n\n",
		sum.Calls, sum.Failures, sum.TotalTokens, sum.CostUSD, sum.CostINR, sum.P50CostUSD, sum.P95CostUSD)

	flagged := make(map[string]bool, len(sum.Anomalies))
	for _, a := range sum.Anomalies {
		flagged[a.DeviceID] = true
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tCALLS\tFAILED\tTOKENS\tUSD\tANOMALY")
	for _, d := range sum.Devices {
		mark := ""
		if flagged[d.DeviceID] {
			mark = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.4f\t%s\n", d.DeviceID, d.Calls, d.Failures, d.TotalTokens, d.CostUSD, mark)
	}
	return tw.Flush()
}

func newUsageExportCmd(opts *options) *cobra.Command {
	var (
		window windowFlags
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("--format must be csv or xlsx")
			}
			from, to, err := window.resolve(time.Now())
			if err != nil {
				return err
			}
			return withLedger(opts, func(ledger *usage.Service) error {
				recs, err := ledger.Range(cmd.Context(), from, to)
				if err != nil {
					return err
				}
				if out == "" {
					out = export.BuildFilename("payslipx_usage", from, to, format)
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()

				if format == "csv" {
					err = export.WriteCSV(f, recs)
				} else {
					var sum *domain.UsageSummary
					if sum, err = ledger.Summary(cmd.Context(), from, to); err == nil {
						err = export.WriteXLSX(f, recs, sum)
					}
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d records to %s\n", len(recs), out)
				return nil
			})
		},
	}
	window.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file")
	return cmd
}
