package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"factorlab/internal/backtest"
	"factorlab/internal/report"
	"factorlab/internal/strategy/builtins"
)

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := a.openRuns()
			if err != nil {
				return err
			}
			defer rs.Close()

			runs, err := rs.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "id\tcreated\tstrategy\tperiod\trange\tnav\tannual\tmax dd")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s..%s\t%s\t%s\t%s\n",
					r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Strategy, r.Period,
					report.FormatDate(r.Start), report.FormatDate(r.End),
					report.FormatRatio(r.Summary.CumulativeNAV),
					report.FormatPct(r.Summary.AnnualReturn),
					report.FormatPct(r.Summary.MaxDrawdown.Depth))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 = all)")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var (
		monthly    bool
		selections bool
		maxSymbols int
	)
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the report of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := a.openRuns()
			if err != nil {
				return err
			}
			defer rs.Close()

			ctx := cmd.Context()
			run, err := rs.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			equity, err := rs.ListEquity(ctx, run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			h := report.Header{Strategy: run.Strategy, Period: run.Period, Benchmark: run.Benchmark, RunID: run.ID}
			if err := report.WriteSummary(out, h, run.Summary); err != nil {
				return err
			}
			fmt.Fprintln(out)
			if err := report.WriteReturns(out, "year", "2006", backtest.YearlyReturns(equity)); err != nil {
				return err
			}
			if monthly {
				fmt.Fprintln(out)
				if err := report.WriteReturns(out, "month", "2006-01", backtest.MonthlyReturns(equity)); err != nil {
					return err
				}
			}
			if selections {
				sels, err := rs.ListSelections(ctx, run.ID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				return report.WriteSelections(out, sels, maxSymbols)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&monthly, "monthly", "m", false, "include monthly returns")
	f.BoolVar(&selections, "selections", false, "print every period's basket")
	f.IntVar(&maxSymbols, "max-symbols", 8, "symbols shown per basket with --selections (0 = all)")
	return cmd
}

func newStrategiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List registered strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := builtins.NewRegistry()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, name := range reg.List() {
				s, _ := reg.Get(name)
				fmt.Fprintf(tw, "%s\t%s\n", name, s.Description())
			}
			if a.cfg.Backtest.Strategy == "" && a.cfg.Backtest.Factor != "" {
				if s, err := reg.Resolve(a.cfg.Backtest); err == nil {
					fmt.Fprintf(tw, "%s\t%s (from config)\n", s.Name(), s.Description())
				}
			}
			return tw.Flush()
		},
	}
}
