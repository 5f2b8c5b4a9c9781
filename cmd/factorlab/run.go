package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"factorlab/internal/report"
	"factorlab/internal/store"
	"factorlab/internal/strategy"
	"factorlab/internal/strategy/builtins"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		strategyName string
		period       string
		start, end   string
		benchmark    string
		noSave       bool
		selections   bool
		maxSymbols   int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest and print its report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bc := a.cfg.Backtest
			flags := cmd.Flags()
			if flags.Changed("strategy") {
				bc.Strategy = strategyName
			}
			if flags.Changed("period") {
				bc.Period = period
			}
			if flags.Changed("start") {
				bc.StartDate = start
			}
			if flags.Changed("end") {
				bc.EndDate = end
			}
			if flags.Changed("benchmark") {
				bc.Benchmark = benchmark
			}
			a.cfg.Backtest = bc
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			req, err := strategy.RequestFromConfig(builtins.NewRegistry(), bc)
			if err != nil {
				return err
			}

			ps := store.NewParquetStore(a.cfg.Storage.DataDir)
			var (
				runs    store.RunStore
				results store.ResultWriter
			)
			if !noSave {
				rs, err := a.openRuns()
				if err != nil {
					return err
				}
				defer rs.Close()
				runs, results = rs, ps
			}

			bt := strategy.NewBacktester(ps, ps, runs, results, a.log)
			res, err := bt.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			h := report.Header{Strategy: req.Strategy.Name(), Period: string(req.Period), Benchmark: req.Benchmark}
			if !noSave {
				h.RunID = res.RunID
			}
			if err := report.WriteSummary(out, h, res.Detail.Summary); err != nil {
				return err
			}
			fmt.Fprintln(out)
			if err := report.WriteReturns(out, "year", "2006", res.Detail.Yearly); err != nil {
				return err
			}
			if selections {
				fmt.Fprintln(out)
				return report.WriteSelections(out, res.Detail.Dense, maxSymbols)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&strategyName, "strategy", "s", "", "registered strategy name (empty: build from config factor fields)")
	f.StringVarP(&period, "period", "p", "", "rebalance period: D, W, M, Q or A")
	f.StringVar(&start, "start", "", "first date, YYYY-MM-DD")
	f.StringVar(&end, "end", "", "last date, YYYY-MM-DD")
	f.StringVar(&benchmark, "benchmark", "", "benchmark index code")
	f.BoolVar(&noSave, "no-save", false, "do not persist the run")
	f.BoolVar(&selections, "selections", false, "print every period's basket")
	f.IntVar(&maxSymbols, "max-symbols", 8, "symbols shown per basket with --selections (0 = all)")
	return cmd
}
