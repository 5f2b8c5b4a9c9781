package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"factorlab/internal/store"
)

func newPeriodsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "periods",
		Short: "List the panel periods and years present in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ps := store.NewParquetStore(a.cfg.Storage.DataDir)
			periods, err := ps.ListPanelPeriods()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "period\tyears")
			for _, p := range periods {
				years, err := ps.PanelYears(p)
				if err != nil {
					return err
				}
				span := "-"
				if n := len(years); n > 0 {
					span = fmt.Sprintf("%d..%d (%d files)", years[0], years[n-1], n)
				}
				fmt.Fprintf(tw, "%s\t%s\n", p, span)
			}
			return tw.Flush()
		},
	}
}
