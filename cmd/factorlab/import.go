package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"factorlab/internal/store"
)

func newImportIndexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-index <code> <file.csv>",
		Short: "Merge a date,close CSV into the stored index series",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := store.ReadIndexCSV(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[1], err)
			}
			ps := store.NewParquetStore(a.cfg.Storage.DataDir)
			if err := ps.WriteIndex(cmd.Context(), args[0], rows); err != nil {
				return err
			}
			a.log.Info("index imported", "code", args[0], "rows", len(rows))
			return nil
		},
	}
}
