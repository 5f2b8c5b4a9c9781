package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"factorlab/internal/config"
	"factorlab/internal/store"
	"factorlab/internal/util"
)

// app holds what every subcommand needs once the config is loaded.
type app struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "factorlab",
		Short:         "Periodic cross-sectional factor backtester",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version", "help":
				return nil
			}
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default $FACTORLAB_CONFIG or "+config.DefaultPath+")")

	root.AddCommand(
		newRunCmd(a),
		newRunsCmd(a),
		newShowCmd(a),
		newStrategiesCmd(a),
		newImportIndexCmd(a),
		newPeriodsCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(config.Path(a.configPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.log = util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(a.log)
	return nil
}

func (a *app) openRuns() (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(a.cfg.Storage.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	runs, err := store.NewSQLiteStore(a.cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	return runs, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the factorlab version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "factorlab %s\n", version)
		},
	}
}
