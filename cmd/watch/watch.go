package watch

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eoinhurrell/cfpaths/cmd/analyze"
	"github.com/eoinhurrell/cfpaths/internal/errors"
	"github.com/eoinhurrell/cfpaths/internal/inventory"
	filewatch "github.com/eoinhurrell/cfpaths/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	var debounce string

	cmd := &cobra.Command{
		Use:   "watch [broken-paths-file]",
		Short: "Rerun the audit whenever its inputs change",
		Long: `Run the audit once, then watch the broken path file and the inventory
file and rerun whenever either changes. Bursts of changes are debounced
into a single run. Failed runs are logged and watching continues.

The debounce can be set with --debounce or 'watch.debounce' in cfpaths.yaml.`,
		Example: `  # Rewrite report.json every time broken.txt is updated
  cfpaths watch broken.txt --inventory inventory.yaml -f json -o report.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := analyze.LoadConfig(cmd, args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("debounce") {
				d, err := parseDebounce(debounce)
				if err != nil {
					return errors.NewConfigError(cfg.File, err.Error())
				}
				cfg.Watch.Debounce = d
			}

			logger, err := analyze.NewLogger(cmd, cfg)
			if err != nil {
				return errors.NewConfigError(cfg.File, err.Error())
			}
			defer func() { _ = logger.Sync() }()

			inputs := []string{cfg.BrokenPaths}
			// SQLite writes land in journal files first; only document
			// inventories are watched.
			if cfg.Inventory != "" && !inventory.IsDatabase(cfg.Inventory) {
				inputs = append(inputs, cfg.Inventory)
			}

			runner := analyze.NewRunner(cfg, logger, cmd.OutOrStdout())
			watcher, err := filewatch.New(inputs, runner.Run,
				filewatch.WithDebounce(cfg.Watch.Debounce),
				filewatch.WithLogger(logger),
			)
			if err != nil {
				return errors.WrapError(err, "watch", cfg.BrokenPaths)
			}

			logger.Info("Press Ctrl+C to stop", zap.Strings("inputs", inputs))
			return watcher.Run(cmd.Context())
		},
	}

	analyze.AddFlags(cmd)
	cmd.Flags().StringVar(&debounce, "debounce", "", "Quiet period before a rerun (e.g. 500ms, 2s)")

	return cmd
}

func parseDebounce(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid --debounce %q: %w", value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("--debounce must be positive")
	}
	return d, nil
}
