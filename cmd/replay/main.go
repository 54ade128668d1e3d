// Command replay re-runs recorded steps through a model and reports drift.
// It exits 0 when every step matches, 1 on drift and 2 on errors.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/SmartCGMS/core-sub001/internal/config"
	"github.com/SmartCGMS/core-sub001/internal/logging"
	"github.com/SmartCGMS/core-sub001/internal/replay"
	"github.com/SmartCGMS/core-sub001/internal/store"
)

var errDrift = errors.New("replay diverged")

var (
	cfgPath   string
	dbPath    string
	tolerance float64

	cfg    *config.Config
	logger *zap.Logger
)

// #region main
var rootCmd = &cobra.Command{
	Use:           "replay",
	Short:         "Replay fixtures or audited steps and compare the outcome",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return err
		}
		logger, err = logging.NewLogger(cfg.LogLevel, cfg.LogJSON)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "glucoctl.yaml", "path to config file")
	rootCmd.PersistentFlags().Float64Var(&tolerance, "tolerance", 1e-9, "largest output difference that still matches")
	dbCmd.Flags().StringVar(&dbPath, "db", "", "database path (overrides config)")

	rootCmd.AddCommand(fixtureCmd, dbCmd)
	err := rootCmd.Execute()
	switch {
	case err == nil:
	case errors.Is(err, errDrift):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

// #endregion main

// #region fixture-mode
var fixtureCmd = &cobra.Command{
	Use:   "fixture <path>...",
	Short: "Replay fixture files against their expected results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		drifted := false
		for _, path := range args {
			f, err := replay.LoadFixture(path)
			if err != nil {
				return err
			}
			fmt.Printf("== %s: %s\n", path, f.Description)
			if !runFixture(f) {
				drifted = true
			}
		}
		if drifted {
			return errDrift
		}
		return nil
	},
}

// #endregion fixture-mode

// #region db-mode
var dbCmd = &cobra.Command{
	Use:   "db [version-id]",
	Short: "Rebuild a stored model and re-run its audited steps (default: the active version)",
	Long: `DB mode checks determinism: the stored genome is decoded again and every
audited step is replayed through the configured gate. Any change in gate action
or gated outputs is reported as drift.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if dbPath == "" {
			dbPath = cfg.DBPath
		}
		s, err := store.NewStore(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()

		var v store.ModelVersion
		if len(args) == 1 {
			v, err = s.GetVersion(args[0])
		} else {
			v, err = s.GetActive()
		}
		if err != nil {
			return err
		}
		steps, err := s.ListSteps(v.VersionID, 0)
		if err != nil {
			return err
		}
		if len(steps) == 0 {
			fmt.Fprintf(os.Stderr, "no audited steps for version %s\n", v.VersionID)
			return nil
		}
		logger.Debug("replaying audited steps", zap.String("version", v.VersionID), zap.Int("steps", len(steps)))

		f, err := replay.FromStore(v, steps, cfg.Gate)
		if err != nil {
			return err
		}
		if !runFixture(f) {
			return errDrift
		}
		return nil
	},
}

// #endregion db-mode

// #region output
// runFixture replays f, prints a comparison table and reports whether every
// step matched.
func runFixture(f *replay.Fixture) bool {
	results, mismatches, err := f.Run(tolerance)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return false
	}

	diverged := make(map[string]bool, len(mismatches))
	for _, mm := range mismatches {
		diverged[mm.StepID] = true
	}

	fmt.Printf("%-12s| %-10s| %-10s| %s\n", "Step", "Expected", "Replayed", "Match")
	fmt.Printf("%-12s+%-11s+%-11s+%s\n", "------------", "-----------", "-----------", "------")
	for i, r := range results {
		expected := ""
		if i < len(f.ExpectedResults) {
			expected = f.ExpectedResults[i].Action
		}
		id := r.StepID
		if id == "" {
			id = fmt.Sprint(i)
		}
		match := "ok"
		if diverged[id] {
			match = "DRIFT"
		}
		fmt.Printf("%-12s| %-10s| %-10s| %s\n", shortID(id), expected, r.Action, match)
	}

	for _, mm := range mismatches {
		fmt.Printf("  %s\n", mm)
	}
	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d steps (%d pass, %d limit, %d suspend), %d mismatches\n",
		s.TotalSteps, s.Passes, s.Limits, s.Suspends, len(mismatches))
	fmt.Printf("Delivered: basal_rate %.2f, bolus %.2f\n\n", s.Delivered["basal_rate"], s.Delivered["bolus"])
	return len(mismatches) == 0
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
