// Command fixture-export writes a stored model version and its audited steps
// as a replay fixture.
package main

import (
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

var (
	cfgPath     string
	dbPath      string
	outPath     string
	last        int
	description string
)

// #region main
var rootCmd = &cobra.Command{
	Use:          "fixture-export [version-id]",
	Short:        "Export a stored version and its audited steps as a replay fixture (default: the active version)",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogJSON)
		if err != nil {
			return err
		}
		defer logger.Sync()
		if dbPath == "" {
			dbPath = cfg.DBPath
		}
		versionID := ""
		if len(args) == 1 {
			versionID = args[0]
		}
		return run(cfg, logger, versionID)
	},
}

func main() {
	rootCmd.Flags().StringVar(&cfgPath, "config", "glucoctl.yaml", "path to config file")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.Flags().StringVar(&outPath, "out", "", "output fixture JSON path")
	rootCmd.Flags().IntVar(&last, "last", 0, "export only the N most recent steps (0: all)")
	rootCmd.Flags().StringVar(&description, "description", "", "fixture description")
	_ = rootCmd.MarkFlagRequired("out")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract
func run(cfg *config.Config, logger *zap.Logger, versionID string) error {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer s.Close()

	var v store.ModelVersion
	if versionID != "" {
		v, err = s.GetVersion(versionID)
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
		return fmt.Errorf("version %s has no audited steps", v.VersionID)
	}
	if last > 0 && len(steps) > last {
		cut := len(steps) - last
		// a model carries registers and unset quantities between steps, so
		// replay starting mid-session may drift
		if steps[cut-1].SessionID == steps[cut].SessionID {
			logger.Warn("export starts in the middle of a session; replay may drift",
				zap.String("version", v.VersionID),
				zap.String("session", steps[cut].SessionID))
		}
		steps = steps[cut:]
	}

	f, err := replay.FromStore(v, steps, cfg.Gate)
	if err != nil {
		return err
	}
	if description != "" {
		f.Description = description
	}
	if err := replay.WriteFixture(outPath, f); err != nil {
		return err
	}

	logger.Info("fixture written",
		zap.String("path", outPath),
		zap.String("version", v.VersionID),
		zap.Int("steps", len(f.Steps)))
	return nil
}

// #endregion extract
