// Command controller decodes genomes into controllers, stores them and runs
// the active one against a CGM feed or over gRPC.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/SmartCGMS/core-sub001/internal/config"
	"github.com/SmartCGMS/core-sub001/internal/eval"
	"github.com/SmartCGMS/core-sub001/internal/logging"
	"github.com/SmartCGMS/core-sub001/internal/model"
	"github.com/SmartCGMS/core-sub001/internal/store"
)

var (
	cfgPath   string
	modelPath string
	genomeArg string

	cfg    *config.Config
	logger *zap.Logger
)

// #region root
var rootCmd = &cobra.Command{
	Use:           "controller",
	Short:         "Genome-decoded insulin controller",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
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

	for _, c := range []*cobra.Command{decodeCmd, saveCmd, runCmd, serveCmd} {
		c.Flags().StringVar(&modelPath, "model", "", "model definition file (YAML or JSON)")
		c.Flags().StringVar(&genomeArg, "genome", "", "comma-separated codons decoded with the config's model settings")
	}
	saveCmd.Flags().Bool("activate", false, "make the saved version active")
	saveCmd.Flags().String("parent", "", "parent version id")
	saveCmd.Flags().Bool("force", false, "activate even when the candidate fails eval")
	decodeCmd.Flags().Bool("json", false, "output as JSON")
	runCmd.Flags().Bool("audit", false, "write every step to the step log of the active version")

	rootCmd.AddCommand(decodeCmd, saveCmd, activateCmd, runCmd, serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion root

// #region decode
var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a genome and print its program",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := modelFromFlags()
		if err != nil {
			return err
		}
		jsonOut, _ := cmd.Flags().GetBool("json")

		stats := m.DecodeStats()
		lines := m.Transcript().Lines()
		result := eval.NewEvalHarness(cfg.Eval).Run(m)
		if jsonOut {
			out := map[string]any{
				"kind":       m.Kind(),
				"layout":     m.Layout(),
				"rules":      m.RuleCount(),
				"transcript": lines,
				"stats":      stats,
				"eval":       result,
			}
			if rep := m.PruneReport(); rep != nil {
				out["prune"] = rep
			}
			return printJSON(out)
		}

		fmt.Printf("Kind:    %s\n", m.Kind())
		fmt.Printf("Slots:   %d (produced %d, no-op %d, failed %d)\n",
			stats.Slots, stats.Produced, stats.NoOps, stats.Failed)
		if rep := m.PruneReport(); rep != nil {
			fmt.Printf("Pruned:  %d -> %d rules in %d passes\n", rep.RulesBefore, rep.RulesAfter, rep.Passes)
		}
		fmt.Printf("Eval:    %s\n", result.Reason)
		for _, c := range result.Metrics {
			mark := "ok"
			if !c.Pass {
				mark = "!!"
			}
			fmt.Printf("  %-2s %-20s %.4f\n", mark, c.Name, c.Value)
		}
		fmt.Println()
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

// #endregion decode

// #region save-activate
var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Decode a genome and store it as a new model version",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, genome, err := modelFromFlags()
		if err != nil {
			return err
		}
		activate, _ := cmd.Flags().GetBool("activate")
		force, _ := cmd.Flags().GetBool("force")
		parent, _ := cmd.Flags().GetString("parent")

		rec := store.NewVersion(m, genome, parent)
		if activate {
			// the sweep steps m, so the record is taken first
			if result := eval.NewEvalHarness(cfg.Eval).Run(m); !result.Passed {
				if !force {
					logger.Warn("candidate failed eval, saving without activation", zap.String("reason", result.Reason))
					activate = false
				} else {
					logger.Warn("candidate failed eval, activating anyway", zap.String("reason", result.Reason))
				}
			}
		}

		s, err := store.NewStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer s.Close()

		v, err := s.SaveModel(rec, activate)
		if err != nil {
			return err
		}
		logger.Info("model saved",
			zap.String("version", v.VersionID),
			zap.String("kind", v.Kind),
			zap.Int("rules", v.RuleCount),
			zap.Bool("active", activate))
		fmt.Println(v.VersionID)
		return nil
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate <version-id>",
	Short: "Point the active model at a stored version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.NewStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Activate(args[0]); err != nil {
			return err
		}
		logger.Info("model activated", zap.String("version", args[0]))
		return nil
	},
}

// #endregion save-activate

// #region helpers
// modelFromFlags builds the model named by --model or --genome and returns it
// with its genome.
func modelFromFlags() (*model.Model, []float64, error) {
	switch {
	case modelPath != "" && genomeArg != "":
		return nil, nil, fmt.Errorf("--model and --genome are exclusive")
	case modelPath != "":
		mf, err := config.LoadModelFile(modelPath)
		if err != nil {
			return nil, nil, err
		}
		m, err := mf.Build(model.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return m, mf.Genome, nil
	case genomeArg != "":
		genome, err := parseGenome(genomeArg)
		if err != nil {
			return nil, nil, err
		}
		kind, err := model.ParseKind(cfg.Model.Kind)
		if err != nil {
			return nil, nil, err
		}
		m, err := model.New(kind, genome, cfg.Model.Config, model.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return m, genome, nil
	}
	return nil, nil, fmt.Errorf("one of --model or --genome is required")
}

func parseGenome(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	genome := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("codon %d: %w", i, err)
		}
		genome[i] = v
	}
	return genome, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
