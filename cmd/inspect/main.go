// Command inspect lists stored model versions and their audited steps.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/SmartCGMS/core-sub001/internal/config"
	"github.com/SmartCGMS/core-sub001/internal/logging"
	"github.com/SmartCGMS/core-sub001/internal/store"
)

var (
	cfgPath string
	dbPath  string
	jsonOut bool

	db     *store.Store
	logger *zap.Logger
)

// #region main
var rootCmd = &cobra.Command{
	Use:           "inspect",
	Short:         "Inspect stored model versions and step audit",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if logger, err = logging.NewLogger(cfg.LogLevel, cfg.LogJSON); err != nil {
			return err
		}
		if dbPath == "" {
			dbPath = cfg.DBPath
		}
		db, err = store.NewStore(dbPath)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "glucoctl.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	versionsCmd.Flags().Int("last", 20, "show N most recent versions")
	stepsCmd.Flags().Int("last", 0, "show only the N most recent steps")

	rootCmd.AddCommand(versionsCmd, showCmd, stepsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	VersionID string `json:"version_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Kind      string `json:"kind"`
	Rules     int    `json:"rules"`
	Codons    int    `json:"codons"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List stored model versions, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		last, _ := cmd.Flags().GetInt("last")
		versions, err := db.ListVersions(last)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Fprintln(os.Stderr, "no versions found")
			return nil
		}
		activeID := ""
		if active, err := db.GetActive(); err == nil {
			activeID = active.VersionID
		}

		// store returns DESC, reverse for chronological
		rows := make([]listRow, len(versions))
		for i, v := range versions {
			rows[len(versions)-1-i] = listRow{
				VersionID: v.VersionID,
				ParentID:  v.ParentID,
				Kind:      v.Kind,
				Rules:     v.RuleCount,
				Codons:    len(v.Genome),
				Active:    v.VersionID == activeID,
				CreatedAt: v.CreatedAt.Format("2006-01-02T15:04:05Z"),
			}
		}
		if jsonOut {
			return printJSON(rows)
		}

		fmt.Printf("%-10s  %-10s  %-6s  %5s  %6s  %s\n", "Version", "Parent", "Kind", "Rules", "Codons", "Time")
		fmt.Printf("%-10s+-%-10s+-%-6s+-%5s+-%6s+-%s\n",
			"----------", "----------", "------", "-----", "------", "--------------------")
		for _, r := range rows {
			marker := ""
			if r.Active {
				marker = "  *"
			}
			fmt.Printf("%-10s  %-10s  %-6s  %5d  %6d  %s%s\n",
				shortID(r.VersionID), shortID(r.ParentID), r.Kind, r.Rules, r.Codons, r.CreatedAt, marker)
		}
		return nil
	},
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	VersionID     string   `json:"version_id"`
	ParentID      string   `json:"parent_id,omitempty"`
	Kind          string   `json:"kind"`
	Layout        string   `json:"layout"`
	ConstantScale float64  `json:"constant_scale"`
	Prune         bool     `json:"prune"`
	CreatedAt     string   `json:"created_at"`
	Transcript    []string `json:"transcript"`
	Rebuilt       bool     `json:"rebuilt_matches"`
}

var showCmd = &cobra.Command{
	Use:   "show [version-id]",
	Short: "Show one version and its program (default: the active version)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := versionArg(args)
		if err != nil {
			return err
		}

		out := detailOutput{
			VersionID:     v.VersionID,
			ParentID:      v.ParentID,
			Kind:          v.Kind,
			Layout:        fmt.Sprintf("%d x %d + %d", v.Layout.Slots, v.Layout.SlotWidth, v.Layout.Constants),
			ConstantScale: v.ConstantScale,
			Prune:         v.Prune,
			CreatedAt:     v.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Transcript:    strings.Split(v.Transcript, "\n"),
		}
		// A rebuild that transcribes differently means the decoder changed since save.
		if m, err := v.Build(); err != nil {
			logger.Warn("rebuild failed", zap.String("version", v.VersionID), zap.Error(err))
		} else {
			out.Rebuilt = m.Transcript().Format() == v.Transcript
		}

		if jsonOut {
			return printJSON(out)
		}
		fmt.Printf("Version:    %s\n", out.VersionID)
		fmt.Printf("Parent:     %s\n", out.ParentID)
		fmt.Printf("Created:    %s\n", out.CreatedAt)
		fmt.Printf("Kind:       %s\n", out.Kind)
		fmt.Printf("Layout:     %s\n", out.Layout)
		fmt.Printf("Scale:      %.2f\n", out.ConstantScale)
		fmt.Printf("Prune:      %v\n", out.Prune)
		fmt.Printf("Rebuild OK: %v\n", out.Rebuilt)
		fmt.Printf("\nProgram:\n")
		for _, line := range out.Transcript {
			fmt.Printf("  %s\n", line)
		}
		return nil
	},
}

// #endregion detail-mode

// #region steps-mode

type stepRow struct {
	ID         string             `json:"id"`
	At         string             `json:"at"`
	Action     string             `json:"action"`
	Reason     string             `json:"reason,omitempty"`
	Quantities map[string]float64 `json:"quantities"`
	Outputs    map[string]float64 `json:"outputs"`
}

var stepsCmd = &cobra.Command{
	Use:   "steps [version-id]",
	Short: "List the audited steps of a version (default: the active version)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		last, _ := cmd.Flags().GetInt("last")
		v, err := versionArg(args)
		if err != nil {
			return err
		}
		steps, err := db.ListSteps(v.VersionID, 0)
		if err != nil {
			return err
		}
		if last > 0 && len(steps) > last {
			steps = steps[len(steps)-last:]
		}

		rows := make([]stepRow, 0, len(steps))
		for _, st := range steps {
			q, err := st.Quantities()
			if err != nil {
				return fmt.Errorf("step %s: %w", st.ID, err)
			}
			o, err := st.Outputs()
			if err != nil {
				return fmt.Errorf("step %s: %w", st.ID, err)
			}
			rows = append(rows, stepRow{
				ID:         st.ID,
				At:         st.CreatedAt.Format("2006-01-02T15:04:05Z"),
				Action:     st.GateAction,
				Reason:     st.Reason,
				Quantities: q,
				Outputs:    o,
			})
		}
		if jsonOut {
			return printJSON(rows)
		}
		if len(rows) == 0 {
			fmt.Fprintln(os.Stderr, "no steps found")
			return nil
		}

		counts := map[string]int{}
		for _, r := range rows {
			fmt.Printf("%-10s  %s  %-8s  %-40s  %s\n",
				shortID(r.ID), r.At, r.Action, formatValues(r.Quantities), formatValues(r.Outputs))
			counts[r.Action]++
		}
		fmt.Printf("\n%d steps: %d pass, %d limit, %d suspend\n",
			len(rows), counts["pass"], counts["limit"], counts["suspend"])
		return nil
	},
}

// #endregion steps-mode

// #region output

func versionArg(args []string) (store.ModelVersion, error) {
	if len(args) == 1 {
		return db.GetVersion(args[0])
	}
	return db.GetActive()
}

func formatValues(m map[string]float64) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%.2f", name, m[name])
	}
	return strings.Join(parts, " ")
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
