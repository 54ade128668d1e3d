package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/gate"
	"github.com/SmartCGMS/core-sub001/internal/logging"
	"github.com/SmartCGMS/core-sub001/internal/metrics"
	"github.com/SmartCGMS/core-sub001/internal/model"
	"github.com/SmartCGMS/core-sub001/internal/signals"
	"github.com/SmartCGMS/core-sub001/internal/store"
)

// #region input
// feedLine is one line of run input. Glucose is optional so a line may carry
// only an IOB or COB update.
type feedLine struct {
	At      time.Time `json:"at"`
	Glucose *float64  `json:"glucose"`
	IOB     *float64  `json:"iob"`
	COB     *float64  `json:"cob"`
}

type stepLine struct {
	At      time.Time          `json:"at"`
	Action  string             `json:"action"`
	Reason  string             `json:"reason"`
	Outputs map[string]float64 `json:"outputs"`
	StepID  string             `json:"step_id,omitempty"`
}

// #endregion input

// #region run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Step the model once per JSON line of CGM input on stdin",
	Long: `Each input line is {"at": RFC3339, "glucose": mmol/L, "iob": U, "cob": g}.
Every field is optional; a missing "at" uses the current time. One JSON line
with the gated outputs is written per input line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		audit, _ := cmd.Flags().GetBool("audit")

		var s *store.Store
		if audit || (modelPath == "" && genomeArg == "") {
			var err error
			if s, err = store.NewStore(cfg.DBPath); err != nil {
				return err
			}
			defer s.Close()
		}
		m, versionID, err := loadModel(s)
		if err != nil {
			return err
		}
		if audit && versionID == "" {
			return fmt.Errorf("--audit needs a stored model; drop --model/--genome")
		}

		sessionID := uuid.New().String()
		if audit {
			logger.Info("auditing steps", zap.String("version", versionID), zap.String("session", sessionID))
		}

		feed := signals.NewFeed(cfg.Signals)
		g := gate.NewGate(cfg.Gate)
		enc := json.NewEncoder(os.Stdout)

		scanner := bufio.NewScanner(os.Stdin)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			var in feedLine
			if err := json.Unmarshal([]byte(text), &in); err != nil {
				logger.Warn("skipping malformed line", zap.Int("line", lineNum), zap.Error(err))
				continue
			}
			if in.At.IsZero() {
				in.At = time.Now().UTC()
			}
			if in.Glucose != nil {
				if err := feed.Push(signals.Reading{At: in.At, Value: *in.Glucose}); err != nil {
					logger.Warn("skipping reading", zap.Int("line", lineNum), zap.Error(err))
					continue
				}
			}
			if in.IOB != nil {
				feed.SetInsulinOnBoard(*in.IOB)
			}
			if in.COB != nil {
				feed.SetCarbsOnBoard(*in.COB)
			}

			quantities := feed.Quantities()
			decision := g.Evaluate(quantities, m.Step(quantities))
			metrics.RecordGate(string(decision.Action), decision.VetoTypes())

			out := stepLine{
				At:      in.At,
				Action:  string(decision.Action),
				Reason:  decision.Reason,
				Outputs: outputNames(decision.Outputs),
			}
			if audit {
				out.StepID, err = logging.LogStep(s.DB(), logging.StepEntry{
					VersionID:  versionID,
					SessionID:  sessionID,
					Quantities: quantityNames(quantities),
					Outputs:    out.Outputs,
					GateAction: out.Action,
					Reason:     out.Reason,
				})
				if err != nil {
					logger.Warn("step audit failed", zap.Error(err))
				}
			}
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("write step: %w", err)
			}
		}
		return scanner.Err()
	},
}

// #endregion run

// #region model-source
// loadModel builds the model named by flags, or the active stored version when
// no flag is given. The version id is empty for a flag-built model.
func loadModel(s *store.Store) (*model.Model, string, error) {
	if modelPath != "" || genomeArg != "" {
		m, _, err := modelFromFlags()
		return m, "", err
	}
	v, err := s.GetActive()
	if err != nil {
		return nil, "", fmt.Errorf("load active model: %w", err)
	}
	m, err := v.Build(model.WithLogger(logger))
	if err != nil {
		return nil, "", fmt.Errorf("rebuild version %s: %w", v.VersionID, err)
	}
	return m, v.VersionID, nil
}

func quantityNames(in map[env.Quantity]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for q, v := range in {
		out[q.String()] = v
	}
	return out
}

func outputNames(in map[env.Output]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for o, v := range in {
		out[o.String()] = v
	}
	return out
}

// #endregion model-source
