package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #region log-step
// LogStep writes one audited step to the step_log table and returns its id.
func LogStep(db *sql.DB, entry StepEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	quantities, err := json.Marshal(nonNil(entry.Quantities))
	if err != nil {
		return "", fmt.Errorf("marshal quantities: %w", err)
	}
	outputs, err := json.Marshal(nonNil(entry.Outputs))
	if err != nil {
		return "", fmt.Errorf("marshal outputs: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO step_log (id, version_id, session_id, quantities_json, outputs_json, gate_action, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.VersionID,
		nullIfEmpty(entry.SessionID),
		string(quantities),
		string(outputs),
		entry.GateAction,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(TimeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("log step: %w", err)
	}
	return entry.ID, nil
}

// #endregion log-step

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

// #endregion helpers
