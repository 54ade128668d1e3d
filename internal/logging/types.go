package logging

import "time"

// TimeLayout is the fixed-width timestamp format of every created_at column,
// so that text order is time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region step-entry
// StepEntry is a single row in the step_log table. Quantities and outputs
// are keyed by name so the stored JSON reads without the enum tables.
type StepEntry struct {
	ID         string // generated when empty
	VersionID  string
	// SessionID names the model instance that ran the step. Replay builds
	// a fresh model per session.
	SessionID  string
	Quantities map[string]float64
	Outputs    map[string]float64
	GateAction string // "pass" | "limit" | "suspend"
	Reason     string
	CreatedAt  time.Time
}

// #endregion step-entry
