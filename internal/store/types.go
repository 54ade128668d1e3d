package store

import (
	"errors"
	"time"

	"github.com/SmartCGMS/core-sub001/internal/codon"
)

// ErrNotFound is returned when a version or the active pointer is missing.
var ErrNotFound = errors.New("not found")

// #region model-version
// ModelVersion is one stored genome together with everything needed to
// rebuild the same model from it.
type ModelVersion struct {
	VersionID     string
	ParentID      string
	Kind          string
	Layout        codon.Layout
	ConstantScale float64
	MaxDepth      int
	Prune         bool
	Genome        []float64
	Transcript    string // rendered program at save time
	RuleCount     int
	CreatedAt     time.Time
}

// #endregion model-version

// #region step-record
// StepRecord is one audited model step as read back from step_log.
type StepRecord struct {
	ID             string
	VersionID      string
	SessionID      string // empty for steps logged without a session
	QuantitiesJSON string
	OutputsJSON    string
	GateAction     string
	Reason         string
	CreatedAt      time.Time
}

// #endregion step-record
