package signals

import (
	"errors"
	"time"
)

// ErrOutOfOrder is returned when a reading is older than the latest one.
var ErrOutOfOrder = errors.New("reading out of order")

// #region reading

// Reading is one CGM sample.
type Reading struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"` // mmol/L
}

// #endregion reading

// #region config

// FeedConfig holds the window lengths used for derived quantities.
type FeedConfig struct {
	AverageWindow time.Duration `yaml:"average_window" json:"average_window" validate:"gt=0"`
	SlopeWindow   time.Duration `yaml:"slope_window" json:"slope_window" validate:"gt=0"`
}

// DefaultFeedConfig returns a 5 minute average and a 15 minute slope.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		AverageWindow: 5 * time.Minute,
		SlopeWindow:   15 * time.Minute,
	}
}

// #endregion config
