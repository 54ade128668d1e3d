package signals

import (
	"fmt"
	"time"

	"github.com/SmartCGMS/core-sub001/internal/env"
)

// #region feed

// Feed turns a stream of CGM readings into model quantities.
type Feed struct {
	config   FeedConfig
	readings []Reading
	iob      float64
	cob      float64
	hasIOB   bool
	hasCOB   bool
}

// NewFeed creates an empty feed.
func NewFeed(config FeedConfig) *Feed {
	return &Feed{config: config}
}

// Push appends a reading and drops the ones no window needs any more.
func (f *Feed) Push(r Reading) error {
	if n := len(f.readings); n > 0 && r.At.Before(f.readings[n-1].At) {
		return fmt.Errorf("reading at %s before %s: %w",
			r.At.Format("15:04:05"), f.readings[n-1].At.Format("15:04:05"), ErrOutOfOrder)
	}
	f.readings = append(f.readings, r)

	cutoff := r.At.Add(-max(f.config.AverageWindow, f.config.SlopeWindow))
	drop := 0
	for drop < len(f.readings) && f.readings[drop].At.Before(cutoff) {
		drop++
	}
	f.readings = f.readings[drop:]
	return nil
}

// SetInsulinOnBoard records the latest IOB estimate in U.
func (f *Feed) SetInsulinOnBoard(v float64) {
	f.iob, f.hasIOB = v, true
}

// SetCarbsOnBoard records the latest COB estimate in g.
func (f *Feed) SetCarbsOnBoard(v float64) {
	f.cob, f.hasCOB = v, true
}

// Len reports how many readings are held.
func (f *Feed) Len() int {
	return len(f.readings)
}

// #endregion feed

// #region quantities

// Quantities returns the values to push into a model. Glucose quantities
// are omitted until the first reading arrives, as are IOB and COB until set.
func (f *Feed) Quantities() map[env.Quantity]float64 {
	out := make(map[env.Quantity]float64, 5)
	if n := len(f.readings); n > 0 {
		out[env.Glucose] = f.readings[n-1].Value
		out[env.GlucoseAverage] = f.average()
		out[env.GlucoseSlope] = f.slope()
	}
	if f.hasIOB {
		out[env.InsulinOnBoard] = f.iob
	}
	if f.hasCOB {
		out[env.CarbsOnBoard] = f.cob
	}
	return out
}

// #endregion quantities

// #region derived

// window returns the readings no older than d before the latest one.
func (f *Feed) window(d time.Duration) []Reading {
	n := len(f.readings)
	if n == 0 {
		return nil
	}
	cutoff := f.readings[n-1].At.Add(-d)
	start := n - 1
	for start > 0 && !f.readings[start-1].At.Before(cutoff) {
		start--
	}
	return f.readings[start:]
}

// average is the mean over the averaging window.
func (f *Feed) average() float64 {
	w := f.window(f.config.AverageWindow)
	var sum float64
	for _, r := range w {
		sum += r.Value
	}
	return sum / float64(len(w))
}

// slope is the least-squares gradient over the slope window in mmol/L per
// minute. It is 0 with fewer than two distinct sample times.
func (f *Feed) slope() float64 {
	w := f.window(f.config.SlopeWindow)
	if len(w) < 2 {
		return 0
	}
	origin := w[0].At
	var sx, sy float64
	for _, r := range w {
		sx += r.At.Sub(origin).Minutes()
		sy += r.Value
	}
	n := float64(len(w))
	mx, my := sx/n, sy/n

	var sxy, sxx float64
	for _, r := range w {
		dx := r.At.Sub(origin).Minutes() - mx
		sxy += dx * (r.Value - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0
	}
	return sxy / sxx
}

// #endregion derived
