// Package climatology derives per-calendar-month statistics of a vector
// field from a gridded time series.
package climatology

import (
	"fmt"
	"time"

	"github.com/rtm0/odmaps/internal/grid"
)

// SmoothingWindow is the size of the centred moving average applied to the
// variability field along both spatial axes.
const SmoothingWindow = 4

// Monthly holds the statistics of one calendar month across all years.
type Monthly struct {
	Month   time.Month
	Samples int

	MeanU, MeanV *grid.Grid
	StdU, StdV   *grid.Grid

	// Speed is the magnitude of the mean vector.
	Speed *grid.Grid
	// Variability is the magnitude of the per-component standard deviation.
	Variability *grid.Grid
	// Smoothed is Variability after the centred moving average.
	Smoothed *grid.Grid
}

// Compute selects every time step of month m, whatever its year, and
// reduces the u and v components over time.
func Compute(ds *grid.Dataset, u, v string, m time.Month) (*Monthly, error) {
	us, err := ds.Var(u)
	if err != nil {
		return nil, err
	}
	vs, err := ds.Var(v)
	if err != nil {
		return nil, err
	}
	uSel, err := us.SelectMonth(m)
	if err != nil {
		return nil, err
	}
	vSel, err := vs.SelectMonth(m)
	if err != nil {
		return nil, err
	}

	out := &Monthly{Month: m, Samples: len(uSel.Times)}
	if out.MeanU, out.StdU, err = uSel.MeanStd(); err != nil {
		return nil, err
	}
	if out.MeanV, out.StdV, err = vSel.MeanStd(); err != nil {
		return nil, err
	}
	if out.Speed, err = grid.Hypot(out.MeanU, out.MeanV); err != nil {
		return nil, fmt.Errorf("speed: %w", err)
	}
	if out.Variability, err = grid.Hypot(out.StdU, out.StdV); err != nil {
		return nil, fmt.Errorf("variability: %w", err)
	}
	out.Smoothed = out.Variability.RollingMean(SmoothingWindow, SmoothingWindow)
	return out, nil
}

// ThinIndices returns the indices kept when subsampling an axis of n points
// every step points starting at step/2.
func ThinIndices(n, step int) []int {
	if step < 1 {
		step = 1
	}
	var idx []int
	for i := step / 2; i < n; i += step {
		idx = append(idx, i)
	}
	return idx
}
