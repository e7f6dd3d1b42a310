package download

import (
	"fmt"
	"math"
	"time"
)

// Range is a closed [Min, Max] interval on one axis.
type Range struct {
	Min float64
	Max float64
}

// TimeRange is an optional [Start, End] interval.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether no time bounds were given.
func (t TimeRange) IsZero() bool {
	return t.Start.IsZero() && t.End.IsZero()
}

// Days returns the number of whole days between Start and End, or 1 when no
// time bounds were given.
func (t TimeRange) Days() int {
	if t.IsZero() {
		return 1
	}
	return int(t.End.Sub(t.Start) / (24 * time.Hour))
}

// BoundsSpec is the spatial and temporal extent of a download.
type BoundsSpec struct {
	Longitude Range
	Latitude  Range
	Time      TimeRange
	Depth     Range
}

// BoundsError reports an axis outside its valid range or with min > max.
type BoundsError struct {
	Axis   string
	Min    float64
	Max    float64
	Reason string
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s bounds [%g, %g] %s", e.Axis, e.Min, e.Max, e.Reason)
}

// Validate checks the bounds. Longitude problems are reported before latitude
// problems.
func (b BoundsSpec) Validate() error {
	if b.Longitude.Min < -180 || b.Longitude.Max > 180 {
		return &BoundsError{Axis: "longitude", Min: b.Longitude.Min, Max: b.Longitude.Max, Reason: "must be within -180 to 180"}
	}
	if b.Latitude.Min < -90 || b.Latitude.Max > 90 {
		return &BoundsError{Axis: "latitude", Min: b.Latitude.Min, Max: b.Latitude.Max, Reason: "must be within -90 to 90"}
	}
	for _, ax := range []struct {
		name string
		r    Range
	}{
		{"longitude", b.Longitude},
		{"latitude", b.Latitude},
		{"depth", b.Depth},
	} {
		if math.IsNaN(ax.r.Min) || math.IsNaN(ax.r.Max) {
			return &BoundsError{Axis: ax.name, Min: ax.r.Min, Max: ax.r.Max, Reason: "must be numbers"}
		}
		if ax.r.Min > ax.r.Max {
			return &BoundsError{Axis: ax.name, Min: ax.r.Min, Max: ax.r.Max, Reason: "have min greater than max"}
		}
	}
	if !b.Time.IsZero() && b.Time.End.Before(b.Time.Start) {
		return fmt.Errorf("time bounds %s to %s end before they start",
			b.Time.Start.Format(time.DateOnly), b.Time.End.Format(time.DateOnly))
	}
	return nil
}

const (
	mbPerCell = 0.0001
	// LargeDownloadMB is the estimate above which a download needs confirmation.
	LargeDownloadMB = 500
)

// EstimateSizeMB is a rough size in MB of a download of nVars variables.
// It is a heuristic and not byte-accurate.
func EstimateSizeMB(b BoundsSpec, nVars int) float64 {
	lon := math.Abs(b.Longitude.Max - b.Longitude.Min)
	lat := math.Abs(b.Latitude.Max - b.Latitude.Min)
	return lon * lat * float64(b.Time.Days()) * float64(nVars) * mbPerCell
}
