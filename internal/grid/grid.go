// Package grid holds gridded time series on a regular latitude/longitude
// mesh and the reductions needed to build monthly climatologies.
//
// All reductions return new values; inputs are never modified.
package grid

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmptySelection is returned when a selection matches no time steps.
	ErrEmptySelection = errors.New("selection matched no time steps")
	// ErrNoVariable is returned for a variable that is not in the dataset.
	ErrNoVariable = errors.New("no such variable")
	// ErrEmptyAxis is returned when a coordinate axis has no values.
	ErrEmptyAxis = errors.New("empty coordinate axis")
)

// Grid is a 2-D field. Values are row-major with one row per latitude.
// NaN marks missing data.
type Grid struct {
	Lat    []float64
	Lon    []float64
	Values []float64
}

// NewGrid returns a grid of zeros.
func NewGrid(lat, lon []float64) *Grid {
	return &Grid{Lat: lat, Lon: lon, Values: make([]float64, len(lat)*len(lon))}
}

// Dims returns the number of latitude rows and longitude columns.
func (g *Grid) Dims() (nLat, nLon int) {
	return len(g.Lat), len(g.Lon)
}

// At returns the value at latitude row i and longitude column j.
func (g *Grid) At(i, j int) float64 {
	return g.Values[i*len(g.Lon)+j]
}

// Set stores v at latitude row i and longitude column j.
func (g *Grid) Set(i, j int, v float64) {
	g.Values[i*len(g.Lon)+j] = v
}

// Range returns the smallest and largest finite values. ok is false when the
// grid has none.
func (g *Grid) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		ok = true
	}
	return lo, hi, ok
}

// Hypot returns sqrt(a² + b²) element-wise.
func Hypot(a, b *Grid) (*Grid, error) {
	if len(a.Lat) != len(b.Lat) || len(a.Lon) != len(b.Lon) {
		return nil, fmt.Errorf("grid shapes differ: %dx%d and %dx%d", len(a.Lat), len(a.Lon), len(b.Lat), len(b.Lon))
	}
	out := NewGrid(a.Lat, a.Lon)
	for k := range out.Values {
		out.Values[k] = math.Hypot(a.Values[k], b.Values[k])
	}
	return out, nil
}

// RollingMean returns the centred moving average over windows of wLat rows
// and wLon columns. The window for cell i spans i-w/2 .. i-w/2+w-1, so even
// windows reach one further back than forward. A cell whose window runs off
// the grid or contains a NaN is NaN.
func (g *Grid) RollingMean(wLat, wLon int) *Grid {
	nLat, nLon := g.Dims()
	out := NewGrid(g.Lat, g.Lon)
	n := float64(wLat * wLon)
	for i := 0; i < nLat; i++ {
		for j := 0; j < nLon; j++ {
			i0, j0 := i-wLat/2, j-wLon/2
			if i0 < 0 || j0 < 0 || i0+wLat > nLat || j0+wLon > nLon {
				out.Set(i, j, math.NaN())
				continue
			}
			var sum float64
			for ii := i0; ii < i0+wLat; ii++ {
				sum += floats.Sum(g.Values[ii*nLon+j0 : ii*nLon+j0+wLon])
			}
			out.Set(i, j, sum/n)
		}
	}
	return out
}

// Series is one variable over time. Values hold len(Times) grids back to
// back.
type Series struct {
	Name   string
	Times  []time.Time
	Lat    []float64
	Lon    []float64
	Values []float64
}

func (s *Series) cells() int {
	return len(s.Lat) * len(s.Lon)
}

// step returns the grid at time index k.
func (s *Series) step(k int) *Grid {
	n := s.cells()
	return &Grid{Lat: s.Lat, Lon: s.Lon, Values: slices.Clone(s.Values[k*n : (k+1)*n])}
}

// SelectMonth returns the time steps that fall in calendar month m of any
// year.
func (s *Series) SelectMonth(m time.Month) (*Series, error) {
	n := s.cells()
	out := &Series{Name: s.Name, Lat: s.Lat, Lon: s.Lon}
	for k, t := range s.Times {
		if t.UTC().Month() != m {
			continue
		}
		out.Times = append(out.Times, t)
		out.Values = append(out.Values, s.Values[k*n:(k+1)*n]...)
	}
	if len(out.Times) == 0 {
		return nil, fmt.Errorf("%s in %s: %w", s.Name, m, ErrEmptySelection)
	}
	return out, nil
}

// MeanStd reduces the series over time. NaN samples are skipped; a cell with
// no valid samples is NaN. The standard deviation is the population one
// (divides by the number of samples).
func (s *Series) MeanStd() (mean, std *Grid, err error) {
	if len(s.Times) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", s.Name, ErrEmptySelection)
	}
	n := s.cells()
	mean, std = NewGrid(s.Lat, s.Lon), NewGrid(s.Lat, s.Lon)
	buf := make([]float64, 0, len(s.Times))
	for c := 0; c < n; c++ {
		buf = buf[:0]
		for k := range s.Times {
			if v := s.Values[k*n+c]; !math.IsNaN(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) == 0 {
			mean.Values[c], std.Values[c] = math.NaN(), math.NaN()
			continue
		}
		m, v := stat.PopMeanVariance(buf, nil)
		mean.Values[c], std.Values[c] = m, math.Sqrt(v)
	}
	return mean, std, nil
}

// Dataset is a set of variables sharing time, latitude and longitude axes.
type Dataset struct {
	Times []time.Time
	Lat   []float64
	Lon   []float64
	vars  map[string]*Series
	order []string
}

// New creates an empty dataset over the given axes.
func New(times []time.Time, lat, lon []float64) *Dataset {
	return &Dataset{Times: times, Lat: lat, Lon: lon, vars: make(map[string]*Series)}
}

// AddVar adds a variable laid out as time, latitude, longitude.
func (d *Dataset) AddVar(name string, values []float64) error {
	if want := len(d.Times) * len(d.Lat) * len(d.Lon); len(values) != want {
		return fmt.Errorf("variable %s has %d values, want %d", name, len(values), want)
	}
	if _, ok := d.vars[name]; !ok {
		d.order = append(d.order, name)
	}
	d.vars[name] = &Series{Name: name, Times: d.Times, Lat: d.Lat, Lon: d.Lon, Values: values}
	return nil
}

// Var returns the named variable.
func (d *Dataset) Var(name string) (*Series, error) {
	s, ok := d.vars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoVariable, name)
	}
	return s, nil
}

// Variables returns variable names in the order they were added.
func (d *Dataset) Variables() []string {
	return slices.Clone(d.order)
}

// Extent is the geographic bounding box of a dataset.
type Extent struct {
	LonMin, LonMax float64
	LatMin, LatMax float64
}

// Extent returns the bounding box of the coordinate axes.
func (d *Dataset) Extent() (Extent, error) {
	if len(d.Lon) == 0 || len(d.Lat) == 0 {
		return Extent{}, ErrEmptyAxis
	}
	return Extent{
		LonMin: floats.Min(d.Lon),
		LonMax: floats.Max(d.Lon),
		LatMin: floats.Min(d.Lat),
		LatMax: floats.Max(d.Lat),
	}, nil
}

// TimeSpan returns the earliest and latest time steps.
func (d *Dataset) TimeSpan() (first, last time.Time, err error) {
	if len(d.Times) == 0 {
		return time.Time{}, time.Time{}, ErrEmptyAxis
	}
	first, last = d.Times[0], d.Times[0]
	for _, t := range d.Times[1:] {
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	return first, last, nil
}
