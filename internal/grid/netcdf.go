package grid

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// group is the part of a NetCDF group the loader reads from.
type group interface {
	ListVariables() []string
	GetVarGetter(name string) (api.VarGetter, error)
}

var (
	latNames  = []string{"latitude", "lat"}
	lonNames  = []string{"longitude", "lon"}
	timeNames = []string{"time"}
)

// Open reads a NetCDF file into a Dataset. When no variable names are given
// every variable with time, latitude and longitude dimensions is read.
// Variables with a depth dimension keep only the first depth level.
func Open(filePath string, vars ...string) (*Dataset, error) {
	nc, err := netcdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer nc.Close()
	ds, err := load(nc, vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return ds, nil
}

func load(nc group, vars []string) (*Dataset, error) {
	lat, err := coordValues(nc, latNames)
	if err != nil {
		return nil, err
	}
	lon, err := coordValues(nc, lonNames)
	if err != nil {
		return nil, err
	}
	times, err := timeValues(nc)
	if err != nil {
		return nil, err
	}
	ds := New(times, lat, lon)

	if len(vars) == 0 {
		vars = gridded(nc)
	}
	for _, name := range vars {
		values, err := readVar(nc, name, len(times), len(lat), len(lon))
		if err != nil {
			return nil, err
		}
		if err := ds.AddVar(name, values); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// gridded lists the variables that have at least three dimensions.
func gridded(nc group) []string {
	var names []string
	for _, name := range nc.ListVariables() {
		vg, err := nc.GetVarGetter(name)
		if err != nil {
			continue
		}
		if len(vg.Dimensions()) >= 3 {
			names = append(names, name)
		}
	}
	return names
}

func lookup(nc group, names []string) (api.VarGetter, error) {
	var firstErr error
	for _, name := range names {
		vg, err := nc.GetVarGetter(name)
		if err == nil {
			return vg, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("no %s variable: %w", strings.Join(names, " or "), firstErr)
}

func coordValues(nc group, names []string) ([]float64, error) {
	vg, err := lookup(nc, names)
	if err != nil {
		return nil, err
	}
	v, err := vg.Values()
	if err != nil {
		return nil, err
	}
	return toFloat64s(v)
}

func timeValues(nc group) ([]time.Time, error) {
	vg, err := lookup(nc, timeNames)
	if err != nil {
		return nil, err
	}
	v, err := vg.Values()
	if err != nil {
		return nil, err
	}
	raw, err := toFloat64s(v)
	if err != nil {
		return nil, err
	}
	units, _ := attrString(vg.Attributes(), "units")
	unit, epoch, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	ts := make([]time.Time, len(raw))
	for i, r := range raw {
		ts[i] = epoch.Add(time.Duration(math.Round(r * float64(unit))))
	}
	return ts, nil
}

// readVar reads a variable one time step at a time and applies CF packing
// attributes.
func readVar(nc group, name string, nt, nLat, nLon int) ([]float64, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, nt*nLat*nLon)
	for k := 0; k < nt; k++ {
		v, err := vg.GetSlice(int64(k), int64(k+1))
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", name, k, err)
		}
		step, err := flattenStep(v, nLat, nLon)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", name, k, err)
		}
		out = append(out, step...)
	}
	unpack(out, vg.Attributes())
	return out, nil
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~float32 | ~float64
}

func toFloat64s(v any) ([]float64, error) {
	switch v := v.(type) {
	case []float64:
		return convert(v), nil
	case []float32:
		return convert(v), nil
	case []int64:
		return convert(v), nil
	case []int32:
		return convert(v), nil
	case []int16:
		return convert(v), nil
	case []int8:
		return convert(v), nil
	default:
		return nil, fmt.Errorf("unsupported coordinate type %T", v)
	}
}

func convert[T number](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// flattenStep turns a single-step slice of a (time, lat, lon) or
// (time, depth, lat, lon) variable into a row-major grid.
func flattenStep(v any, nLat, nLon int) ([]float64, error) {
	switch v := v.(type) {
	case [][][]float32:
		return flatten3(v, nLat, nLon)
	case [][][]float64:
		return flatten3(v, nLat, nLon)
	case [][][]int16:
		return flatten3(v, nLat, nLon)
	case [][][]int32:
		return flatten3(v, nLat, nLon)
	case [][][][]float32:
		return flatten4(v, nLat, nLon)
	case [][][][]float64:
		return flatten4(v, nLat, nLon)
	case [][][][]int16:
		return flatten4(v, nLat, nLon)
	case [][][][]int32:
		return flatten4(v, nLat, nLon)
	default:
		return nil, fmt.Errorf("unsupported variable type %T", v)
	}
}

func flatten3[T number](v [][][]T, nLat, nLon int) ([]float64, error) {
	if len(v) != 1 {
		return nil, fmt.Errorf("got %d time steps, want 1", len(v))
	}
	return flatten2(v[0], nLat, nLon)
}

func flatten4[T number](v [][][][]T, nLat, nLon int) ([]float64, error) {
	if len(v) != 1 || len(v[0]) == 0 {
		return nil, fmt.Errorf("got %d time steps, want 1 with at least one depth", len(v))
	}
	return flatten2(v[0][0], nLat, nLon)
}

func flatten2[T number](v [][]T, nLat, nLon int) ([]float64, error) {
	if len(v) != nLat {
		return nil, fmt.Errorf("got %d latitudes, want %d", len(v), nLat)
	}
	out := make([]float64, 0, nLat*nLon)
	for _, row := range v {
		if len(row) != nLon {
			return nil, fmt.Errorf("got %d longitudes, want %d", len(row), nLon)
		}
		for _, x := range row {
			out = append(out, float64(x))
		}
	}
	return out, nil
}

// unpack replaces fill values with NaN and applies scale_factor and
// add_offset in place.
func unpack(values []float64, attrs api.AttributeMap) {
	fills := make([]float64, 0, 2)
	for _, key := range []string{"_FillValue", "missing_value"} {
		if f, ok := attrFloat(attrs, key); ok {
			fills = append(fills, f)
		}
	}
	scale, ok := attrFloat(attrs, "scale_factor")
	if !ok {
		scale = 1
	}
	offset, _ := attrFloat(attrs, "add_offset")

	for i, v := range values {
		for _, f := range fills {
			if v == f {
				v = math.NaN()
				break
			}
		}
		values[i] = v*scale + offset
	}
}

func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case int16:
		return float64(v), true
	case int8:
		return float64(v), true
	default:
		if f, err := toFloat64s(v); err == nil && len(f) == 1 {
			return f[0], true
		}
		return 0, false
	}
}

func attrString(attrs api.AttributeMap, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

var epochLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTimeUnits parses CF time units such as "days since 1950-01-01".
func parseTimeUnits(units string) (time.Duration, time.Time, error) {
	unitStr, epochStr, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unsupported time units %q", units)
	}

	var unit time.Duration
	switch strings.ToLower(strings.TrimSpace(unitStr)) {
	case "seconds", "second", "secs", "sec", "s":
		unit = time.Second
	case "minutes", "minute", "mins", "min":
		unit = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		unit = time.Hour
	case "days", "day", "d":
		unit = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("unsupported time unit %q", unitStr)
	}

	epochStr = strings.TrimSuffix(strings.TrimSpace(epochStr), " UTC")
	for _, layout := range epochLayouts {
		if epoch, err := time.ParseInLocation(layout, epochStr, time.UTC); err == nil {
			return unit, epoch.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("unsupported time epoch %q", epochStr)
}
