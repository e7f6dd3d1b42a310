package download

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Request is everything needed for one download.
type Request struct {
	ShortName string
	// Destination is the path of the NetCDF file to create.
	Destination string
	Bounds      BoundsSpec
	// Variables to download. Empty means every variable of the dataset.
	Variables []string
}

// requestFile is the YAML form of a Request.
type requestFile struct {
	Dataset   string    `yaml:"dataset"`
	Output    string    `yaml:"output"`
	Longitude []float64 `yaml:"longitude"`
	Latitude  []float64 `yaml:"latitude"`
	Time      []string  `yaml:"time"`
	Depth     []float64 `yaml:"depth"`
	Variables []string  `yaml:"variables"`
}

// LoadRequest reads a download request from a YAML file such as
//
//	dataset: currents_model
//	output: data/cmems_mod_setio_currents.nc
//	longitude: [100, 140]
//	latitude: [-30, 0]
//	time: ["2020-01-01", "2021-12-31"]
//	variables: [uo, vo]
func LoadRequest(path string) (Request, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Request{}, err
	}
	return ParseRequest(b)
}

// ParseRequest decodes the YAML form of a Request.
func ParseRequest(b []byte) (Request, error) {
	var f requestFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Request{}, fmt.Errorf("invalid request file: %w", err)
	}

	req := Request{
		ShortName:   f.Dataset,
		Destination: f.Output,
		Variables:   f.Variables,
	}
	var err error
	if req.Bounds.Longitude, err = pair("longitude", f.Longitude); err != nil {
		return Request{}, err
	}
	if req.Bounds.Latitude, err = pair("latitude", f.Latitude); err != nil {
		return Request{}, err
	}
	if f.Depth != nil {
		if req.Bounds.Depth, err = pair("depth", f.Depth); err != nil {
			return Request{}, err
		}
	}
	if f.Time != nil {
		if req.Bounds.Time, err = ParseTimeRange(f.Time); err != nil {
			return Request{}, err
		}
	}
	return req, nil
}

func pair(name string, v []float64) (Range, error) {
	if len(v) != 2 {
		return Range{}, fmt.Errorf("%s must have exactly two values, got %d", name, len(v))
	}
	return Range{Min: v[0], Max: v[1]}, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", time.DateTime, time.DateOnly, "2006-01"}

// ParseTimeRange parses a [start, end] pair of dates or timestamps.
func ParseTimeRange(v []string) (TimeRange, error) {
	if len(v) != 2 {
		return TimeRange{}, fmt.Errorf("time must have exactly two values, got %d", len(v))
	}
	start, err := ParseTime(v[0])
	if err != nil {
		return TimeRange{}, err
	}
	end, err := ParseTime(v[1])
	if err != nil {
		return TimeRange{}, err
	}
	return TimeRange{Start: start, End: end}, nil
}

// ParseTime accepts RFC 3339 timestamps and shorter date forms in UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}
