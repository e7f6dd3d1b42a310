package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rtm0/odmaps/internal/catalog"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "error")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.Execute()
	return out.String(), err
}

func TestDatasets(t *testing.T) {
	out, err := run(t, "datasets")
	if err != nil {
		t.Fatalf("datasets error = %v", err)
	}
	for _, name := range catalog.Names() {
		if !strings.Contains(out, name) {
			t.Errorf("datasets output is missing %s:\n%s", name, out)
		}
	}
}

func TestDownload(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		io.WriteString(w, "CDF\x01")
	}))
	defer srv.Close()
	t.Setenv("ODMAPS_SUBSET_URL", srv.URL+"/subset")

	dest := filepath.Join(t.TempDir(), "currents.nc")
	out, err := run(t, "download", "currents_model", dest,
		"--lon", "100,140", "--lat", "-30,0", "--time", "2020-01-01,2020-12-31", "--var", "uo,vo", "--yes")
	if err != nil {
		t.Fatalf("download error = %v", err)
	}
	if strings.TrimSpace(out) != dest {
		t.Errorf("download printed %q, want %q", out, dest)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("downloaded file: %v", err)
	}
	if !strings.Contains(query, "variables=uo%2Cvo") {
		t.Errorf("query %q does not name the variables", query)
	}
}

func TestDownload_RequestFileAndOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("minimum_longitude"); got != "110" {
			t.Errorf("minimum_longitude = %s, want 110", got)
		}
		io.WriteString(w, "CDF\x01")
	}))
	defer srv.Close()
	t.Setenv("ODMAPS_SUBSET_URL", srv.URL)

	dir := t.TempDir()
	dest := filepath.Join(dir, "wind.nc")
	reqFile := filepath.Join(dir, "request.yaml")
	yaml := "dataset: monthly_wind_stress\noutput: " + dest + "\nlongitude: [100, 140]\nlatitude: [-30, 0]\n"
	if err := os.WriteFile(reqFile, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "download", "--request", reqFile, "--lon", "110,140"); err != nil {
		t.Fatalf("download error = %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("downloaded file: %v", err)
	}
}

func TestDownload_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such product", http.StatusNotFound)
	}))
	defer srv.Close()
	t.Setenv("ODMAPS_SUBSET_URL", srv.URL)
	dest := filepath.Join(t.TempDir(), "out.nc")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown dataset", []string{"download", "sst", dest, "--lon", "0,1", "--lat", "0,1"}, "sst"},
		{"missing lat", []string{"download", "currents_model", dest, "--lon", "0,1"}, "--lat"},
		{"bad range", []string{"download", "currents_model", dest, "--lon", "0", "--lat", "0,1"}, "--lon"},
		{"out of bounds", []string{"download", "currents_model", dest, "--lon", "-200,0", "--lat", "0,1"}, "longitude"},
		{"remote failure", []string{"download", "currents_model", dest, "--lon", "0,1", "--lat", "0,1"}, "404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("error = nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %s", err, tt.want)
			}
		})
	}
}

func TestPlot_RejectsUnknownVariant(t *testing.T) {
	if _, err := run(t, "plot", "currents_model", "missing.nc", "--variant", "sst"); err == nil {
		t.Error("plot error = nil")
	}
}
