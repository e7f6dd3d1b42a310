package download

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rtm0/odmaps/internal/catalog"
	"github.com/rtm0/odmaps/internal/marine"
)

type fakeSubsetter struct {
	calls int
	last  marine.SubsetRequest
	err   error
	// onCall runs before the fake answers.
	onCall func(marine.SubsetRequest)
}

func (f *fakeSubsetter) Subset(_ context.Context, req marine.SubsetRequest) (*marine.Response, error) {
	f.calls++
	f.last = req
	if f.onCall != nil {
		f.onCall(req)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &marine.Response{Path: filepath.Join(req.OutputDirectory, req.OutputFilename), Bytes: 42}, nil
}

type scriptedConfirmer struct {
	existing      ExistingAction
	large         bool
	existingAsked int
	largeAsked    int
}

func (s *scriptedConfirmer) ResolveExisting(string) (ExistingAction, error) {
	s.existingAsked++
	return s.existing, nil
}

func (s *scriptedConfirmer) ConfirmLarge(float64) (bool, error) {
	s.largeAsked++
	return s.large, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func smallBounds() BoundsSpec {
	return BoundsSpec{
		Longitude: Range{Min: 110, Max: 130},
		Latitude:  Range{Min: -20, Max: -5},
	}
}

func TestDownload_UnknownDataset(t *testing.T) {
	sub := &fakeSubsetter{}
	d := New(discardLogger(), sub, &scriptedConfirmer{})

	_, err := d.Download(context.Background(), Request{ShortName: "daily_winds", Destination: filepath.Join(t.TempDir(), "x.nc"), Bounds: smallBounds()})
	var unknown *catalog.UnknownDatasetError
	if !errors.As(err, &unknown) {
		t.Fatalf("Download() error = %v, want *catalog.UnknownDatasetError", err)
	}
	if sub.calls != 0 {
		t.Errorf("subset calls = %d, want 0", sub.calls)
	}
}

func TestDownload_InvalidBoundsNeverReachTheService(t *testing.T) {
	tests := []struct {
		name string
		lon  Range
		lat  Range
		axis string
	}{
		{name: "lon min below -180", lon: Range{-181, 10}, lat: Range{0, 10}, axis: "longitude"},
		{name: "lon max above 180", lon: Range{0, 180.5}, lat: Range{0, 10}, axis: "longitude"},
		{name: "lat min below -90", lon: Range{0, 10}, lat: Range{-91, 10}, axis: "latitude"},
		{name: "lat max above 90", lon: Range{0, 10}, lat: Range{0, 95}, axis: "latitude"},
		{name: "both invalid reports longitude", lon: Range{-200, 10}, lat: Range{-100, 10}, axis: "longitude"},
		{name: "lon min above max", lon: Range{20, 10}, lat: Range{0, 10}, axis: "longitude"},
		{name: "lat min above max", lon: Range{0, 10}, lat: Range{10, 0}, axis: "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubsetter{}
			conf := &scriptedConfirmer{existing: ActionOverwrite, large: true}
			d := New(discardLogger(), sub, conf)

			_, err := d.Download(context.Background(), Request{
				ShortName:   "currents_model",
				Destination: filepath.Join(t.TempDir(), "x.nc"),
				Bounds:      BoundsSpec{Longitude: tt.lon, Latitude: tt.lat},
				Variables:   []string{"uo", "vo"},
			})
			var be *BoundsError
			if !errors.As(err, &be) {
				t.Fatalf("Download() error = %v, want *BoundsError", err)
			}
			if be.Axis != tt.axis {
				t.Errorf("Axis = %q, want %q", be.Axis, tt.axis)
			}
			if sub.calls != 0 {
				t.Errorf("subset calls = %d, want 0", sub.calls)
			}
		})
	}
}

func TestDownload_InvalidBoundsKeepExistingFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "x.nc")
	if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	conf := &scriptedConfirmer{existing: ActionOverwrite}
	d := New(discardLogger(), &fakeSubsetter{}, conf)

	_, err := d.Download(context.Background(), Request{
		ShortName:   "currents_model",
		Destination: dest,
		Bounds:      BoundsSpec{Longitude: Range{-190, 0}, Latitude: Range{0, 1}},
	})
	if err == nil {
		t.Fatalf("Download() error = nil, want non-nil")
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("existing file was removed: %v", err)
	}
	if conf.existingAsked != 0 {
		t.Errorf("existing file prompt asked %d times, want 0", conf.existingAsked)
	}
}

func TestDownload_Success(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "currents.nc")
	sub := &fakeSubsetter{}
	d := New(discardLogger(), sub, &scriptedConfirmer{})

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 1, 11, 0, 0, 0, 0, time.UTC)
	b := smallBounds()
	b.Time = TimeRange{Start: start, End: end}
	b.Depth = Range{Min: 0.5, Max: 1.5}

	res, err := d.Download(context.Background(), Request{
		ShortName:   "Ekman_currents_glob",
		Destination: dest,
		Bounds:      b,
		Variables:   []string{"ue", "ve"},
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("Status = %v, want %v", res.Status, StatusCompleted)
	}
	if res.Response == nil || res.Response.Bytes != 42 {
		t.Errorf("Response = %+v", res.Response)
	}

	got := sub.last
	if got.DatasetID != "cmems_obs-mob_glo_phy-cur_my_0.25deg_P1D-m" {
		t.Errorf("DatasetID = %q", got.DatasetID)
	}
	if got.OutputDirectory != filepath.Dir(dest) || got.OutputFilename != "currents.nc" {
		t.Errorf("output = %q / %q", got.OutputDirectory, got.OutputFilename)
	}
	if got.MinLongitude != 110 || got.MaxLongitude != 130 || got.MinLatitude != -20 || got.MaxLatitude != -5 {
		t.Errorf("bounds = %+v", got)
	}
	if got.MinDepth != 0.5 || got.MaxDepth != 1.5 {
		t.Errorf("depth = %v..%v", got.MinDepth, got.MaxDepth)
	}
	if !got.Start.Equal(start) || !got.End.Equal(end) {
		t.Errorf("time = %v..%v", got.Start, got.End)
	}
}

func TestDownload_NoVariablesRequestsAll(t *testing.T) {
	sub := &fakeSubsetter{}
	d := New(discardLogger(), sub, &scriptedConfirmer{})

	res, err := d.Download(context.Background(), Request{
		ShortName:   "currents_model",
		Destination: filepath.Join(t.TempDir(), "x.nc"),
		Bounds:      smallBounds(),
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("Status = %v, want completed", res.Status)
	}
	if len(sub.last.Variables) != 0 {
		t.Errorf("Variables = %v, want none", sub.last.Variables)
	}
	// 20 * 15 * 1 day * 2 descriptor variables * 0.0001
	if want := 0.06; !almostEqual(res.EstimateMB, want) {
		t.Errorf("EstimateMB = %v, want %v", res.EstimateMB, want)
	}
}

func TestDownload_TransportErrorIsReported(t *testing.T) {
	boom := errors.New("connection reset")
	sub := &fakeSubsetter{err: boom}
	d := New(discardLogger(), sub, &scriptedConfirmer{})

	res, err := d.Download(context.Background(), Request{
		ShortName:   "geo_currents_glob",
		Destination: filepath.Join(t.TempDir(), "x.nc"),
		Bounds:      smallBounds(),
		Variables:   []string{"ugos"},
	})
	if err != nil {
		t.Fatalf("Download() error = %v, want nil", err)
	}
	if res.Status != StatusFailed {
		t.Errorf("Status = %v, want %v", res.Status, StatusFailed)
	}
	if !errors.Is(res.Err, boom) {
		t.Errorf("Err = %v, want %v", res.Err, boom)
	}
}

func TestDownload_ExistingFile(t *testing.T) {
	tests := []struct {
		name       string
		action     ExistingAction
		wantStatus Status
		wantCalls  int
		wantOld    bool
		wantPath   string
	}{
		{name: "ow", action: ParseExistingAction("ow"), wantStatus: StatusCompleted, wantCalls: 1, wantOld: false, wantPath: "x.nc"},
		{name: "new", action: ParseExistingAction("new"), wantStatus: StatusCompleted, wantCalls: 1, wantOld: true, wantPath: "x_(1).nc"},
		{name: "cancel", action: ParseExistingAction("cancel"), wantStatus: StatusCancelled, wantCalls: 0, wantOld: true, wantPath: "x.nc"},
		{name: "unknown", action: ParseExistingAction("maybe"), wantStatus: StatusCancelled, wantCalls: 0, wantOld: true, wantPath: "x.nc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			dest := filepath.Join(dir, "x.nc")
			if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
				t.Fatal(err)
			}

			existedAtCall := true
			sub := &fakeSubsetter{onCall: func(marine.SubsetRequest) {
				_, err := os.Stat(dest)
				existedAtCall = err == nil
			}}
			conf := &scriptedConfirmer{existing: tt.action}
			d := New(discardLogger(), sub, conf)

			res, err := d.Download(context.Background(), Request{
				ShortName:   "currents_model",
				Destination: dest,
				Bounds:      smallBounds(),
				Variables:   []string{"uo", "vo"},
			})
			if err != nil {
				t.Fatalf("Download() error = %v", err)
			}
			if conf.existingAsked != 1 {
				t.Errorf("existing file prompt asked %d times, want 1", conf.existingAsked)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", res.Status, tt.wantStatus)
			}
			if sub.calls != tt.wantCalls {
				t.Errorf("subset calls = %d, want %d", sub.calls, tt.wantCalls)
			}
			if res.Path != filepath.Join(dir, tt.wantPath) {
				t.Errorf("Path = %q, want %q", res.Path, filepath.Join(dir, tt.wantPath))
			}
			if tt.action == ActionOverwrite && existedAtCall {
				t.Errorf("old file still existed when the service was called")
			}
			_, statErr := os.Stat(dest)
			if gotOld := statErr == nil; gotOld != tt.wantOld {
				t.Errorf("old file present = %v, want %v", gotOld, tt.wantOld)
			}
		})
	}
}

func TestDownload_SaveNewSkipsTakenNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"x.nc", "x_(1).nc", "x_(2).nc"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	sub := &fakeSubsetter{}
	d := New(discardLogger(), sub, &scriptedConfirmer{existing: ActionSaveNew})

	res, err := d.Download(context.Background(), Request{
		ShortName:   "currents_model",
		Destination: filepath.Join(dir, "x.nc"),
		Bounds:      smallBounds(),
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if sub.last.OutputFilename != "x_(3).nc" {
		t.Errorf("OutputFilename = %q, want x_(3).nc", sub.last.OutputFilename)
	}
	if res.Path != filepath.Join(dir, "x_(3).nc") {
		t.Errorf("Path = %q", res.Path)
	}
}

func TestDownload_LargeDownloadNeedsConfirmation(t *testing.T) {
	big := BoundsSpec{
		Longitude: Range{Min: -180, Max: 180},
		Latitude:  Range{Min: -90, Max: 90},
		Time: TimeRange{
			Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, accept := range []bool{false, true} {
		t.Run(map[bool]string{false: "declined", true: "accepted"}[accept], func(t *testing.T) {
			sub := &fakeSubsetter{}
			conf := &scriptedConfirmer{large: accept}
			d := New(discardLogger(), sub, conf)

			res, err := d.Download(context.Background(), Request{
				ShortName:   "currents_model",
				Destination: filepath.Join(t.TempDir(), "x.nc"),
				Bounds:      big,
				Variables:   []string{"uo", "vo"},
			})
			if err != nil {
				t.Fatalf("Download() error = %v", err)
			}
			if conf.largeAsked != 1 {
				t.Errorf("large download prompt asked %d times, want 1", conf.largeAsked)
			}
			wantCalls, wantStatus := 0, StatusCancelled
			if accept {
				wantCalls, wantStatus = 1, StatusCompleted
			}
			if sub.calls != wantCalls {
				t.Errorf("subset calls = %d, want %d", sub.calls, wantCalls)
			}
			if res.Status != wantStatus {
				t.Errorf("Status = %v, want %v", res.Status, wantStatus)
			}
		})
	}
}

func TestDownload_ConsoleConfirmer(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "x.nc")
	if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	sub := &fakeSubsetter{}
	d := New(discardLogger(), sub, NewConsoleConfirmer(strings.NewReader("  OW \n"), &out))

	res, err := d.Download(context.Background(), Request{
		ShortName:   "currents_model",
		Destination: dest,
		Bounds:      smallBounds(),
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if res.Status != StatusCompleted {
		t.Errorf("Status = %v, want completed", res.Status)
	}
	if !strings.Contains(out.String(), "(ow/new/cancel)") {
		t.Errorf("prompt = %q", out.String())
	}
}
