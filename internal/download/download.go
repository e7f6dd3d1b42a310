// Package download validates and issues bounded subset downloads of the
// datasets in the catalog.
package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rtm0/odmaps/internal/catalog"
	"github.com/rtm0/odmaps/internal/marine"
)

// Subsetter performs the remote subset request.
type Subsetter interface {
	Subset(ctx context.Context, req marine.SubsetRequest) (*marine.Response, error)
}

// Status is the outcome of a download that passed validation.
type Status int

const (
	StatusCompleted Status = iota + 1
	// StatusCancelled means an answer to a question stopped the download
	// before the remote service was contacted.
	StatusCancelled
	// StatusFailed means the remote service call failed. Result.Err has the
	// cause.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result reports what a download did.
type Result struct {
	Status Status
	// Path is the file that was, or would have been, written.
	Path       string
	EstimateMB float64
	Response   *marine.Response
	Err        error
}

// Downloader checks requests against the catalog and the user's answers
// before handing them to a Subsetter.
type Downloader struct {
	logger    *slog.Logger
	subsetter Subsetter
	confirmer Confirmer
}

// New creates a downloader that sends validated requests to subsetter and
// asks confirmer before destructive or large downloads.
func New(logger *slog.Logger, subsetter Subsetter, confirmer Confirmer) *Downloader {
	return &Downloader{logger: logger, subsetter: subsetter, confirmer: confirmer}
}

// Download resolves req.ShortName, validates the bounds, asks before
// replacing an existing file or fetching a large subset, and then issues one
// subset request.
//
// The returned error is non-nil only for requests that cannot be downloaded
// at all (unknown dataset, invalid bounds, filesystem or prompt failures).
// Cancellations and remote failures are reported through Result.Status.
func (d *Downloader) Download(ctx context.Context, req Request) (Result, error) {
	desc, err := catalog.Resolve(req.ShortName)
	if err != nil {
		return Result{}, err
	}
	if err := req.Bounds.Validate(); err != nil {
		return Result{}, err
	}

	dest := req.Destination
	if dest == "" {
		dest = desc.FileName
	}
	res := Result{Path: dest}

	_, err = os.Stat(dest)
	switch {
	case err == nil:
		d.logger.Warn("File already exists", "path", dest)
		action, err := d.confirmer.ResolveExisting(dest)
		if err != nil {
			return Result{}, err
		}
		switch action {
		case ActionOverwrite:
			d.logger.Info("Deleting old file", "path", dest)
			if err := os.Remove(dest); err != nil {
				return Result{}, err
			}
		case ActionSaveNew:
			if dest, err = nextFreeName(dest); err != nil {
				return Result{}, err
			}
			d.logger.Info("Adding a new file", "path", dest)
			res.Path = dest
		case ActionCancel:
			d.logger.Info("Download cancelled")
			res.Status = StatusCancelled
			return res, nil
		default:
			d.logger.Warn("Response unknown, attempt cancelled")
			res.Status = StatusCancelled
			return res, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return Result{}, err
	}

	nVars := len(req.Variables)
	if nVars == 0 {
		d.logger.Warn("No variables selected for download, requesting all variables in dataset", "dataset", desc.ShortName)
		nVars = len(desc.Variables)
	}

	res.EstimateMB = EstimateSizeMB(req.Bounds, nVars)
	if res.EstimateMB > LargeDownloadMB {
		d.logger.Warn("Large download, this might take a long time", "estimateMB", fmt.Sprintf("%.2f", res.EstimateMB))
		ok, err := d.confirmer.ConfirmLarge(res.EstimateMB)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			d.logger.Info("Download cancelled")
			res.Status = StatusCancelled
			return res, nil
		}
	}

	b := req.Bounds
	resp, err := d.subsetter.Subset(ctx, marine.SubsetRequest{
		DatasetID:       desc.CatalogID,
		Variables:       req.Variables,
		MinLongitude:    b.Longitude.Min,
		MaxLongitude:    b.Longitude.Max,
		MinLatitude:     b.Latitude.Min,
		MaxLatitude:     b.Latitude.Max,
		MinDepth:        b.Depth.Min,
		MaxDepth:        b.Depth.Max,
		Start:           b.Time.Start,
		End:             b.Time.End,
		OutputDirectory: filepath.Dir(dest),
		OutputFilename:  filepath.Base(dest),
	})
	if err != nil {
		d.logger.Error("An error occurred during download", "dataset", desc.CatalogID, "err", err)
		res.Status = StatusFailed
		res.Err = err
		return res, nil
	}

	d.logger.Info("Download complete", "path", dest, "size", marine.ByteCount(resp.Bytes))
	res.Status = StatusCompleted
	res.Response = resp
	return res, nil
}

// nextFreeName returns path with the first free "_(N)" suffix before the
// extension.
func nextFreeName(path string) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_(%d)%s", stem, n, ext)
		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
}
