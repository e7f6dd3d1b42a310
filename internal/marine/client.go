// Package marine talks to the remote subset service that cuts a bounded
// piece out of a Copernicus Marine dataset and returns it as NetCDF.
package marine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// SubsetRequest describes one bounded extraction.
type SubsetRequest struct {
	DatasetID string
	// Variables to extract. Empty requests every variable of the dataset.
	Variables []string

	MinLongitude, MaxLongitude float64
	MinLatitude, MaxLatitude   float64
	MinDepth, MaxDepth         float64
	// Start and End are omitted when zero.
	Start, End time.Time

	OutputDirectory string
	OutputFilename  string
}

// Response is the handle returned for a completed subset.
type Response struct {
	Path        string
	Bytes       int64
	ContentType string
}

// Client is a subset service client.
type Client struct {
	logger    *slog.Logger
	httpCli   *http.Client
	subsetURL string
	username  string
	password  string
}

// Options tune a Client. The zero value is usable.
type Options struct {
	Username string
	Password string
	// Timeout bounds a whole request including the body transfer.
	Timeout time.Duration
}

// NewClient creates a new subset service client.
func NewClient(logger *slog.Logger, subsetURL string, opts Options) (*Client, error) {
	u, err := url.Parse(subsetURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("subsetting via %q is not supported", subsetURL)
	}

	return &Client{
		logger: logger,
		httpCli: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:    1,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		subsetURL: u.String(),
		username:  opts.Username,
		password:  opts.Password,
	}, nil
}

// Subset requests the subset described by req and saves the body to
// req.OutputDirectory/req.OutputFilename. The file only appears once the
// whole body has been received.
func (c *Client) Subset(ctx context.Context, req SubsetRequest) (*Response, error) {
	if req.DatasetID == "" {
		return nil, fmt.Errorf("subset request has no dataset id")
	}
	if req.OutputFilename == "" {
		return nil, fmt.Errorf("subset request has no output file name")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(req), nil)
	if err != nil {
		return nil, err
	}
	if c.username != "" {
		httpReq.SetBasicAuth(c.username, c.password)
	}
	httpReq.Header.Set("Accept", "application/x-netcdf")

	c.logger.Debug("Requesting subset", "dataset", req.DatasetID, "url", httpReq.URL.Redacted())
	res, err := c.httpCli.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("could not request subset of %s: %w", req.DatasetID, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, &StatusError{Code: res.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	path := filepath.Join(req.OutputDirectory, req.OutputFilename)
	n, err := saveBody(path, res.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Subset saved", "path", path, "size", ByteCount(n))
	return &Response{
		Path:        path,
		Bytes:       n,
		ContentType: res.Header.Get("Content-Type"),
	}, nil
}

func (c *Client) requestURL(req SubsetRequest) string {
	u, _ := url.Parse(c.subsetURL)
	q := u.Query()
	q.Set("dataset_id", req.DatasetID)
	if len(req.Variables) > 0 {
		q.Set("variables", strings.Join(req.Variables, ","))
	}
	q.Set("minimum_longitude", formatFloat(req.MinLongitude))
	q.Set("maximum_longitude", formatFloat(req.MaxLongitude))
	q.Set("minimum_latitude", formatFloat(req.MinLatitude))
	q.Set("maximum_latitude", formatFloat(req.MaxLatitude))
	q.Set("minimum_depth", formatFloat(req.MinDepth))
	q.Set("maximum_depth", formatFloat(req.MaxDepth))
	if !req.Start.IsZero() {
		q.Set("start_datetime", req.Start.UTC().Format(time.RFC3339))
	}
	if !req.End.IsZero() {
		q.Set("end_datetime", req.End.UTC().Format(time.RFC3339))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// saveBody writes r next to path and renames it into place.
func saveBody(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".part-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("could not save subset to %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}

// StatusError is returned when the service answers with anything but 200.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("subset service returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("subset service returned HTTP %d: %s", e.Code, e.Message)
}
