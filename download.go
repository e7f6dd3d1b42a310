package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rtm0/odmaps/internal/catalog"
	"github.com/rtm0/odmaps/internal/download"
	"github.com/rtm0/odmaps/internal/marine"
)

func newDownloadCmd(a *app) *cobra.Command {
	var (
		requestPath string
		lon, lat    []float64
		depth       []float64
		times       []string
		vars        []string
		assumeYes   bool
	)
	cmd := &cobra.Command{
		Use:   "download [dataset] [output]",
		Short: "Download a bounded subset of a dataset as NetCDF",
		Long: "Download a bounded subset of a dataset as NetCDF.\n\n" +
			"Datasets: " + fmt.Sprint(catalog.Names()) + "\n\n" +
			"Bounds come from --request and are overridden by flags.",
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req download.Request
			if requestPath != "" {
				var err error
				if req, err = download.LoadRequest(requestPath); err != nil {
					return err
				}
			}
			if len(args) > 0 {
				req.ShortName = args[0]
			}
			if len(args) > 1 {
				req.Destination = args[1]
			}
			if req.ShortName == "" {
				return errors.New("dataset short name is required")
			}

			flags := cmd.Flags()
			for _, f := range []struct {
				name string
				v    []float64
				dst  *download.Range
			}{
				{"lon", lon, &req.Bounds.Longitude},
				{"lat", lat, &req.Bounds.Latitude},
				{"depth", depth, &req.Bounds.Depth},
			} {
				if !flags.Changed(f.name) {
					if requestPath == "" && f.name != "depth" {
						return fmt.Errorf("--%s is required without --request", f.name)
					}
					continue
				}
				r, err := rangeFlag(f.name, f.v)
				if err != nil {
					return err
				}
				*f.dst = r
			}
			if flags.Changed("time") {
				tr, err := download.ParseTimeRange(times)
				if err != nil {
					return err
				}
				req.Bounds.Time = tr
			}
			if flags.Changed("var") {
				req.Variables = vars
			}

			client, err := marine.NewClient(a.logger, a.cfg.SubsetURL, marine.Options{
				Username: a.cfg.Username,
				Password: a.cfg.Password,
				Timeout:  a.cfg.Timeout,
			})
			if err != nil {
				return err
			}

			d := download.New(a.logger, client, confirmer(cmd, assumeYes))
			res, err := d.Download(cmd.Context(), req)
			if err != nil {
				return err
			}
			switch res.Status {
			case download.StatusCompleted:
				fmt.Fprintln(cmd.OutOrStdout(), res.Path)
			case download.StatusFailed:
				return fmt.Errorf("download of %s failed: %w", req.ShortName, res.Err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&requestPath, "request", "", "YAML request file")
	f.Float64SliceVar(&lon, "lon", nil, "longitude bounds min,max in degrees east")
	f.Float64SliceVar(&lat, "lat", nil, "latitude bounds min,max in degrees north")
	f.Float64SliceVar(&depth, "depth", nil, "depth bounds min,max in metres")
	f.StringSliceVar(&times, "time", nil, "time bounds start,end, e.g. 2020-01-01,2021-12-31")
	f.StringSliceVar(&vars, "var", nil, "variables to download (default all)")
	f.BoolVarP(&assumeYes, "yes", "y", false, "overwrite existing files and accept large downloads")
	return cmd
}

// confirmer answers questions on the terminal when there is one and
// declines otherwise.
func confirmer(cmd *cobra.Command, assumeYes bool) download.Confirmer {
	switch {
	case assumeYes:
		return download.AssumeYes{}
	case term.IsTerminal(int(os.Stdin.Fd())):
		return download.NewConsoleConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
	default:
		return download.Decline{}
	}
}

func rangeFlag(name string, v []float64) (download.Range, error) {
	if len(v) != 2 {
		return download.Range{}, fmt.Errorf("--%s takes two values min,max, got %d", name, len(v))
	}
	return download.Range{Min: v[0], Max: v[1]}, nil
}
