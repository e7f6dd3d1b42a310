package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/rtm0/odmaps/internal/catalog"
	"github.com/rtm0/odmaps/internal/grid"
	"github.com/rtm0/odmaps/internal/render"
)

func newPlotCmd(a *app) *cobra.Command {
	opts := render.DefaultOptions()
	var (
		variant string
		widthIn float64
	)
	cmd := &cobra.Command{
		Use:   "plot <dataset> <file.nc>",
		Short: "Draw the twelve monthly climatology maps of a downloaded dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := render.ParseVariant(variant)
			if err != nil {
				return err
			}
			opts.Variant = v
			opts.Width = vg.Length(widthIn) * vg.Inch

			desc, err := catalog.Resolve(args[0])
			if err != nil {
				return err
			}
			ds, err := grid.Open(args[1], desc.Variables...)
			if err != nil {
				return fmt.Errorf("could not read %s: %w", args[1], err)
			}
			first, last, err := ds.TimeSpan()
			if err != nil {
				return err
			}
			a.logger.Info("Loaded dataset",
				"path", args[1],
				"variables", ds.Variables(),
				"times", len(ds.Times),
				"lat", len(ds.Lat),
				"lon", len(ds.Lon),
				"from", first.Format("2006-01"),
				"to", last.Format("2006-01"))

			if a.cfg.LandShapefile != "" {
				ext, err := ds.Extent()
				if err != nil {
					return err
				}
				if opts.Land, err = render.LoadLand(a.cfg.LandShapefile, ext); err != nil {
					return fmt.Errorf("could not read land polygons: %w", err)
				}
				a.logger.Debug("Loaded land polygons", "count", len(opts.Land))
			}

			if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
				return err
			}
			files, err := render.New(a.logger).Render(ds, desc, opts)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.OutDir, "out", opts.OutDir, "directory the maps are written to")
	f.StringVar(&variant, "variant", render.Speed.String(), "map variant: speed or eke")
	f.IntVar(&opts.Thin, "thin", opts.Thin, "draw every n-th vector along each axis")
	f.Float64Var(&opts.Scale, "scale", opts.Scale, "vector magnitude drawn as one map width")
	f.IntVar(&opts.DPI, "dpi", opts.DPI, "image resolution")
	f.Float64Var(&widthIn, "width", float64(opts.Width/vg.Inch), "map width in inches")
	f.StringVar(&opts.SaveName, "save-name", "", "file name prefix, default from the dataset")
	return cmd
}
