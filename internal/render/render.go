// Package render draws monthly climatology maps of vector fields.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/rtm0/odmaps/internal/catalog"
	"github.com/rtm0/odmaps/internal/climatology"
	"github.com/rtm0/odmaps/internal/grid"
)

// Variant selects what the colour mesh shows.
type Variant int

const (
	// Speed shows the magnitude of the monthly mean with arrows on top.
	Speed Variant = iota
	// EKE shows the variability field on a fixed [0, 0.6] range.
	EKE
)

func (v Variant) String() string {
	switch v {
	case Speed:
		return "speed"
	case EKE:
		return "eke"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant parses "speed" or "eke".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "speed":
		return Speed, nil
	case "eke":
		return EKE, nil
	default:
		return 0, fmt.Errorf("unknown map variant %q (allowed: speed, eke)", s)
	}
}

const (
	contourCount = 6
	ekeMin       = 0
	ekeMax       = 0.6
	ekeSaveName  = "EKEModelled_month"
	ekeTitle     = "Mean Eddy Kinetic Energy in month %d"
	meshAlpha    = 0.8
	arrowWidth   = 0.0014
	captionLines = 3
)

// Marker is the fixed point of interest drawn on every map.
var Marker = plotter.XY{X: 123.3744, Y: -13.74942}

var (
	contourColor = color.NRGBA{R: 47, G: 79, B: 79, A: 255}
	arrowColor   = color.NRGBA{A: 178}
	landFill     = color.NRGBA{R: 242, G: 242, B: 230, A: 255}
	landEdge     = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	markerFill   = color.NRGBA{R: 255, G: 165, A: 255}
)

// Options controls a rendering run.
type Options struct {
	Variant Variant
	// Thin keeps every Thin-th arrow along each axis.
	Thin int
	// Scale is the vector magnitude drawn as one map width.
	Scale float64
	DPI   int
	// Width of the map; the height follows the aspect of the dataset.
	Width vg.Length
	// OutDir receives the images.
	OutDir string
	// SaveName replaces the descriptor's file name prefix when set.
	SaveName string
	// Land polygons are drawn over the colour mesh.
	Land []geom.Polygon
}

// DefaultOptions returns the options used for publication maps.
func DefaultOptions() Options {
	return Options{
		Variant: Speed,
		Thin:    6,
		Scale:   7,
		DPI:     300,
		Width:   16 * vg.Inch,
		OutDir:  ".",
	}
}

// Renderer writes one map per calendar month.
type Renderer struct {
	logger *slog.Logger
}

// New creates a renderer that logs each saved map to logger.
func New(logger *slog.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// Render draws the twelve monthly maps of the dataset's first two variables
// in desc and returns the written paths. It stops at the first error.
func (r *Renderer) Render(ds *grid.Dataset, desc catalog.Descriptor, opts Options) ([]string, error) {
	if len(desc.Variables) < 2 {
		return nil, fmt.Errorf("%s: need two vector components, have %v", desc.ShortName, desc.Variables)
	}
	if opts.Thin < 1 || opts.Scale <= 0 || opts.DPI < 1 || opts.Width <= 0 {
		return nil, errors.New("thin, scale, dpi and width must be positive")
	}
	ext, err := ds.Extent()
	if err != nil {
		return nil, err
	}
	if len(ds.Lat) < 2 || len(ds.Lon) < 2 || !(ext.LonMax > ext.LonMin) || !(ext.LatMax > ext.LatMin) {
		return nil, fmt.Errorf("dataset grid %dx%d is too small to map", len(ds.Lat), len(ds.Lon))
	}
	first, last, err := ds.TimeSpan()
	if err != nil {
		return nil, err
	}

	m := &monthMap{
		desc:    desc,
		opts:    opts,
		ext:     ext,
		caption: caption(desc, first, last, opts.OutDir),
	}
	var files []string
	for month := time.January; month <= time.December; month++ {
		stats, err := climatology.Compute(ds, desc.Variables[0], desc.Variables[1], month)
		if err != nil {
			return files, err
		}
		path, err := m.save(stats)
		if err != nil {
			return files, err
		}
		r.logger.Info("Saved map", "month", int(month), "samples", stats.Samples, "path", path)
		files = append(files, path)
	}
	return files, nil
}

func caption(desc catalog.Descriptor, first, last time.Time, outDir string) []string {
	return []string{
		fmt.Sprintf("Product: %s, Dataset ID: %s, Data source: Copernicus Marine Service", desc.ProductName, desc.CatalogID),
		fmt.Sprintf("Variables shown: %s, Date range: %s to %s, Contours shown: %s",
			strings.Join(desc.Variables, ", "), first.Format("2006-01"), last.Format("2006-01"), desc.ContourType),
		fmt.Sprintf("Saved to: %s", outDir),
	}
}

// monthMap holds what is shared by the twelve maps of one run.
type monthMap struct {
	desc    catalog.Descriptor
	opts    Options
	ext     grid.Extent
	caption []string
}

func (m *monthMap) fileName(month time.Month) string {
	prefix := m.opts.SaveName
	if prefix == "" {
		prefix = m.desc.SaveName
		if m.opts.Variant == EKE {
			prefix = ekeSaveName
		}
	}
	return filepath.Join(m.opts.OutDir, fmt.Sprintf("%s%d.png", prefix, int(month)))
}

func (m *monthMap) title(month time.Month) string {
	if m.opts.Variant == EKE {
		return fmt.Sprintf(ekeTitle, int(month))
	}
	return fmt.Sprintf(m.desc.PlotTitle, int(month))
}

// save draws one month and writes it as PNG. The canvas does not outlive
// the call.
func (m *monthMap) save(stats *climatology.Monthly) (string, error) {
	cmap, err := newGradient(m.desc.ColorMap)
	if err != nil {
		return "", err
	}
	cmap.SetAlpha(meshAlpha)

	mesh := stats.Speed
	if m.opts.Variant == EKE {
		mesh = stats.Variability
		cmap.SetMin(ekeMin)
		cmap.SetMax(ekeMax)
	} else {
		lo, hi, ok := mesh.Range()
		switch {
		case !ok:
			lo, hi = 0, 1
		case hi <= lo:
			hi = lo + 1
		}
		cmap.SetMin(lo)
		cmap.SetMax(hi)
	}

	p, err := m.mapPlot(stats, mesh, cmap)
	if err != nil {
		return "", err
	}
	cb := plot.New()
	cb.Add(&plotter.ColorBar{ColorMap: cmap, Vertical: true, Colors: 255})
	cb.HideX()
	cb.Y.Padding = 0

	w := m.opts.Width
	h := w * vg.Length((m.ext.LatMax-m.ext.LatMin)/(m.ext.LonMax-m.ext.LonMin))
	lineH := 1.5 * vg.Points(10)
	capH := vg.Length(captionLines+1) * lineH
	barW := w / 14

	img := vgimg.NewWith(vgimg.UseWH(w+barW, h+capH), vgimg.UseDPI(m.opts.DPI))
	dc := draw.New(img)
	p.Draw(draw.Crop(dc, 0, -barW, capH, 0))
	cb.Draw(draw.Crop(dc, w, 0, capH+h/10, -h/10))

	sty := p.Title.TextStyle
	sty.Font.Size = vg.Points(10)
	sty.XAlign = draw.XLeft
	for i, line := range m.caption {
		dc.FillText(sty, vg.Point{X: w / 10, Y: capH - vg.Length(i+1)*lineH}, line)
	}

	path := m.fileName(stats.Month)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("could not write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

func (m *monthMap) mapPlot(stats *climatology.Monthly, mesh *grid.Grid, cmap *gradient) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = m.title(stats.Month)
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	pal := cmap.Palette(255).Colors()
	hm := plotter.NewHeatMap(newGridXYZ(mesh), cmap.Palette(255))
	hm.Min, hm.Max = cmap.Min(), cmap.Max()
	hm.NaN = color.Transparent
	hm.Underflow = pal[0]
	hm.Overflow = pal[len(pal)-1]
	p.Add(hm)

	for _, poly := range m.opts.Land {
		lp, err := landPolygon(poly)
		if err != nil {
			return nil, err
		}
		if lp != nil {
			p.Add(lp)
		}
	}

	if levels := contourLevels(stats.Smoothed, contourCount); levels != nil {
		c := plotter.NewContour(newGridXYZ(stats.Smoothed), levels, uniform(contourColor, len(levels)))
		c.LineStyles = []draw.LineStyle{{Color: contourColor, Width: vg.Points(1)}}
		p.Add(c)

		if xyl := contourLabels(stats.Smoothed, levels, m.desc.LabelFormat); len(xyl.XYs) > 0 {
			labels, err := plotter.NewLabels(xyl)
			if err != nil {
				return nil, err
			}
			p.Add(labels)
		}
	}

	if m.opts.Variant == Speed {
		q := thinned(stats.MeanU, stats.MeanV,
			climatology.ThinIndices(len(mesh.Lat), m.opts.Thin),
			climatology.ThinIndices(len(mesh.Lon), m.opts.Thin))
		q.Scale, q.Width, q.Color = m.opts.Scale, arrowWidth, arrowColor
		p.Add(q)
	}

	marker, err := plotter.NewScatter(plotter.XYs{Marker})
	if err != nil {
		return nil, err
	}
	marker.GlyphStyle = draw.GlyphStyle{Color: markerFill, Radius: vg.Points(4), Shape: draw.CircleGlyph{}}
	ring, err := plotter.NewScatter(plotter.XYs{Marker})
	if err != nil {
		return nil, err
	}
	ring.GlyphStyle = draw.GlyphStyle{Color: color.Black, Radius: vg.Points(4), Shape: draw.RingGlyph{}}
	p.Add(marker, ring)

	// The extent is the whole dataset, not just the cells with data this
	// month.
	p.X.Min, p.X.Max = m.ext.LonMin, m.ext.LonMax
	p.Y.Min, p.Y.Max = m.ext.LatMin, m.ext.LatMax
	return p, nil
}

func landPolygon(poly geom.Polygon) (*plotter.Polygon, error) {
	var rings []plotter.XYer
	for _, path := range poly {
		if len(path) < 3 {
			continue
		}
		xys := make(plotter.XYs, len(path))
		for i, pt := range path {
			xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		rings = append(rings, xys)
	}
	if len(rings) == 0 {
		return nil, nil
	}
	lp, err := plotter.NewPolygon(rings...)
	if err != nil {
		return nil, err
	}
	lp.Color = landFill
	lp.LineStyle = draw.LineStyle{Color: landEdge, Width: vg.Points(1)}
	return lp, nil
}
