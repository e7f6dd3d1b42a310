package render

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rtm0/odmaps/internal/grid"
)

// gridXYZ adapts a grid.Grid to plotter.GridXYZ with latitude increasing
// upwards.
type gridXYZ struct {
	g     *grid.Grid
	flipY bool
}

func newGridXYZ(g *grid.Grid) gridXYZ {
	n := len(g.Lat)
	return gridXYZ{g: g, flipY: n > 1 && g.Lat[0] > g.Lat[n-1]}
}

func (g gridXYZ) row(r int) int {
	if g.flipY {
		return len(g.g.Lat) - 1 - r
	}
	return r
}

func (g gridXYZ) Dims() (c, r int)   { return len(g.g.Lon), len(g.g.Lat) }
func (g gridXYZ) Z(c, r int) float64 { return g.g.At(g.row(r), c) }
func (g gridXYZ) X(c int) float64    { return g.g.Lon[c] }
func (g gridXYZ) Y(r int) float64    { return g.g.Lat[g.row(r)] }

// Min and Max ignore NaN so plotters do not pick up missing cells as
// extremes.
func (g gridXYZ) Min() float64 {
	lo, _, ok := g.g.Range()
	if !ok {
		return 0
	}
	return lo
}

func (g gridXYZ) Max() float64 {
	_, hi, ok := g.g.Range()
	if !ok {
		return 0
	}
	return hi
}

// contourLevels returns n levels evenly spaced strictly inside the finite
// range of g, or nil when g has no spread.
func contourLevels(g *grid.Grid, n int) []float64 {
	lo, hi, ok := g.Range()
	if !ok || !(hi > lo) || n < 1 {
		return nil
	}
	step := (hi - lo) / float64(n+1)
	levels := make([]float64, n)
	for i := range levels {
		levels[i] = lo + step*float64(i+1)
	}
	return levels
}

// minSegmentHits is the number of row crossings a contour segment needs
// before it gets a label.
const minSegmentHits = 3

// contourLabels labels every contour segment of each level once, at the
// middle of the row edges it crosses. Crossings in the same or neighbouring
// rows at most 1.5 columns apart belong to the same segment.
func contourLabels(g *grid.Grid, levels []float64, format string) plotter.XYLabels {
	type hit struct {
		row int
		col float64
	}
	var out plotter.XYLabels
	nLat, nLon := g.Dims()
	for _, level := range levels {
		var hits []hit
		for i := 0; i < nLat; i++ {
			for j := 0; j+1 < nLon; j++ {
				a, b := g.At(i, j), g.At(i, j+1)
				if math.IsNaN(a) || math.IsNaN(b) || a == b {
					continue
				}
				if (a-level)*(b-level) > 0 {
					continue
				}
				hits = append(hits, hit{row: i, col: float64(j) + (level-a)/(b-a)})
			}
		}

		parent := make([]int, len(hits))
		for k := range parent {
			parent[k] = k
		}
		var root func(int) int
		root = func(k int) int {
			if parent[k] != k {
				parent[k] = root(parent[k])
			}
			return parent[k]
		}
		for k := range hits {
			// hits are ordered by row, so later rows only.
			for l := k + 1; l < len(hits) && hits[l].row <= hits[k].row+1; l++ {
				if math.Abs(hits[l].col-hits[k].col) <= 1.5 {
					parent[root(l)] = root(k)
				}
			}
		}

		segments := make(map[int][]hit)
		var order []int
		for k, h := range hits {
			r := root(k)
			if _, ok := segments[r]; !ok {
				order = append(order, r)
			}
			segments[r] = append(segments[r], h)
		}
		for _, r := range order {
			seg := segments[r]
			if len(seg) < minSegmentHits {
				continue
			}
			mid := seg[len(seg)/2]
			j := int(mid.col)
			if j >= nLon-1 {
				j = nLon - 2
			}
			f := mid.col - float64(j)
			out.XYs = append(out.XYs, plotter.XY{X: g.Lon[j] + f*(g.Lon[j+1]-g.Lon[j]), Y: g.Lat[mid.row]})
			out.Labels = append(out.Labels, fmt.Sprintf(format, level))
		}
	}
	return out
}

// quiver draws arrows whose length is |(U, V)|/Scale of the data area
// width.
type quiver struct {
	X, Y, U, V []float64
	// Scale is the vector magnitude drawn as one data area width.
	Scale float64
	// Width is the shaft width as a fraction of the data area width.
	Width float64
	Color color.Color
}

var _ plot.Plotter = (*quiver)(nil)

func (q *quiver) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	span := c.Max.X - c.Min.X
	sty := draw.LineStyle{Color: q.Color, Width: vg.Length(q.Width) * span}
	headLen, headHalf := 4.5*sty.Width, 1.5*sty.Width

	for k := range q.X {
		u, v := q.U[k], q.V[k]
		if math.IsNaN(u) || math.IsNaN(v) {
			continue
		}
		base := vg.Point{X: trX(q.X[k]), Y: trY(q.Y[k])}
		if !c.Contains(base) {
			continue
		}
		dx := vg.Length(u/q.Scale) * span
		dy := vg.Length(v/q.Scale) * span
		l := vg.Length(math.Hypot(float64(dx), float64(dy)))
		if l == 0 {
			continue
		}
		tip := vg.Point{X: base.X + dx, Y: base.Y + dy}
		ux, uy := dx/l, dy/l

		h := min(headLen, l)
		back := vg.Point{X: tip.X - h*ux, Y: tip.Y - h*uy}
		c.StrokeLine2(sty, base.X, base.Y, back.X, back.Y)
		c.FillPolygon(q.Color, []vg.Point{
			tip,
			{X: back.X - headHalf*uy, Y: back.Y + headHalf*ux},
			{X: back.X + headHalf*uy, Y: back.Y - headHalf*ux},
		})
	}
}

// thinned returns the mean vectors at every step-th grid point starting at
// step/2 along both axes.
func thinned(u, v *grid.Grid, lat, lon []int) *quiver {
	q := &quiver{}
	for _, i := range lat {
		for _, j := range lon {
			q.X = append(q.X, u.Lon[j])
			q.Y = append(q.Y, u.Lat[i])
			q.U = append(q.U, u.At(i, j))
			q.V = append(q.V, v.At(i, j))
		}
	}
	return q
}
