package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

var (
	errUnderflow = errors.New("render: value below color map range")
	errOverflow  = errors.New("render: value above color map range")
	errNaN       = errors.New("render: NaN value")
)

// Control colours sampled from the cmocean sequential maps, low to high.
var colorMaps = map[string][]color.NRGBA{
	"speed": {
		{255, 253, 205, 255}, {222, 212, 141, 255}, {170, 177, 64, 255},
		{107, 145, 17, 255}, {54, 111, 12, 255}, {17, 74, 15, 255}, {23, 35, 4, 255},
	},
	"haline": {
		{41, 24, 107, 255}, {23, 66, 155, 255}, {15, 106, 139, 255},
		{42, 138, 136, 255}, {78, 167, 117, 255}, {151, 190, 96, 255}, {253, 238, 153, 255},
	},
	"dense": {
		{230, 241, 241, 255}, {155, 199, 219, 255}, {116, 150, 222, 255},
		{120, 97, 210, 255}, {118, 49, 161, 255}, {84, 21, 87, 255}, {54, 14, 36, 255},
	},
	"matter": {
		{254, 237, 176, 255}, {247, 183, 122, 255}, {232, 128, 86, 255},
		{200, 79, 84, 255}, {153, 46, 90, 255}, {98, 25, 81, 255}, {47, 15, 61, 255},
	},
}

// gradient is a palette.ColorMap whose luminance changes linearly between
// the control colours of a named map.
type gradient struct {
	// lum spans [0, 1] with luminance rising.
	lum palette.ColorMap
	// falling is set when the map runs from light to dark; lum then holds
	// the controls in reverse.
	falling  bool
	min, max float64
}

var _ palette.ColorMap = (*gradient)(nil)

func newGradient(name string) (*gradient, error) {
	controls, ok := colorMaps[name]
	if !ok {
		return nil, fmt.Errorf("unknown color map %q", name)
	}
	falling := brightness(controls[0]) > brightness(controls[len(controls)-1])
	cols := make([]color.Color, len(controls))
	for i, c := range controls {
		if falling {
			i = len(controls) - 1 - i
		}
		cols[i] = c
	}
	lum, err := moreland.NewLuminance(cols)
	if err != nil {
		return nil, fmt.Errorf("color map %s: %w", name, err)
	}
	lum.SetMin(0)
	lum.SetMax(1)
	return &gradient{lum: lum, falling: falling, max: 1}, nil
}

// brightness is the Rec. 709 weighted sum of the gamma encoded channels.
func brightness(c color.NRGBA) float64 {
	return 0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)
}

func (g *gradient) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, errNaN
	case v < g.min:
		return nil, errUnderflow
	case v > g.max:
		return nil, errOverflow
	}
	var frac float64
	if g.max > g.min {
		frac = math.Min((v-g.min)/(g.max-g.min), 1)
	}
	if g.falling {
		frac = 1 - frac
	}
	return g.lum.At(frac)
}

func (g *gradient) Min() float64       { return g.min }
func (g *gradient) Max() float64       { return g.max }
func (g *gradient) SetMin(v float64)   { g.min = v }
func (g *gradient) SetMax(v float64)   { g.max = v }
func (g *gradient) Alpha() float64     { return g.lum.Alpha() }
func (g *gradient) SetAlpha(a float64) { g.lum.SetAlpha(a) }

// Palette returns n colours evenly spaced over [Min, Max]. The last colour
// is taken at Max itself so rounding cannot push it out of range.
func (g *gradient) Palette(n int) palette.Palette {
	cols := make(colors, n)
	for i := range cols {
		v := g.min
		switch {
		case i == n-1:
			v = g.max
		case n > 1:
			v += (g.max - g.min) * float64(i) / float64(n-1)
		}
		c, err := g.At(v)
		if err != nil {
			c = color.Transparent
		}
		cols[i] = c
	}
	return cols
}

// colors is a fixed palette.
type colors []color.Color

func (c colors) Colors() []color.Color { return c }

// uniform returns a palette of n copies of c.
func uniform(c color.Color, n int) colors {
	cols := make(colors, n)
	for i := range cols {
		cols[i] = c
	}
	return cols
}
