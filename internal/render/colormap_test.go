package render

import (
	"errors"
	"image/color"
	"math"
	"testing"
)

// near reports whether c matches want to within a few levels per channel,
// allowing for the round trip through CIELAB.
func near(c color.Color, want color.NRGBA) bool {
	got := color.NRGBAModel.Convert(c).(color.NRGBA)
	diff := func(a, b uint8) bool { return max(a, b)-min(a, b) <= 3 }
	return diff(got.R, want.R) && diff(got.G, want.G) && diff(got.B, want.B) && diff(got.A, want.A)
}

func TestGradient(t *testing.T) {
	for _, name := range []string{"haline", "matter"} {
		g, err := newGradient(name)
		if err != nil {
			t.Fatal(err)
		}
		g.SetMin(2)
		g.SetMax(4)
		g.SetAlpha(0.8)

		controls := colorMaps[name]
		first, last := controls[0], controls[len(controls)-1]
		first.A, last.A = 204, 204
		for _, tt := range []struct {
			v    float64
			want color.NRGBA
		}{
			{2, first},
			{4, last},
		} {
			got, err := g.At(tt.v)
			if err != nil {
				t.Fatalf("%s: At(%v) error = %v", name, tt.v, err)
			}
			if !near(got, tt.want) {
				t.Errorf("%s: At(%v) = %v, want about %v", name, tt.v, color.NRGBAModel.Convert(got), tt.want)
			}
		}

		for _, tt := range []struct {
			v    float64
			want error
		}{
			{1.9, errUnderflow},
			{4.1, errOverflow},
			{math.NaN(), errNaN},
		} {
			if _, err := g.At(tt.v); !errors.Is(err, tt.want) {
				t.Errorf("%s: At(%v) error = %v, want %v", name, tt.v, err, tt.want)
			}
		}
	}
}

func TestGradient_LastPaletteColourIsMax(t *testing.T) {
	g, err := newGradient("matter")
	if err != nil {
		t.Fatal(err)
	}
	// (max-min)*254/254 rounds above max for this pair.
	g.SetMin(0.1829549082948654)
	g.SetMax(0.6879003154055832)

	cols := g.Palette(255).Colors()
	top := cols[len(cols)-1]
	if top == color.Transparent {
		t.Fatal("top palette colour is transparent")
	}
	want := colorMaps["matter"][len(colorMaps["matter"])-1]
	if !near(top, want) {
		t.Errorf("top palette colour = %v, want about %v", color.NRGBAModel.Convert(top), want)
	}
}

func TestGradient_Palette(t *testing.T) {
	for name := range colorMaps {
		g, err := newGradient(name)
		if err != nil {
			t.Fatal(err)
		}
		cols := g.Palette(16).Colors()
		if len(cols) != 16 {
			t.Fatalf("%s: palette has %d colours, want 16", name, len(cols))
		}
		for i, c := range cols {
			if c == color.Transparent {
				t.Errorf("%s: colour %d is transparent", name, i)
			}
		}
	}
}

func TestNewGradient_Unknown(t *testing.T) {
	if _, err := newGradient("jet"); err == nil {
		t.Error("newGradient(jet) error = nil")
	}
}
