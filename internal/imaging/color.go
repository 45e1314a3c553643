package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"github.com/lucasb-eyer/go-colorful"
)

// sampleSide is the edge of the grid an image is reduced to before its
// colours are averaged.
const sampleSide = 16

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorSummary is a single representative colour of an image.
type ColorSummary struct {
	Hex string   `json:"hex"` // "#rrggbb"
	HSL HSLColor `json:"hsl"`

	// Coverage is the share of sampled pixels that were not fully
	// transparent, 0-100.
	Coverage float64 `json:"coverage"`
}

// AverageColor returns the mean colour of the visible pixels of img.
//
// The image is first reduced to a 16x16 grid with a box filter, then the
// non-transparent samples are averaged in linear RGB so that mixing bright
// and dark regions does not skew toward the dark end. A fully transparent
// image reports black with zero coverage.
func AverageColor(img image.Image) ColorSummary {
	b := img.Bounds()
	if b.Empty() {
		return ColorSummary{Hex: "#000000"}
	}

	small := transform.Resize(img, sampleSide, sampleSide, transform.Box)

	var r, g, bl float64
	var visible, total int
	sb := small.Bounds()
	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		for x := sb.Min.X; x < sb.Max.X; x++ {
			total++
			c, ok := colorful.MakeColor(small.At(x, y))
			if !ok {
				continue
			}
			lr, lg, lb := c.LinearRgb()
			r += lr
			g += lg
			bl += lb
			visible++
		}
	}
	if visible == 0 {
		return ColorSummary{Hex: "#000000"}
	}

	n := float64(visible)
	avg := colorful.LinearRgb(r/n, g/n, bl/n).Clamped()
	h, s, l := avg.Hsl()
	if math.IsNaN(h) {
		h = 0
	}

	return ColorSummary{
		Hex: avg.Hex(),
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
		Coverage: math.Round(float64(visible)/float64(total)*10000) / 100,
	}
}
