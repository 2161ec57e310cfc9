package frames

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// ConvertOption configures image-to-grid conversion.
type ConvertOption func(*converter)

type converter struct {
	blurRadius float64
	hueGate    bool
	hueMin     float64
	hueMax     float64
}

// WithBlurRadius applies a Gaussian pre-blur before sampling. The
// original footage is noisy; blurring keeps speckle out of the
// threshold detectors. Zero disables blurring.
func WithBlurRadius(radius float64) ConvertOption {
	return func(c *converter) {
		if radius > 0 {
			c.blurRadius = radius
		}
	}
}

// WithHueGate keeps only pixels whose hue (degrees) falls inside
// [min, max]; everything else reads as brightness 0. Used for footage
// where drops are tinted a known color.
func WithHueGate(minHue, maxHue float64) ConvertOption {
	return func(c *converter) {
		c.hueGate = true
		c.hueMin = minHue
		c.hueMax = maxHue
	}
}

// FromImage converts an image into a brightness Grid. Conversion is
// grayscale luminance unless a hue gate is configured, in which case
// the HSV value channel of in-gate pixels is used.
func FromImage(img image.Image, opts ...ConvertOption) *Grid {
	var c converter
	for _, opt := range opts {
		opt(&c)
	}

	if c.blurRadius > 0 {
		img = blur.Gaussian(img, c.blurRadius)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pix := make([]float64, width*height)

	if c.hueGate {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				col, ok := colorful.MakeColor(img.At(bounds.Min.X+x, bounds.Min.Y+y))
				if !ok {
					continue
				}
				h, _, v := col.Hsv()
				if hueInRange(h, c.hueMin, c.hueMax) {
					pix[y*width+x] = v
				}
			}
		}
		return NewGrid(width, height, pix)
	}

	gray := imaging.Grayscale(img)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// Grayscale output has R == G == B.
			pix[y*width+x] = float64(gray.NRGBAAt(x, y).R) / 255.0
		}
	}
	return NewGrid(width, height, pix)
}

// hueInRange handles gates that wrap around 0 degrees (e.g. 340..20).
func hueInRange(h, lo, hi float64) bool {
	if lo <= hi {
		return h >= lo && h <= hi
	}
	return h >= lo || h <= hi
}
