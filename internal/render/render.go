// Package render draws keypoint annotations over a grayscale image.
//
// The overlay is a diagnostic aid: each oriented keypoint becomes a
// circle of radius proportional to its scale plus a tick marking the
// orientation, colored by mapping the orientation angle onto the hue
// wheel.
package render

import (
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Frame is one oriented keypoint instance to draw.
type Frame struct {
	X, Y  float64
	Sigma float64
	Angle float64
}

// Annotate renders the grayscale pixels (width*height samples, 0..255)
// as the background and draws every frame on top.
func Annotate(pix []float64, width, height int, frames []Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(clampF(pix[y*width+x], 0, 255))
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}

	for _, f := range frames {
		drawFrame(img, f)
	}
	return img
}

func drawFrame(img *image.RGBA, f Frame) {
	c := frameColor(f.Angle)
	r := f.Sigma
	if r < 1 {
		r = 1
	}

	// Parametric circle; step chosen so adjacent samples are under a
	// pixel apart.
	steps := int(math.Ceil(2 * math.Pi * r * 2))
	if steps < 16 {
		steps = 16
	}
	for i := 0; i < steps; i++ {
		t := 2 * math.Pi * float64(i) / float64(steps)
		setPoint(img, f.X+r*math.Cos(t), f.Y+r*math.Sin(t), c)
	}

	// Orientation tick from center to the circle.
	n := int(math.Ceil(r * 2))
	for i := 0; i <= n; i++ {
		d := r * float64(i) / float64(n)
		setPoint(img, f.X+d*math.Cos(f.Angle), f.Y+d*math.Sin(f.Angle), c)
	}
}

// frameColor maps an orientation angle onto the hue wheel.
func frameColor(angle float64) color.RGBA {
	deg := math.Mod(angle*180/math.Pi, 360)
	if deg < 0 {
		deg += 360
	}
	r, g, b := colorful.Hsv(deg, 0.9, 1).RGB255()
	return color.RGBA{r, g, b, 255}
}

func setPoint(img *image.RGBA, x, y float64, c color.RGBA) {
	xi, yi := int(math.Round(x)), int(math.Round(y))
	if image.Pt(xi, yi).In(img.Rect) {
		img.SetRGBA(xi, yi, c)
	}
}

func clampF(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
