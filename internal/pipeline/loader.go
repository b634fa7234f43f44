package pipeline

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/siftgo/sift/internal/pgm"
)

// loadGray reads an input image as a row-major float64 intensity grid in
// the range [0, 255].
//
// PGM inputs are decoded directly. Anything else goes through the
// standard decoders and a grayscale conversion.
func loadGray(path string) ([]float64, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("could not open '%s' for reading: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".pgm") {
		h, data, err := pgm.Decode(f)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("'%s': %w", path, err)
		}
		pix := make([]float64, len(data))
		for i, v := range data {
			pix[i] = float64(v)
		}
		return pix, h.Width, h.Height, nil
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image '%s': %w", path, err)
	}

	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	pix := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// Grayscale output has equal channels; the red one is enough.
			pix[y*width+x] = float64(gray.NRGBAAt(x+bounds.Min.X, y+bounds.Min.Y).R)
		}
	}
	return pix, width, height, nil
}
