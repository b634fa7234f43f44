package pipeline

import (
	"fmt"
	"image"
	"strings"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/siftgo/sift/internal/pgm"
	"github.com/siftgo/sift/internal/sift"
	"github.com/siftgo/sift/internal/sink"
)

// exportScaleSpace writes every level of the detector's current octave to
// its own file, named <basename>_<octave:02d>_<level:03d> expanded
// through the sink's pattern. No-op when the sink is inactive.
//
// Levels are converted to 8-bit by fixed-width truncation, not clamping,
// so out-of-range intensities wrap. Files already on disk from a previous
// run are overwritten.
func (r *Runner) exportScaleSpace(d *sift.Detector, basename string) error {
	gss := r.sinks.Get(sink.RoleScaleSpace)
	if !gss.Active {
		return nil
	}
	defer gss.Close()

	w, h := d.OctaveWidth(), d.OctaveHeight()
	buf := make([]uint8, w*h)

	for s := 0; s < d.Levels(); s++ {
		level, err := d.Octave(s)
		if err != nil {
			return err
		}
		for i, v := range level {
			buf[i] = uint8(int64(v))
		}

		if err := gss.Open(fmt.Sprintf("%s_%02d_%03d", basename, d.OctaveIndex(), s)); err != nil {
			return err
		}
		werr := writeLevel(gss, w, h, buf)
		cerr := gss.Close()
		if werr != nil {
			return werr
		}
		if cerr != nil {
			return cerr
		}
		r.log.Debug("saved scale-space level", "file", gss.Name)
	}
	return nil
}

// writeLevel emits one 8-bit grayscale level, as PNG when the resolved
// name asks for it and raw PGM otherwise.
func writeLevel(m *sink.Meta, w, h int, buf []uint8) error {
	f, err := m.Writer()
	if err != nil {
		return err
	}

	if strings.HasSuffix(m.Name, ".png") {
		img := &image.Gray{Pix: buf, Stride: w, Rect: image.Rect(0, 0, w, h)}
		if err := imgio.PNGEncoder()(f, img); err != nil {
			return fmt.Errorf("could not encode '%s': %w", m.Name, err)
		}
		return nil
	}

	header := &pgm.Header{Width: w, Height: h, MaxValue: 255, Raw: true}
	if err := pgm.Write(f, header, buf); err != nil {
		return fmt.Errorf("could not write '%s': %w", m.Name, err)
	}
	return nil
}
