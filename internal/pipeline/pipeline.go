package pipeline

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/charmbracelet/log"

	"github.com/siftgo/sift/internal/render"
	"github.com/siftgo/sift/internal/sift"
	"github.com/siftgo/sift/internal/sink"
)

// Runner processes a batch of input images against one sink
// configuration.
type Runner struct {
	sinks  *sink.Set
	params sift.Params
	log    *log.Logger
}

// New creates a Runner. The sink set's configuration must be fully
// parsed; it is treated as read-only from here on.
func New(sinks *sink.Set, params sift.Params, logger *log.Logger) *Runner {
	return &Runner{sinks: sinks, params: params, log: logger}
}

// Run processes every input image in order and returns the number of
// images that failed. A failure never stops the batch.
func (r *Runner) Run(paths []string) int {
	failed := 0
	for _, path := range paths {
		r.log.Info("processing image", "input", path)
		if err := r.ProcessImage(path); err != nil {
			r.log.Error("image failed", "input", path, "err", err)
			failed++
		}
	}
	return failed
}

// ProcessImage runs the full extraction for one input image.
//
// All sinks are closed on every exit path. The metadata record is written
// whether or not extraction succeeded, matching the coordinator contract
// that a run's metadata always names its input.
func (r *Runner) ProcessImage(path string) (err error) {
	defer func() {
		if cerr := r.sinks.CloseAll(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	basename, err := sink.Basename(path)
	if err != nil {
		return err
	}
	r.log.Debug("resolved basename", "basename", basename)

	for _, role := range []sink.Role{sink.RoleDescriptors, sink.RoleFrames, sink.RoleMeta} {
		m := r.sinks.Get(role)
		if err := m.Open(basename); err != nil {
			return err
		}
		if m.Active {
			r.log.Debug("writing "+role.String(), "file", m.Name)
		}
	}

	pix, width, height, err := loadGray(path)
	if err != nil {
		return err
	}
	r.log.Debug("image loaded", "width", width, "height", height)

	detector, err := sift.New(width, height, r.params)
	if err != nil {
		return err
	}

	var plotted []render.Frame
	procErr := r.runOctaves(detector, basename, pix, &plotted)

	if merr := r.writeMeta(path); merr != nil && procErr == nil {
		procErr = merr
	}
	if procErr == nil {
		procErr = r.writePlot(basename, pix, width, height, plotted)
	}
	return procErr
}

// runOctaves drives the detector through successive octaves until it
// reports exhaustion, exporting scale-space levels and expanding
// keypoints at each step.
func (r *Runner) runOctaves(d *sift.Detector, basename string, pix []float64, plotted *[]render.Frame) error {
	first := true
	for {
		var more bool
		var err error
		if first {
			first = false
			more, err = d.FirstOctave(pix)
		} else {
			more, err = d.NextOctave()
		}
		if err != nil {
			return fmt.Errorf("detector failed: %w", err)
		}
		if !more {
			return nil
		}
		r.log.Debug("next octave", "octave", d.OctaveIndex(),
			"width", d.OctaveWidth(), "height", d.OctaveHeight())

		if err := r.exportScaleSpace(d, basename); err != nil {
			return fmt.Errorf("could not write scale-space level: %w", err)
		}

		keys := d.Detect()
		r.log.Debug("keypoints detected", "octave", d.OctaveIndex(), "count", len(keys))

		for _, k := range keys {
			if err := r.expandKeypoint(d, k, plotted); err != nil {
				return err
			}
		}
	}
}

// expandKeypoint emits one geometry line and one descriptor record per
// dominant orientation of the keypoint. Zero orientations is valid and
// produces no output.
func (r *Runner) expandKeypoint(d *sift.Detector, k sift.Keypoint, plotted *[]render.Frame) error {
	frames := r.sinks.Get(sink.RoleFrames)
	descriptors := r.sinks.Get(sink.RoleDescriptors)
	plot := r.sinks.Get(sink.RolePlot)

	for _, angle := range d.Orientations(k) {
		desc := d.Descriptor(k, angle)

		if frames.Active {
			if err := writeFrame(frames, k, angle); err != nil {
				return err
			}
		}
		if descriptors.Active {
			if err := writeDescriptor(descriptors, desc); err != nil {
				return err
			}
		}
		if plot.Active {
			*plotted = append(*plotted, render.Frame{X: k.X, Y: k.Y, Sigma: k.Sigma, Angle: angle})
		}
	}
	return nil
}

func writeFrame(m *sink.Meta, k sift.Keypoint, angle float64) error {
	f, err := m.Writer()
	if err != nil {
		return err
	}
	if m.Protocol == sink.ProtocolBinary {
		rec := [4]float32{float32(k.X), float32(k.Y), float32(k.Sigma), float32(angle)}
		err = binary.Write(f, binary.LittleEndian, rec[:])
	} else {
		_, err = fmt.Fprintf(f, "%g %g %g %g\n", k.X, k.Y, k.Sigma, angle)
	}
	if err != nil {
		return fmt.Errorf("could not write frame to '%s': %w", m.Name, err)
	}
	return nil
}

func writeDescriptor(m *sink.Meta, desc []float64) error {
	f, err := m.Writer()
	if err != nil {
		return err
	}
	if m.Protocol == sink.ProtocolBinary {
		rec := make([]float32, len(desc))
		for i, v := range desc {
			rec[i] = float32(v)
		}
		if err := binary.Write(f, binary.LittleEndian, rec); err != nil {
			return fmt.Errorf("could not write descriptor to '%s': %w", m.Name, err)
		}
		return nil
	}

	var b strings.Builder
	for _, v := range desc {
		fmt.Fprintf(&b, "%g ", v)
	}
	b.WriteByte('\n')
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("could not write descriptor to '%s': %w", m.Name, err)
	}
	return nil
}

// writeMeta emits the run-metadata block naming the input and whichever
// per-run sinks were active.
func (r *Runner) writeMeta(input string) error {
	met := r.sinks.Get(sink.RoleMeta)
	if !met.Active {
		return nil
	}
	f, err := met.Writer()
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<sift\n")
	fmt.Fprintf(&b, "  input       = '%s'\n", input)
	if dsc := r.sinks.Get(sink.RoleDescriptors); dsc.Active {
		fmt.Fprintf(&b, "  descriptors = '%s'\n", dsc.Name)
	}
	if frm := r.sinks.Get(sink.RoleFrames); frm.Active {
		fmt.Fprintf(&b, "  frames      = '%s'\n", frm.Name)
	}
	fmt.Fprintf(&b, ">\n")

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("could not write meta to '%s': %w", met.Name, err)
	}
	return nil
}

// writePlot renders the annotated keypoint overlay, when that sink is
// active, as a PNG next to the other outputs.
func (r *Runner) writePlot(basename string, pix []float64, width, height int, frames []render.Frame) error {
	plot := r.sinks.Get(sink.RolePlot)
	if !plot.Active {
		return nil
	}
	if err := plot.Open(basename); err != nil {
		return err
	}
	r.log.Debug("writing plot", "file", plot.Name, "frames", len(frames))

	f, err := plot.Writer()
	if err != nil {
		return err
	}
	img := render.Annotate(pix, width, height, frames)
	if err := imgio.PNGEncoder()(f, img); err != nil {
		return fmt.Errorf("could not write plot to '%s': %w", plot.Name, err)
	}
	return plot.Close()
}
