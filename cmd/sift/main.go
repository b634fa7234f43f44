// Command sift extracts SIFT features from grayscale images.
//
// For every input image it writes keypoint frames and, optionally,
// descriptor vectors, a run-metadata record, the Gaussian scale space,
// and an annotated keypoint plot, each to its own configurable sink.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/siftgo/sift/internal/pipeline"
	"github.com/siftgo/sift/internal/sift"
	"github.com/siftgo/sift/internal/sink"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	GitCommit = "unknown"
)

const longDesc = `Extract SIFT features from images.

Each input image produces a frames file listing one oriented keypoint
per line (x y sigma angle). Further sinks are opt-in:

  sift image.pgm
  sift --descriptors --meta image.pgm
  sift --gss=%.png --plot -vv *.pgm

Sink arguments are naming patterns where '%' expands to the input's
basename; an optional ascii:// or binary:// prefix selects the
protocol. Passing the flag with no value uses the default pattern.

Thresholds and octave parameters may also be set through SIFT_*
environment variables (SIFT_PEAK_THRESH, SIFT_EDGE_THRESH, ...).`

type sinkFlag struct {
	role           sink.Role
	name           string
	defaultPattern string
	help           string
	value          string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		octaves     int
		levels      int
		firstOctave int
		peakThresh  float64
		edgeThresh  float64
		verbosity   int
		framesArg   string
	)

	optional := []*sinkFlag{
		{role: sink.RoleDescriptors, name: "descriptors", defaultPattern: "%.descr",
			help: "Descriptors sink pattern"},
		{role: sink.RoleMeta, name: "meta", defaultPattern: "%.meta",
			help: "Meta sink pattern"},
		{role: sink.RoleScaleSpace, name: "gss", defaultPattern: "%.pgm",
			help: "Gaussian scale space sink pattern"},
		{role: sink.RolePlot, name: "plot", defaultPattern: "%.png",
			help: "Annotated keypoint plot sink pattern"},
	}

	v := viper.New()
	v.SetEnvPrefix("sift")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "sift [flags] files ...",
		Short:         "SIFT feature extractor",
		Long:          longDesc,
		Args:          cobra.MinimumNArgs(1),
		Version:       fmt.Sprintf("%s (commit %s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbosity)

			sinks, err := buildSinks(cmd, framesArg, optional)
			if err != nil {
				return err
			}
			for _, m := range sinks {
				logger.Debug("sink configured",
					"active", m.Active, "pattern", m.Pattern, "protocol", m.Protocol.String())
			}

			params := sift.Params{
				Octaves:     v.GetInt("octaves"),
				Levels:      v.GetInt("levels"),
				FirstOctave: v.GetInt("first-octave"),
				PeakThresh:  v.GetFloat64("peak-thresh"),
				EdgeThresh:  v.GetFloat64("edge-thresh"),
			}

			runner := pipeline.New(sinks, params, logger)
			if failed := runner.Run(args); failed > 0 {
				return fmt.Errorf("%d of %d images failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&octaves, "octaves", "O", 0, "Number of octaves (0 = derive from image size)")
	cmd.Flags().IntVarP(&levels, "levels", "S", 3, "Number of levels per octave")
	cmd.Flags().IntVar(&firstOctave, "first-octave", 0, "Index of the first octave")
	cmd.Flags().Float64Var(&peakThresh, "peak-thresh", 2.0, "Peak selection threshold")
	cmd.Flags().Float64Var(&edgeThresh, "edge-thresh", 10.0, "Edge rejection threshold")
	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "Be verbose (repeat for more detail)")

	cmd.Flags().StringVar(&framesArg, "frames", "", "Frames sink pattern")
	for _, sf := range optional {
		cmd.Flags().StringVar(&sf.value, sf.name, "", sf.help)
		cmd.Flags().Lookup(sf.name).NoOptDefVal = sf.defaultPattern
	}
	cmd.Flags().Lookup("frames").NoOptDefVal = "%.frame"

	cobra.CheckErr(v.BindPFlags(cmd.Flags()))
	return cmd
}

// buildSinks assembles the run's sink set from the parsed flags. The
// frames sink is always active; the rest activate only when their flag
// was given.
func buildSinks(cmd *cobra.Command, framesArg string, optional []*sinkFlag) (*sink.Set, error) {
	sinks := sink.NewSet()

	frames, err := sink.Parse("%.frame", framesArg)
	if err != nil {
		return nil, fmt.Errorf("invalid --frames argument: %w", err)
	}
	sinks.Put(sink.RoleFrames, frames)

	for _, sf := range optional {
		if !cmd.Flags().Changed(sf.name) {
			continue
		}
		m, err := sink.Parse(sf.defaultPattern, sf.value)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s argument: %w", sf.name, err)
		}
		if sf.role == sink.RoleMeta && m.Protocol != sink.ProtocolASCII {
			return nil, fmt.Errorf("meta file supports only the ascii protocol")
		}
		sinks.Put(sf.role, m)
	}
	return sinks, nil
}

// newLogger maps the -v count onto log levels: warnings only by default,
// per-image progress at -v, per-octave detail at -vv.
func newLogger(verbosity int) *log.Logger {
	level := log.WarnLevel
	switch {
	case verbosity == 1:
		level = log.InfoLevel
	case verbosity >= 2:
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:  level,
		Prefix: "sift",
	})
}
