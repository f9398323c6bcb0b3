package simulation

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/xid"
	"github.com/sarchlab/pagesim/config"
	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/monitoring"
	"github.com/sarchlab/pagesim/report"
	"github.com/sarchlab/pagesim/tracing"
	"github.com/sarchlab/pagesim/vm/translator"
)

// Builder can be used to build a simulation.
type Builder struct {
	cfg     config.Config
	output  io.Writer
	verbose bool
	check   bool

	recordingOn    bool
	outputFileName string
	dataRecorder   datarecording.DataRecorder

	monitorOn   bool
	monitorPort int
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		cfg: config.Config{
			NumFrames:         16,
			NumTLBEntries:     8,
			ObservationPeriod: 8,
		},
		output: os.Stdout,
	}
}

// WithConfig sets the simulation parameters.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithOutput sets where the report is written.
func (b Builder) WithOutput(w io.Writer) Builder {
	b.output = w
	return b
}

// WithVerbose turns the banner, the narration, and the final table dumps on
// or off.
func (b Builder) WithVerbose(verbose bool) Builder {
	b.verbose = verbose
	return b
}

// WithConsistencyCheck makes the simulation verify the table invariants
// after every access.
func (b Builder) WithConsistencyCheck(check bool) Builder {
	b.check = check
	return b
}

// WithRecording records every access into a SQLite database.
func (b Builder) WithRecording() Builder {
	b.recordingOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithDataRecorder records into the given recorder instead of creating a
// database.
func (b Builder) WithDataRecorder(dr datarecording.DataRecorder) Builder {
	b.recordingOn = true
	b.dataRecorder = dr

	return b
}

// WithMonitoring starts a monitoring server with the simulation.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}
}

// Build builds the simulation. It fails if the configuration is invalid or
// the recording database cannot be created.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		id:      xid.New().String(),
		cfg:     b.cfg,
		output:  b.output,
		verbose: b.verbose,
		check:   b.check,
	}

	s.translator = translator.MakeBuilder().
		WithNumFrames(b.cfg.NumFrames).
		WithNumTLBEntries(b.cfg.NumTLBEntries).
		WithObservationPeriod(uint64(b.cfg.ObservationPeriod)).
		Build("Translator")

	if b.verbose {
		s.translator.AcceptHook(report.NewNarrator(b.output))
	}

	if b.recordingOn {
		err := b.buildRecording(s)
		if err != nil {
			return nil, err
		}
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor().WithLocker(s)
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterTranslator(s.translator)
		s.monitorURL = s.monitor.StartServer()
	}

	return s, nil
}

func (b Builder) buildRecording(s *Simulation) error {
	s.dataRecorder = b.dataRecorder

	if s.dataRecorder == nil {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "pagesim_" + s.id
		}

		dr, err := datarecording.New(outputPath)
		if err != nil {
			return fmt.Errorf("cannot create recording: %w", err)
		}

		s.dataRecorder = dr
	}

	s.visTracer = tracing.NewDBTracer(s.dataRecorder)
	s.translator.AcceptHook(s.visTracer)

	return nil
}
