// Package simulation drives a translator with a trace and prints the
// report.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/sarchlab/pagesim/config"
	"github.com/sarchlab/pagesim/datarecording"
	"github.com/sarchlab/pagesim/hooking"
	"github.com/sarchlab/pagesim/monitoring"
	"github.com/sarchlab/pagesim/report"
	"github.com/sarchlab/pagesim/trace"
	"github.com/sarchlab/pagesim/tracing"
	"github.com/sarchlab/pagesim/vm"
	"github.com/sarchlab/pagesim/vm/translator"
)

// A Simulation runs one trace through one translator. The embedded mutex is
// held while an access is processed.
type Simulation struct {
	sync.Mutex

	id      string
	cfg     config.Config
	output  io.Writer
	verbose bool
	check   bool

	translator *translator.Translator

	dataRecorder datarecording.DataRecorder
	visTracer    *tracing.DBTracer
	monitor      *monitoring.Monitor
	monitorURL   string

	malformed  int
	skipped    int
	terminated bool
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Translator returns the translator driven by the simulation.
func (s *Simulation) Translator() *translator.Translator {
	return s.translator
}

// AcceptHook registers a hook on the translator.
func (s *Simulation) AcceptHook(hook hooking.Hook) {
	s.Lock()
	defer s.Unlock()

	s.translator.AcceptHook(hook)
}

// GetDataRecorder returns the data recorder used in the simulation, or nil.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation, or nil.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitoring server, if any.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// NumMalformed returns the number of values rejected as malformed.
func (s *Simulation) NumMalformed() int {
	return s.malformed
}

// NumSkipped returns the number of lines that held no value.
func (s *Simulation) NumSkipped() int {
	return s.skipped
}

// Run processes every line of the trace and writes the report. The total
// size of the trace in bytes, if known, feeds the progress bar of the
// monitor. A cancelled context stops the run before the report is written,
// also while waiting for input.
func (s *Simulation) Run(
	ctx context.Context,
	r io.Reader,
	total uint64,
) (translator.Statistics, error) {
	if s.verbose {
		err := report.WriteBanner(s.output, report.Parameters{
			NumFrames:         s.cfg.NumFrames,
			NumTLBEntries:     s.cfg.NumTLBEntries,
			ObservationPeriod: uint64(s.cfg.ObservationPeriod),
		})
		if err != nil {
			return translator.Statistics{}, err
		}
	}

	err := s.processTrace(
		ctx, trace.NewReader(trace.NewCancelableReader(ctx, r)), total)
	if err != nil {
		return s.translator.Statistics(), err
	}

	stats := s.translator.Statistics()

	return stats, s.writeReport(stats)
}

func (s *Simulation) processTrace(
	ctx context.Context,
	reader *trace.Reader,
	total uint64,
) error {
	var bar *monitoring.ProgressBar
	if s.monitor != nil {
		bar = s.monitor.CreateProgressBar("Trace", total)
		defer s.monitor.CompleteProgressBar(bar)
	}

	var consumed uint64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tok, ok := reader.Next()
		if !ok {
			break
		}

		if bar != nil {
			bar.IncrementFinished(reader.BytesRead() - consumed)
			consumed = reader.BytesRead()
		}

		if !tok.Valid {
			s.skipped++
			slog.Warn("skipping trace line without a hexadecimal value",
				"line", tok.Line, "text", tok.Text)

			continue
		}

		if err := s.access(tok); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := reader.Err(); err != nil {
		return fmt.Errorf("reading trace: %w", err)
	}

	return nil
}

func (s *Simulation) access(tok trace.Token) error {
	s.Lock()
	defer s.Unlock()

	_, err := s.translator.Translate(tok.Value)
	if errors.Is(err, vm.ErrMalformedAddress) {
		s.malformed++
		slog.Debug("malformed trace value", "line", tok.Line, "error", err)

		return report.WriteDump(s.output, s.translator)
	}

	if err != nil {
		return err
	}

	if s.check {
		err = s.translator.CheckConsistency()
		if err != nil {
			return fmt.Errorf("line %d: %w", tok.Line, err)
		}
	}

	return nil
}

func (s *Simulation) writeReport(stats translator.Statistics) error {
	if s.verbose {
		if _, err := fmt.Fprintln(s.output); err != nil {
			return err
		}
	}

	if err := report.WriteStatistics(s.output, stats); err != nil {
		return err
	}

	if s.verbose {
		if err := report.WriteTables(s.output, s.translator); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(s.output)

	return err
}

// Terminate records the summary, closes the recording and stops the
// monitoring server.
func (s *Simulation) Terminate(ctx context.Context) error {
	if s.terminated {
		return nil
	}

	s.terminated = true

	var errs []error

	if s.visTracer != nil {
		s.visTracer.Summarize(s.translator)
		s.visTracer.Terminate()
	}

	if s.dataRecorder != nil {
		errs = append(errs, s.dataRecorder.Close())
	}

	if s.monitor != nil {
		errs = append(errs, s.monitor.StopServer(ctx))
	}

	return errors.Join(errs...)
}
