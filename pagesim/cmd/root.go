// Package cmd provides the command-line interface of the paging simulator.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/sarchlab/pagesim/config"
	"github.com/sarchlab/pagesim/hooking"
	"github.com/sarchlab/pagesim/simulation"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

type options struct {
	verbose     bool
	configPath  string
	tracePath   string
	check       bool
	record      bool
	recordName  string
	monitor     bool
	monitorPort int
	monitorHold bool
	openBrowser bool
	logLevel    string
	envFile     string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "pagesim [-v]",
		Short: "pagesim simulates the address translation of a paged memory.",
		Long: `pagesim reads a trace of 24-bit hexadecimal virtual addresses, ` +
			`one per line, and translates them through a TLB, a page table, ` +
			`and a core map with pseudo-LRU replacement. It prints the ` +
			`number of accesses, TLB misses, and page faults.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Narrate every access and dump the tables at the end.")
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultPath,
		"The configuration file.")
	flags.StringVarP(&opts.tracePath, "trace", "t", "",
		"The trace file. Standard input is read if not set. An interrupt "+
			"stops the run also while waiting for input.")
	flags.BoolVar(&opts.check, "check", false,
		"Verify the consistency of the tables after every access.")
	flags.BoolVar(&opts.record, "record", false,
		"Record every access into a SQLite database.")
	flags.StringVar(&opts.recordName, "record-name", "",
		"The database name, without extension. A unique name is picked if "+
			"not set.")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"Serve the tables and the progress over HTTP.")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0,
		"The port of the monitoring server. A random port is used if not set.")
	flags.BoolVar(&opts.monitorHold, "monitor-hold", false,
		"Keep the monitoring server running after the trace is processed, "+
			"until interrupted.")
	flags.BoolVar(&opts.openBrowser, "open-browser", false,
		"Open the monitoring page in a browser.")
	flags.StringVar(&opts.logLevel, "log-level", "info",
		"The log level: debug, info, warn, or error.")
	flags.StringVar(&opts.envFile, "env-file", ".env",
		"The environment file that provides defaults for unset flags.")

	return cmd
}

// Execute runs the root command. It exits with status 1 if the simulation
// cannot be run.
func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		slog.Error(err.Error())
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func run(cmd *cobra.Command, opts *options) error {
	if err := config.LoadEnv(opts.envFile); err != nil {
		return fmt.Errorf("loading %s: %w", opts.envFile, err)
	}

	applyEnvDefaults(cmd, opts)

	if err := setupLogging(cmd.ErrOrStderr(), opts.logLevel); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	input, total, closeInput, err := openTrace(cmd, opts.tracePath)
	if err != nil {
		return err
	}
	defer closeInput()

	ctx, stop := signal.NotifyContext(
		cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := buildSimulation(cmd.OutOrStdout(), cfg, opts)
	if err != nil {
		return err
	}

	var posCounter *hooking.PosCountTracer
	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		posCounter = hooking.NewPosCountTracer()
		s.AcceptHook(posCounter)
	}

	if opts.openBrowser && s.MonitorURL() != "" {
		openBrowser(s.MonitorURL())
	}

	stats, err := s.Run(ctx, input, total)
	if err != nil {
		return terminate(s, err)
	}

	slog.Debug("simulation finished",
		"accesses", stats.Accesses,
		"tlb_misses", stats.TLBMisses,
		"page_faults", stats.PageFaults,
		"malformed", s.NumMalformed(),
		"skipped", s.NumSkipped())
	logPosCounts(posCounter)

	if opts.monitorHold && s.MonitorURL() != "" {
		slog.Info("holding the monitoring server, interrupt to exit",
			"url", s.MonitorURL())
		<-ctx.Done()
	}

	return terminate(s, nil)
}

func buildSimulation(
	out io.Writer,
	cfg config.Config,
	opts *options,
) (*simulation.Simulation, error) {
	b := simulation.MakeBuilder().
		WithConfig(cfg).
		WithOutput(out).
		WithVerbose(opts.verbose).
		WithConsistencyCheck(opts.check)

	if opts.record {
		b = b.WithRecording().WithOutputFileName(opts.recordName)
	}

	if opts.monitor {
		b = b.WithMonitoring().WithMonitorPort(opts.monitorPort)
	}

	return b.Build()
}

func terminate(s *simulation.Simulation, runErr error) error {
	err := s.Terminate(context.Background())
	if runErr != nil {
		return runErr
	}

	return err
}

func applyEnvDefaults(cmd *cobra.Command, opts *options) {
	flags := cmd.Flags()

	if !flags.Changed("config") {
		opts.configPath = config.EnvString(config.EnvConfigPath, opts.configPath)
	}

	if !flags.Changed("verbose") {
		opts.verbose = config.EnvBool(config.EnvVerbose, opts.verbose)
	}

	if !flags.Changed("log-level") {
		opts.logLevel = config.EnvString(config.EnvLogLevel, opts.logLevel)
	}
}

func openTrace(
	cmd *cobra.Command,
	path string,
) (io.Reader, uint64, func(), error) {
	if path == "" {
		return cmd.InOrStdin(), 0, func() {}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("opening trace: %w", err)
	}

	var total uint64
	if info, err := f.Stat(); err == nil {
		total = uint64(info.Size())
	}

	return f, total, func() { f.Close() }, nil
}

func openBrowser(url string) {
	browser.Stdout = os.Stderr

	err := browser.OpenURL(url)
	if err != nil {
		slog.Warn("cannot open browser", "url", url, "error", err)
	}
}

func logPosCounts(t *hooking.PosCountTracer) {
	if t == nil {
		return
	}

	for _, name := range t.GetPosNames() {
		slog.Debug("hook position", "pos", name, "count", t.GetPosCount(name))
	}
}
