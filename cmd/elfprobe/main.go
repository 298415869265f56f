// Package main provides the elfprobe command, which reports for each given
// binary whether it can run on the host without emulation and which
// RPATH/RUNPATH search paths it declares.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/isseis/go-elfprobe/internal/config"
	"github.com/isseis/go-elfprobe/internal/elfprobe"
	"github.com/isseis/go-elfprobe/internal/logging"
	"github.com/isseis/go-elfprobe/internal/safefileio"
)

// Error definitions
var (
	ErrNoBinaries       = errors.New("at least one binary path is required")
	ErrInspectionFailed = errors.New("one or more binaries could not be inspected")
)

func main() {
	runID := logging.GenerateRunID()

	if err := run(os.Args[1:], os.Stdout, os.Stderr, runID); err != nil {
		var preExecErr *logging.PreExecutionError
		switch {
		case errors.As(err, &preExecErr):
			logging.HandlePreExecutionError(os.Stderr, preExecErr)
		case errors.Is(err, ErrInspectionFailed):
			// Each failure has already been reported.
		default:
			logging.HandlePreExecutionError(os.Stderr, &logging.PreExecutionError{
				Type:      logging.ErrorTypeSystemError,
				Message:   err.Error(),
				Component: "main",
				RunID:     runID,
			})
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer, runID string) error {
	fs := flag.NewFlagSet("elfprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "path to TOML config file")
		emulation  = fs.Bool("emulation", false, "enable the host architecture check (overrides the config file)")
		logLevel   = fs.String("log-level", "info", "log level (debug, info, warn, error)")
		logFormat  = fs.String("log-format", logging.FormatAuto, "log format (auto, text, json)")
		jsonOutput = fs.Bool("json", false, "print one JSON document per binary")
		runIDFlag  = fs.String("run-id", "", "unique identifier for this run (auto-generates ULID if not provided)")
	)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: elfprobe [flags] PATH...\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return &logging.PreExecutionError{
			Type:      logging.ErrorTypeInvalidArguments,
			Message:   "failed to parse flags",
			Component: "cli",
			RunID:     runID,
			Err:       err,
		}
	}
	if *runIDFlag != "" {
		runID = *runIDFlag
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return &logging.PreExecutionError{
			Type:      logging.ErrorTypeInvalidArguments,
			Message:   "no binary given",
			Component: "cli",
			RunID:     runID,
			Err:       ErrNoBinaries,
		}
	}

	logger, err := logging.NewLogger(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Writer: stderr,
		RunID:  runID,
	})
	if err != nil {
		return &logging.PreExecutionError{
			Type:      logging.ErrorTypeLoggerSetup,
			Message:   "failed to set up logger",
			Component: "logging",
			RunID:     runID,
			Err:       err,
		}
	}
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			return &logging.PreExecutionError{
				Type:      logging.ErrorTypeConfigParsing,
				Message:   "failed to load config",
				Component: "config",
				RunID:     runID,
				Err:       err,
			}
		}
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "emulation" {
			cfg.EmulationEnabled = *emulation
		}
	})

	fsys := safefileio.NewFileSystem()
	classifier := elfprobe.NewClassifier(fsys, elfprobe.ClassifierConfig{
		HostMachines:     cfg.HostMachines,
		EmulationEnabled: cfg.EmulationEnabled,
		Logger:           logger,
	})
	inspector := elfprobe.NewInspector(fsys, classifier, elfprobe.ContextConfig{MaxBytes: cfg.MaxPathListBytes})

	logger.Debug("starting inspection",
		slog.Int("binaries", fs.NArg()),
		slog.Bool("emulation", cfg.EmulationEnabled),
		slog.Any("host_machines", cfg.HostMachines))

	failed := 0
	for _, path := range fs.Args() {
		report, err := inspector.Inspect(path)
		if err != nil {
			failed++
			logger.Error("failed to inspect binary",
				slog.String("path", path),
				slog.String("kind", elfprobe.Kind(err).String()),
				slog.Any("error", err))
			fmt.Fprintf(stderr, "%s: %s: %v\n", path, elfprobe.Kind(err), err)
			continue
		}
		if err := printReport(stdout, report, *jsonOutput); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInspectionFailed, failed, fs.NArg())
	}
	return nil
}

func printReport(w io.Writer, report *elfprobe.Report, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(report)
	}
	line := fmt.Sprintf("%s: class=%s machine=%s host=%t rpath=%q runpath=%q",
		report.Path, report.Class, report.Machine, report.Host, report.RPath, report.RunPath)
	if report.EntryInstruction != "" {
		line += fmt.Sprintf(" entry=%q", report.EntryInstruction)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
