package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrorType represents different types of pre-execution errors
type ErrorType string

const (
	// ErrorTypeConfigParsing represents configuration parsing failures
	ErrorTypeConfigParsing ErrorType = "config_parsing_failed"
	// ErrorTypeInvalidArguments represents invalid command line arguments
	ErrorTypeInvalidArguments ErrorType = "invalid_arguments"
	// ErrorTypeLoggerSetup represents logger construction failures
	ErrorTypeLoggerSetup ErrorType = "logger_setup_failed"
	// ErrorTypeSystemError represents system errors
	ErrorTypeSystemError ErrorType = "system_error"
)

// PreExecutionError represents an error that occurs before any binary is inspected
type PreExecutionError struct {
	Type      ErrorType
	Message   string
	Component string
	RunID     string
	Err       error // Wrapped error for better error context preservation
}

// Error implements the error interface
func (e *PreExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v (component: %s, run_id: %s)", e.Type, e.Message, e.Err, e.Component, e.RunID)
	}
	return fmt.Sprintf("%s: %s (component: %s, run_id: %s)", e.Type, e.Message, e.Component, e.RunID)
}

// Unwrap implements error wrapping for errors.Unwrap
func (e *PreExecutionError) Unwrap() error {
	return e.Err
}

// HandlePreExecutionError reports a pre-execution error on w and through slog.
func HandlePreExecutionError(w io.Writer, err *PreExecutionError) {
	// Build the output first so concurrent writers cannot interleave it
	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n", err.Type)
	if err.Component != "" {
		fmt.Fprintf(&b, "  Component: %s\n", err.Component)
	}
	fmt.Fprintf(&b, "  Details: %s\n", err.Message)
	if err.Err != nil {
		fmt.Fprintf(&b, "  Cause: %v\n", err.Err)
	}
	if err.RunID != "" {
		fmt.Fprintf(&b, "  Run ID: %s\n", err.RunID)
	}
	fmt.Fprint(w, b.String())

	slog.Error("Pre-execution error occurred",
		slog.String("error_type", string(err.Type)),
		slog.String("error_message", err.Message),
		slog.String("component", err.Component),
		slog.String("run_id", err.RunID),
		slog.Any("error", err.Err),
	)
}
