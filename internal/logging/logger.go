// Package logging builds the slog loggers used by the ELF probe and defines
// the errors reported before inspection starts.
package logging

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/isseis/go-elfprobe/internal/terminal"
	"github.com/oklog/ulid/v2"
)

// Log formats
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalidFormat is returned for an unknown log format.
var ErrInvalidFormat = errors.New("invalid log format")

// Options configures NewLogger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is auto, text or json. Auto picks text on an interactive
	// terminal and json elsewhere.
	Format string
	// Writer defaults to os.Stderr.
	Writer io.Writer
	// RunID is attached to every record when set.
	RunID string
	// Detector decides interactivity for FormatAuto. Defaults to the
	// environment based detector.
	Detector terminal.InteractiveDetector
}

// NewLogger builds a logger from opts.
func NewLogger(opts Options) (*slog.Logger, error) {
	var level slog.Level
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	format := strings.ToLower(opts.Format)
	if format == "" || format == FormatAuto {
		detector := opts.Detector
		if detector == nil {
			detector = terminal.NewInteractiveDetector(terminal.DetectorOptions{})
		}
		format = FormatJSON
		if detector.IsInteractive() {
			format = FormatText
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(w, handlerOpts)
	case FormatJSON:
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		handler = slog.NewJSONHandler(w, handlerOpts).WithAttrs([]slog.Attr{
			slog.String("hostname", hostname),
			slog.Int("pid", os.Getpid()),
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, opts.Format)
	}

	logger := slog.New(handler)
	if opts.RunID != "" {
		logger = logger.With(slog.String("run_id", opts.RunID))
	}
	return logger, nil
}

// GenerateRunID returns a new ULID identifying one run.
func GenerateRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
