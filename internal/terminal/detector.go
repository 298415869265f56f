// Package terminal decides whether the probe talks to a person at a
// terminal or to another program, which selects human readable or JSON
// output.
package terminal

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ciEnvVars are set by common CI systems.
var ciEnvVars = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"BUILDKITE",
	"TF_BUILD",
}

// DetectorOptions contains options for controlling interactive detection
type DetectorOptions struct {
	ForceInteractive    bool // Force interactive mode regardless of environment
	ForceNonInteractive bool // Force non-interactive mode regardless of environment

	// Getenv defaults to os.Getenv.
	Getenv func(key string) string
	// IsTerminal defaults to term.IsTerminal.
	IsTerminal func(fd int) bool
	// Files are the streams that must all be terminals. Defaults to
	// os.Stdout and os.Stderr.
	Files []*os.File
}

// InteractiveDetector interface defines methods for detecting interactive terminal capabilities
type InteractiveDetector interface {
	IsInteractive() bool
	IsTerminal() bool
	IsCIEnvironment() bool
}

type detector struct {
	options DetectorOptions
}

// NewInteractiveDetector creates a new interactive detector with the given options
func NewInteractiveDetector(options DetectorOptions) InteractiveDetector {
	if options.Getenv == nil {
		options.Getenv = os.Getenv
	}
	if options.IsTerminal == nil {
		options.IsTerminal = term.IsTerminal
	}
	if options.Files == nil {
		options.Files = []*os.File{os.Stdout, os.Stderr}
	}
	return &detector{options: options}
}

// IsInteractive applies, in order: the force options, CI detection, then
// terminal detection.
func (d *detector) IsInteractive() bool {
	switch {
	case d.options.ForceInteractive:
		return true
	case d.options.ForceNonInteractive:
		return false
	case d.IsCIEnvironment():
		return false
	default:
		return d.IsTerminal()
	}
}

// IsTerminal reports whether every configured stream is a terminal.
func (d *detector) IsTerminal() bool {
	for _, f := range d.options.Files {
		if f == nil || !d.options.IsTerminal(int(f.Fd())) {
			return false
		}
	}
	return true
}

// IsCIEnvironment reports whether a CI system is detected. CI=false, CI=0
// and CI=no do not count.
func (d *detector) IsCIEnvironment() bool {
	for _, key := range ciEnvVars {
		value := d.options.Getenv(key)
		if value == "" {
			continue
		}
		if key == "CI" {
			switch strings.ToLower(strings.TrimSpace(value)) {
			case "false", "0", "no":
				continue
			}
		}
		return true
	}
	return false
}
