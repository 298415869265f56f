// Package config loads the TOML configuration of the ELF probe: whether
// emulation is enabled, which machine types are native to the host, and the
// byte budget for RPATH/RUNPATH extraction.
package config

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/isseis/go-elfprobe/internal/hostarch"
	"github.com/pelletier/go-toml/v2"
)

// SupportedVersion is the configuration format version understood by Load.
const SupportedVersion = "1.0"

// Error definitions for the config package
var (
	// ErrInvalidConfigPath is returned when the config file path is invalid
	ErrInvalidConfigPath = errors.New("invalid config file path")

	// ErrUnsupportedVersion is returned for an unknown version field
	ErrUnsupportedVersion = errors.New("unsupported config version")

	// ErrInvalidValue is returned when a field holds an invalid value
	ErrInvalidValue = errors.New("invalid config value")
)

// Spec is the on-disk configuration.
type Spec struct {
	Version   string        `toml:"version"`
	Emulation EmulationSpec `toml:"emulation"`
	Paths     PathsSpec     `toml:"paths"`
}

// EmulationSpec configures the architecture check.
type EmulationSpec struct {
	// Enabled turns the host architecture check on. Without emulation every
	// binary is treated as foreign without being read.
	Enabled bool `toml:"enabled"`

	// HostMachines overrides the host machine table, e.g. ["EM_X86_64", "EM_386"].
	// Empty means the default table of the running GOARCH.
	HostMachines []string `toml:"host_machines"`
}

// PathsSpec configures RPATH/RUNPATH extraction.
type PathsSpec struct {
	// MaxPathListBytes caps the memory used while reading path lists.
	// Zero means unbounded.
	MaxPathListBytes int `toml:"max_path_list_bytes"`
}

// Config is the validated, resolved configuration.
type Config struct {
	EmulationEnabled bool
	HostMachines     []elf.Machine
	MaxPathListBytes int
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		EmulationEnabled: false,
		HostMachines:     hostarch.DefaultMachines(),
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrInvalidConfigPath
	}

	// #nosec G304 - the configuration path is supplied by the operator
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML content. Unknown fields are rejected.
func Parse(content []byte) (*Config, error) {
	var spec Spec
	decoder := toml.NewDecoder(bytes.NewReader(content))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&spec); err != nil {
		var strictErr *toml.StrictMissingError
		if errors.As(err, &strictErr) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidValue, strictErr.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("failed to parse config at line %d, column %d: %w", row, col, err)
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return spec.resolve()
}

func (s *Spec) resolve() (*Config, error) {
	if s.Version != "" && s.Version != SupportedVersion {
		return nil, fmt.Errorf("%w: %q (supported: %q)", ErrUnsupportedVersion, s.Version, SupportedVersion)
	}

	if s.Paths.MaxPathListBytes < 0 {
		return nil, fmt.Errorf("%w: max_path_list_bytes must not be negative, got %d", ErrInvalidValue, s.Paths.MaxPathListBytes)
	}

	cfg := Default()
	cfg.EmulationEnabled = s.Emulation.Enabled
	cfg.MaxPathListBytes = s.Paths.MaxPathListBytes

	if len(s.Emulation.HostMachines) > 0 {
		machines, err := hostarch.ParseMachines(s.Emulation.HostMachines)
		if err != nil {
			return nil, fmt.Errorf("%w: host_machines: %w", ErrInvalidValue, err)
		}
		cfg.HostMachines = machines
	}

	return cfg, nil
}
