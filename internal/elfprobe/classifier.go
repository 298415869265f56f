package elfprobe

import (
	"debug/elf"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/isseis/go-elfprobe/internal/safefileio"
)

// ForceForeignEnvVar, when present in the environment at the first check
// (whatever its value), makes every binary foreign for the rest of the process.
const ForceForeignEnvVar = "PROOT_FORCE_FOREIGN_BINARY"

// Override is a lazily computed, read-only "force foreign" decision.
type Override struct {
	forced func() bool
}

// NewOverride creates an Override that consults lookup exactly once, on
// first use.
func NewOverride(lookup func(key string) (string, bool)) *Override {
	return &Override{
		forced: sync.OnceValue(func() bool {
			_, ok := lookup(ForceForeignEnvVar)
			return ok
		}),
	}
}

var processOverride = NewOverride(os.LookupEnv)

// ProcessOverride returns the process-wide Override backed by the real
// environment.
func ProcessOverride() *Override {
	return processOverride
}

// ForcedForeign reports whether binaries must be treated as foreign.
func (o *Override) ForcedForeign() bool {
	return o.forced()
}

// ClassifierConfig configures a Classifier.
type ClassifierConfig struct {
	// HostMachines lists the machine types the host runs natively.
	HostMachines []elf.Machine
	// EmulationEnabled gates the check; when false no binary is host.
	EmulationEnabled bool
	// Override defaults to ProcessOverride().
	Override *Override
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Classifier decides whether binaries can run on the host without emulation.
// It is safe for concurrent use.
type Classifier struct {
	fs               safefileio.FileSystem
	hostMachines     []elf.Machine
	emulationEnabled bool
	override         *Override
	logger           *slog.Logger
}

// NewClassifier creates a Classifier reading binaries through fsys.
// If fsys is nil, the local file system is used.
func NewClassifier(fsys safefileio.FileSystem, cfg ClassifierConfig) *Classifier {
	if fsys == nil {
		fsys = safefileio.NewFileSystem()
	}
	if cfg.Override == nil {
		cfg.Override = ProcessOverride()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Classifier{
		fs:               fsys,
		hostMachines:     slices.Clone(cfg.HostMachines),
		emulationEnabled: cfg.EmulationEnabled,
		override:         cfg.Override,
		logger:           cfg.Logger,
	}
}

// EmulationEnabled reports whether the classifier examines binaries at all.
func (c *Classifier) EmulationEnabled() bool {
	return c.emulationEnabled
}

// IsHost reports whether path is an ELF binary for the host architecture.
// Any failure to read or validate the binary yields false, which sends the
// caller down the emulation path.
func (c *Classifier) IsHost(path string) bool {
	if c.override.ForcedForeign() || !c.emulationEnabled {
		return false
	}

	f, h, err := Open(c.fs, path)
	if err != nil {
		c.logger.Debug("cannot classify binary, assuming foreign",
			slog.String("path", path), slog.Any("error", err))
		return false
	}
	if err := f.Close(); err != nil {
		c.logger.Debug("error closing binary after classification",
			slog.String("path", path), slog.Any("error", err))
	}

	if slices.Contains(c.hostMachines, h.Machine) {
		c.logger.Debug("binary is a host ELF", slog.String("path", path), slog.String("machine", h.Machine.String()))
		return true
	}
	return false
}
