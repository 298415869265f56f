package elfprobe

import (
	"log/slog"

	"github.com/isseis/go-elfprobe/internal/safefileio"
)

// Report summarizes what the sandbox needs to know about one binary.
type Report struct {
	Path     string   `json:"path"`
	Class    string   `json:"class"`
	Machine  string   `json:"machine"`
	Host     bool     `json:"host"`
	RPath    string   `json:"rpath"`
	RunPath  string   `json:"runpath"`
	RPaths   []string `json:"rpaths,omitempty"`
	RunPaths []string `json:"runpaths,omitempty"`

	EntryInstruction string `json:"entry_instruction,omitempty"`
}

// Inspector combines classification and RPATH/RUNPATH extraction.
type Inspector struct {
	fs         safefileio.FileSystem
	classifier *Classifier
	ctxConfig  ContextConfig
}

// NewInspector creates an Inspector. If fsys is nil, the local file system
// is used. If classifier is nil, emulation is disabled and every binary is
// reported as foreign.
func NewInspector(fsys safefileio.FileSystem, classifier *Classifier, ctxConfig ContextConfig) *Inspector {
	if fsys == nil {
		fsys = safefileio.NewFileSystem()
	}
	if classifier == nil {
		classifier = NewClassifier(fsys, ClassifierConfig{})
	}
	return &Inspector{
		fs:         fsys,
		classifier: classifier,
		ctxConfig:  ctxConfig,
	}
}

// Inspect opens path, classifies it and extracts its search paths.
func (i *Inspector) Inspect(path string) (*Report, error) {
	f, h, err := Open(i.fs, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("error closing file during ELF inspection", slog.String("path", path), slog.Any("error", closeErr))
		}
	}()

	ctx := NewContext(i.ctxConfig)
	defer ctx.Close()

	rpaths, runpaths, err := ReadRPaths(ctx, f, h)
	if err != nil {
		return nil, err
	}

	// The entry instruction is informational; a bad code segment does not
	// invalidate the search paths.
	entry, _, err := EntryInstruction(f, h)
	if err != nil {
		slog.Warn("cannot decode entry point instruction",
			slog.String("path", path), slog.String("kind", Kind(err).String()), slog.Any("error", err))
		entry = ""
	}

	return &Report{
		Path:     path,
		Class:    h.Class.String(),
		Machine:  h.Machine.String(),
		Host:     i.classifier.IsHost(path),
		RPath:    rpaths.String(),
		RunPath:  runpaths.String(),
		RPaths:   rpaths.Entries(),
		RunPaths: runpaths.Entries(),

		EntryInstruction: entry,
	}, nil
}
