package safefileio

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"
)

// FileSystem is an interface that abstracts file system operations
type FileSystem interface {
	SafeOpenFile(name string) (File, error)
}

// File is an interface that abstracts file operations.
// Every read is preceded by an explicit Seek by the ELF parser, so the
// cursor position is never assumed to survive between operations.
type File interface {
	io.Reader
	io.Seeker
	io.Closer
	Stat() (os.FileInfo, error)
}

// osFS implements FileSystem using the local disk
var defaultFS FileSystem = osFS{}

type osFS struct{}

// NewFileSystem returns the FileSystem backed by the local disk.
func NewFileSystem() FileSystem {
	return defaultFS
}

// SafeOpenFile opens name read-only and verifies that it is a regular file.
//
// The file is opened with O_NONBLOCK so that a FIFO without a writer cannot
// stall the open; such files are rejected by the regular file check before
// any read happens. Symbolic links are followed: executables are routinely
// installed as links (e.g. /usr/bin/python3 -> python3.12).
func (osFS) SafeOpenFile(name string) (File, error) {
	if name == "" {
		return nil, ErrInvalidFilePath
	}

	// #nosec G304 - the caller decides which binary to inspect; the file is only read
	file, err := os.OpenFile(name, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}

	if _, err := validateFile(file, name); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("error closing rejected file", slog.String("path", name), slog.Any("error", closeErr))
		}
		return nil, err
	}

	return file, nil
}

// validateFile checks if the file is a regular file and returns its FileInfo
// To prevent TOCTOU attacks, we use the file descriptor to get the file info
func validateFile(file File, filePath string) (os.FileInfo, error) {
	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotRegularFile, filePath, fileInfo.Mode().Type())
	}

	return fileInfo, nil
}
