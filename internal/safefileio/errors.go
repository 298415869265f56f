// Package safefileio provides read-only file access for binaries that are
// about to be inspected, guarding against inputs that would block or mislead
// the ELF parser.
package safefileio

import "errors"

var (
	// ErrInvalidFilePath indicates that the specified file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrNotRegularFile indicates that the path names a directory, device, FIFO or socket.
	ErrNotRegularFile = errors.New("not a regular file")
)
