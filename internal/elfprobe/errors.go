package elfprobe

import (
	"errors"
	"fmt"
)

// Static errors
var (
	// ErrIO matches every *IOError through errors.Is.
	ErrIO = errors.New("I/O error")

	// ErrMalformedBinary indicates bad magic, an unknown class, a truncated
	// record, a misaligned dynamic segment or an offset that overflows.
	ErrMalformedBinary = errors.New("malformed ELF binary")

	// ErrUnsupportedFeature indicates a valid ELF construct this package does
	// not handle, such as extended program header numbering.
	ErrUnsupportedFeature = errors.New("unsupported ELF feature")

	// ErrOutOfMemory indicates that growing a path list would exceed the
	// byte budget of its Context.
	ErrOutOfMemory = errors.New("path list allocation exceeds budget")

	// ErrContextClosed indicates that a released Context was used again.
	ErrContextClosed = errors.New("allocation context is closed")
)

// IOError records a failed open, read, seek or close together with the
// underlying OS error.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// ErrorKind classifies errors returned by this package.
type ErrorKind int

// Error kinds
const (
	KindUnknown ErrorKind = iota
	KindIO
	KindMalformed
	KindUnsupported
	KindOutOfMemory
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io_error"
	case KindMalformed:
		return "malformed_binary"
	case KindUnsupported:
		return "unsupported_feature"
	case KindOutOfMemory:
		return "out_of_memory"
	default:
		return "unknown"
	}
}

// Kind returns the ErrorKind of err.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrMalformedBinary):
		return KindMalformed
	case errors.Is(err, ErrUnsupportedFeature):
		return KindUnsupported
	case errors.Is(err, ErrOutOfMemory):
		return KindOutOfMemory
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindUnknown
	}
}

func malformed(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedBinary, path, fmt.Sprintf(format, args...))
}

func unsupported(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrUnsupportedFeature, path, fmt.Sprintf(format, args...))
}
