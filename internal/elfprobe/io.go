package elfprobe

import (
	"errors"
	"io"
	"math"
)

// seekTo positions r at the absolute file offset off.
func seekTo(r io.Seeker, path string, off uint64) error {
	if off > math.MaxInt64 {
		return malformed(path, "file offset %#x out of range", off)
	}
	if _, err := r.Seek(int64(off), io.SeekStart); err != nil {
		return &IOError{Op: "seek", Path: path, Err: err}
	}
	return nil
}

// readRecordAt reads exactly len(buf) bytes at off. A short read means the
// record is truncated.
func readRecordAt(r io.ReadSeeker, path string, off uint64, buf []byte, what string) error {
	if err := seekTo(r, path, off); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return malformed(path, "truncated %s at offset %#x", what, off)
		}
		return &IOError{Op: "read", Path: path, Err: err}
	}
	return nil
}

// tableOffset returns base + index*size, failing if it does not fit in 64 bits.
func tableOffset(path string, base, index, size uint64) (uint64, error) {
	if size != 0 && index > (math.MaxUint64-base)/size {
		return 0, malformed(path, "table entry %d at base %#x overflows", index, base)
	}
	return base + index*size, nil
}
