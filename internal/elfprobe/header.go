package elfprobe

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"

	"github.com/isseis/go-elfprobe/internal/safefileio"
)

// headerReadSize is the number of bytes read for the file header: the size
// of the 64-bit layout, the larger of the two.
const headerReadSize = 64

// Header is a validated ELF file header. Class specific fields are widened
// to their 64-bit form when the header is parsed.
type Header struct {
	Ident     [elf.EI_NIDENT]byte
	Class     elf.Class
	Data      elf.Data
	ByteOrder binary.ByteOrder
	Type      elf.Type
	Machine   elf.Machine
	Entry     uint64
	Phoff     uint64
	Phentsize uint16
	Phnum     uint16

	path   string
	layout layout
}

// Path returns the path the header was read from.
func (h *Header) Path() string {
	return h.path
}

// ProgramHeaderSize returns the program header entry size of h's class.
func (h *Header) ProgramHeaderSize() uint16 {
	return uint16(h.layout.progSize())
}

// DynamicEntrySize returns the dynamic entry size of h's class.
func (h *Header) DynamicEntrySize() uint64 {
	return uint64(h.layout.dynSize())
}

// Open opens path through fsys and validates its ELF header.
// On success the caller owns the returned file and must close it; on
// failure the file has already been closed.
func Open(fsys safefileio.FileSystem, path string) (safefileio.File, *Header, error) {
	f, err := fsys.SafeOpenFile(path)
	if err != nil {
		return nil, nil, &IOError{Op: "open", Path: path, Err: err}
	}

	h, err := readHeader(f, path)
	if err != nil {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("error closing file after header validation failed",
				slog.String("path", path), slog.Any("error", closeErr))
		}
		return nil, nil, err
	}

	return f, h, nil
}

// ReadHeader reads and validates the ELF header at the start of r.
// path is only used in error messages.
func ReadHeader(r io.ReadSeeker, path string) (*Header, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, &IOError{Op: "seek", Path: path, Err: err}
	}
	return readHeader(r, path)
}

func readHeader(r io.Reader, path string) (*Header, error) {
	var buf [headerReadSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, malformed(path, "file too short for an ELF header")
		}
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}

	if !bytes.Equal(buf[:len(elf.ELFMAG)], []byte(elf.ELFMAG)) {
		return nil, malformed(path, "bad magic number %x", buf[:len(elf.ELFMAG)])
	}

	h := &Header{path: path}
	copy(h.Ident[:], buf[:elf.EI_NIDENT])
	h.Class = elf.Class(buf[elf.EI_CLASS])
	h.Data = elf.Data(buf[elf.EI_DATA])

	switch h.Data {
	case elf.ELFDATA2LSB:
		h.ByteOrder = binary.LittleEndian
	case elf.ELFDATA2MSB:
		h.ByteOrder = binary.BigEndian
	default:
		// Records are then read as host-native structures.
		h.ByteOrder = binary.NativeEndian
	}

	switch h.Class {
	case elf.ELFCLASS32:
		var raw elf.Header32
		if err := binary.Read(bytes.NewReader(buf[:]), h.ByteOrder, &raw); err != nil {
			return nil, malformed(path, "decoding 32-bit header: %v", err)
		}
		h.Type = elf.Type(raw.Type)
		h.Machine = elf.Machine(raw.Machine)
		h.Entry = uint64(raw.Entry)
		h.Phoff = uint64(raw.Phoff)
		h.Phentsize = raw.Phentsize
		h.Phnum = raw.Phnum
		h.layout = layout32{}
	case elf.ELFCLASS64:
		var raw elf.Header64
		if err := binary.Read(bytes.NewReader(buf[:]), h.ByteOrder, &raw); err != nil {
			return nil, malformed(path, "decoding 64-bit header: %v", err)
		}
		h.Type = elf.Type(raw.Type)
		h.Machine = elf.Machine(raw.Machine)
		h.Entry = raw.Entry
		h.Phoff = raw.Phoff
		h.Phentsize = raw.Phentsize
		h.Phnum = raw.Phnum
		h.layout = layout64{}
	default:
		return nil, malformed(path, "unknown class %d", buf[elf.EI_CLASS])
	}

	return h, nil
}
