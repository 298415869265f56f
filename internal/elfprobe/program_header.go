package elfprobe

import (
	"debug/elf"
	"io"
	"log/slog"
	"math"
)

// AnyAddress makes FindProgramHeader accept a segment regardless of where
// it is loaded. It is assumed never to be a real address.
const AnyAddress uint64 = math.MaxUint64

// extendedNumbering is the e_phnum escape (PN_XNUM) saying that the real
// count lives in the first section header.
const extendedNumbering = 0xffff

// FindProgramHeader returns the first program header of type typ in table
// order. When address is not AnyAddress, the segment must also be non-empty
// and contain address within [vaddr, vaddr+memsz]; the upper bound is
// inclusive. The boolean result is false when no entry matches.
func FindProgramHeader(f io.ReadSeeker, h *Header, typ elf.ProgType, address uint64) (ProgramHeader, bool, error) {
	if h.Phnum >= extendedNumbering {
		slog.Warn("big program header tables are not supported", slog.String("path", h.path))
		return ProgramHeader{}, false, unsupported(h.path, "extended program header numbering")
	}

	entSize := h.layout.progSize()
	if int(h.Phentsize) != entSize {
		slog.Warn("unsupported program header entry size",
			slog.String("path", h.path), slog.Int("phentsize", int(h.Phentsize)), slog.Int("expected", entSize))
		return ProgramHeader{}, false, unsupported(h.path, "program header entry size %d", h.Phentsize)
	}

	buf := make([]byte, entSize)
	for i := range uint64(h.Phnum) {
		off, err := tableOffset(h.path, h.Phoff, i, uint64(entSize))
		if err != nil {
			return ProgramHeader{}, false, err
		}
		if err := readRecordAt(f, h.path, off, buf, "program header"); err != nil {
			return ProgramHeader{}, false, err
		}

		ph, err := h.layout.decodeProg(buf, h.ByteOrder)
		if err != nil {
			return ProgramHeader{}, false, malformed(h.path, "decoding program header %d: %v", i, err)
		}
		if ph.Type != typ {
			continue
		}

		if address == AnyAddress || ph.contains(address) {
			return ph, true, nil
		}
	}

	return ProgramHeader{}, false, nil
}

// contains reports whether the segment is non-empty and address lies in
// [Vaddr, Vaddr+Memsz]. A range whose end wraps is empty.
func (p ProgramHeader) contains(address uint64) bool {
	start := p.Vaddr
	end := start + p.Memsz
	return start < end && address >= start && address <= end
}
