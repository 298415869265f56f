package elfprobe

import (
	"debug/elf"
	"io"
	"log/slog"

	"golang.org/x/arch/x86/x86asm"
)

// maxInstructionLen is the longest encoding an x86 instruction may have.
const maxInstructionLen = 15

// decodeModes maps the machines we can disassemble to their x86asm mode.
var decodeModes = map[elf.Machine]int{
	elf.EM_X86_64: 64,
	elf.EM_386:    32,
}

// EntryInstruction decodes the first instruction at h's entry point and
// returns it in Intel syntax. The boolean result is false when the machine
// has no decoder, the entry point is not backed by file contents of a
// PT_LOAD segment, or the bytes there do not decode.
func EntryInstruction(f io.ReadSeeker, h *Header) (string, bool, error) {
	mode, ok := decodeModes[h.Machine]
	if !ok || h.Entry == 0 {
		return "", false, nil
	}

	ph, found, err := FindProgramHeader(f, h, elf.PT_LOAD, h.Entry)
	if err != nil || !found {
		return "", false, err
	}

	delta := h.Entry - ph.Vaddr
	if delta >= ph.Filesz {
		return "", false, nil
	}
	off, err := tableOffset(h.path, ph.Off, delta, 1)
	if err != nil {
		return "", false, err
	}

	code := make([]byte, min(maxInstructionLen, ph.Filesz-delta))
	if err := readRecordAt(f, h.path, off, code, "entry point code"); err != nil {
		return "", false, err
	}

	inst, err := x86asm.Decode(code, mode)
	if err != nil {
		slog.Debug("entry point does not decode",
			slog.String("path", h.path), slog.Uint64("entry", h.Entry), slog.Any("error", err))
		return "", false, nil
	}
	// A lone prefix decodes without error but carries no opcode.
	if inst.Op == 0 {
		slog.Debug("entry point holds only instruction prefixes",
			slog.String("path", h.path), slog.Uint64("entry", h.Entry), slog.Int("len", inst.Len))
		return "", false, nil
	}
	return x86asm.IntelSyntax(inst, h.Entry, nil), true, nil
}
