package elfprobe

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// ProgramHeader is one program header table entry, widened to 64 bits.
type ProgramHeader struct {
	Type   elf.ProgType
	Flags  elf.ProgFlag
	Off    uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

// DynamicEntry is one dynamic section entry, widened to 64 bits.
type DynamicEntry struct {
	Tag elf.DynTag
	Val uint64
}

// layout decodes the class specific record shapes. It is chosen once when
// the header is parsed.
type layout interface {
	progSize() int
	dynSize() int
	decodeProg(b []byte, order binary.ByteOrder) (ProgramHeader, error)
	decodeDyn(b []byte, order binary.ByteOrder) (DynamicEntry, error)
}

var (
	prog32Size = binary.Size(elf.Prog32{})
	prog64Size = binary.Size(elf.Prog64{})
	dyn32Size  = binary.Size(elf.Dyn32{})
	dyn64Size  = binary.Size(elf.Dyn64{})
)

type layout32 struct{}

func (layout32) progSize() int { return prog32Size }

func (layout32) dynSize() int { return dyn32Size }

func (layout32) decodeProg(b []byte, order binary.ByteOrder) (ProgramHeader, error) {
	var raw elf.Prog32
	if err := binary.Read(bytes.NewReader(b), order, &raw); err != nil {
		return ProgramHeader{}, err
	}
	return ProgramHeader{
		Type:   elf.ProgType(raw.Type),
		Flags:  elf.ProgFlag(raw.Flags),
		Off:    uint64(raw.Off),
		Vaddr:  uint64(raw.Vaddr),
		Paddr:  uint64(raw.Paddr),
		Filesz: uint64(raw.Filesz),
		Memsz:  uint64(raw.Memsz),
		Align:  uint64(raw.Align),
	}, nil
}

func (layout32) decodeDyn(b []byte, order binary.ByteOrder) (DynamicEntry, error) {
	var raw elf.Dyn32
	if err := binary.Read(bytes.NewReader(b), order, &raw); err != nil {
		return DynamicEntry{}, err
	}
	return DynamicEntry{Tag: elf.DynTag(raw.Tag), Val: uint64(raw.Val)}, nil
}

type layout64 struct{}

func (layout64) progSize() int { return prog64Size }

func (layout64) dynSize() int { return dyn64Size }

func (layout64) decodeProg(b []byte, order binary.ByteOrder) (ProgramHeader, error) {
	var raw elf.Prog64
	if err := binary.Read(bytes.NewReader(b), order, &raw); err != nil {
		return ProgramHeader{}, err
	}
	return ProgramHeader{
		Type:   elf.ProgType(raw.Type),
		Flags:  elf.ProgFlag(raw.Flags),
		Off:    raw.Off,
		Vaddr:  raw.Vaddr,
		Paddr:  raw.Paddr,
		Filesz: raw.Filesz,
		Memsz:  raw.Memsz,
		Align:  raw.Align,
	}, nil
}

func (layout64) decodeDyn(b []byte, order binary.ByteOrder) (DynamicEntry, error) {
	var raw elf.Dyn64
	if err := binary.Read(bytes.NewReader(b), order, &raw); err != nil {
		return DynamicEntry{}, err
	}
	return DynamicEntry{Tag: elf.DynTag(raw.Tag), Val: raw.Val}, nil
}
