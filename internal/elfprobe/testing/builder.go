// Package elfprobetesting builds synthetic ELF images for tests.
package elfprobetesting

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	// ProgramHeaderOffset is where the program header table starts, for
	// both classes.
	ProgramHeaderOffset = 64

	// MaxProgs is the number of program header slots reserved in front of
	// the data area.
	MaxProgs = 8

	// LoadBase is the virtual address the data area is mapped at by
	// DynamicBinary.
	LoadBase = 0x400000
)

// Prog describes a program header written by the Builder.
type Prog struct {
	Type   elf.ProgType
	Flags  elf.ProgFlag
	Off    uint64
	Vaddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

// Dyn is a dynamic entry.
type Dyn struct {
	Tag elf.DynTag
	Val uint64
}

// Builder assembles an ELF image: a file header, a program header table of
// MaxProgs slots at ProgramHeaderOffset, then a data area of appended blobs.
type Builder struct {
	Class   elf.Class
	Data    elf.Data
	Machine elf.Machine
	Entry   uint64

	progs     []Prog
	data      bytes.Buffer
	phnum     *uint16
	phentsize *uint16
}

// NewBuilder creates a Builder for the given class, byte order and machine.
func NewBuilder(class elf.Class, data elf.Data, machine elf.Machine) *Builder {
	return &Builder{Class: class, Data: data, Machine: machine}
}

// Order returns the byte order of the image.
func (b *Builder) Order() binary.ByteOrder {
	if b.Data == elf.ELFDATA2MSB {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ProgSize returns the program header entry size of the class.
func (b *Builder) ProgSize() int {
	if b.Class == elf.ELFCLASS32 {
		return binary.Size(elf.Prog32{})
	}
	return binary.Size(elf.Prog64{})
}

// DataStart returns the file offset of the first appended blob.
func (b *Builder) DataStart() uint64 {
	return uint64(ProgramHeaderOffset + MaxProgs*b.ProgSize())
}

// Append adds blob to the data area and returns its file offset.
func (b *Builder) Append(blob []byte) uint64 {
	off := b.DataStart() + uint64(b.data.Len())
	b.data.Write(blob)
	return off
}

// AddProg appends a program header to the table.
func (b *Builder) AddProg(p Prog) {
	if len(b.progs) == MaxProgs {
		panic("elfprobetesting: too many program headers")
	}
	b.progs = append(b.progs, p)
}

// SetPhnum overrides e_phnum.
func (b *Builder) SetPhnum(n uint16) {
	b.phnum = &n
}

// SetPhentsize overrides e_phentsize.
func (b *Builder) SetPhentsize(n uint16) {
	b.phentsize = &n
}

// EncodeDynamic encodes entries with the layout of the builder's class.
func (b *Builder) EncodeDynamic(entries []Dyn) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		if b.Class == elf.ELFCLASS32 {
			mustWrite(&buf, b.Order(), elf.Dyn32{Tag: int32(e.Tag), Val: uint32(e.Val)})
		} else {
			mustWrite(&buf, b.Order(), elf.Dyn64{Tag: int64(e.Tag), Val: e.Val})
		}
	}
	return buf.Bytes()
}

// Bytes returns the assembled image.
func (b *Builder) Bytes() []byte {
	order := b.Order()
	phnum := uint16(len(b.progs))
	if b.phnum != nil {
		phnum = *b.phnum
	}
	phentsize := uint16(b.ProgSize())
	if b.phentsize != nil {
		phentsize = *b.phentsize
	}

	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(b.Class)
	ident[elf.EI_DATA] = byte(b.Data)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var out bytes.Buffer
	if b.Class == elf.ELFCLASS32 {
		mustWrite(&out, order, elf.Header32{
			Ident:     ident,
			Type:      uint16(elf.ET_EXEC),
			Machine:   uint16(b.Machine),
			Version:   uint32(elf.EV_CURRENT),
			Entry:     uint32(b.Entry),
			Phoff:     ProgramHeaderOffset,
			Ehsize:    uint16(binary.Size(elf.Header32{})),
			Phentsize: phentsize,
			Phnum:     phnum,
		})
	} else {
		mustWrite(&out, order, elf.Header64{
			Ident:     ident,
			Type:      uint16(elf.ET_EXEC),
			Machine:   uint16(b.Machine),
			Version:   uint32(elf.EV_CURRENT),
			Entry:     b.Entry,
			Phoff:     ProgramHeaderOffset,
			Ehsize:    uint16(binary.Size(elf.Header64{})),
			Phentsize: phentsize,
			Phnum:     phnum,
		})
	}
	out.Write(make([]byte, ProgramHeaderOffset-out.Len()))

	for _, p := range b.progs {
		if b.Class == elf.ELFCLASS32 {
			mustWrite(&out, order, elf.Prog32{
				Type:   uint32(p.Type),
				Off:    uint32(p.Off),
				Vaddr:  uint32(p.Vaddr),
				Paddr:  uint32(p.Vaddr),
				Filesz: uint32(p.Filesz),
				Memsz:  uint32(p.Memsz),
				Flags:  uint32(p.Flags),
				Align:  uint32(p.Align),
			})
		} else {
			mustWrite(&out, order, elf.Prog64{
				Type:   uint32(p.Type),
				Flags:  uint32(p.Flags),
				Off:    p.Off,
				Vaddr:  p.Vaddr,
				Paddr:  p.Vaddr,
				Filesz: p.Filesz,
				Memsz:  p.Memsz,
				Align:  p.Align,
			})
		}
	}
	out.Write(make([]byte, int(b.DataStart())-out.Len()))
	out.Write(b.data.Bytes())

	return out.Bytes()
}

// WriteFile writes the image into dir and returns its path.
func (b *Builder) WriteFile(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	err := os.WriteFile(path, b.Bytes(), 0o644) //nolint:gosec // test helper: 0644 is intentional for test files
	require.NoError(t, err)
	return path
}

// StringTable builds a string table holding strs, starting with the
// mandatory empty string, and returns the offset of each string.
func StringTable(strs ...string) ([]byte, []uint64) {
	table := []byte{0}
	offsets := make([]uint64, 0, len(strs))
	for _, s := range strs {
		offsets = append(offsets, uint64(len(table)))
		table = append(table, s...)
		table = append(table, 0)
	}
	return table, offsets
}

// DynamicBinary builds a dynamically linked image whose string table holds
// rpaths then runpaths. The dynamic segment carries DT_STRTAB first, then a
// DT_RPATH entry per rpath and a DT_RUNPATH entry per runpath in order,
// extra, and a terminating DT_NULL. A single PT_LOAD maps the data area at
// LoadBase.
func DynamicBinary(class elf.Class, data elf.Data, machine elf.Machine, rpaths, runpaths []string, extra ...Dyn) *Builder {
	b := NewBuilder(class, data, machine)

	strs := append(append([]string{}, rpaths...), runpaths...)
	table, offsets := StringTable(strs...)
	strtabOff := b.Append(table)
	strtabAddr := LoadBase + (strtabOff - b.DataStart())

	entries := []Dyn{{Tag: elf.DT_STRTAB, Val: strtabAddr}}
	for i := range rpaths {
		entries = append(entries, Dyn{Tag: elf.DT_RPATH, Val: offsets[i]})
	}
	for i := range runpaths {
		entries = append(entries, Dyn{Tag: elf.DT_RUNPATH, Val: offsets[len(rpaths)+i]})
	}
	entries = append(entries, extra...)
	entries = append(entries, Dyn{Tag: elf.DT_NULL})

	dynamic := b.EncodeDynamic(entries)
	dynOff := b.Append(dynamic)

	size := uint64(len(table) + len(dynamic))
	b.AddProg(Prog{
		Type:   elf.PT_LOAD,
		Flags:  elf.PF_R,
		Off:    b.DataStart(),
		Vaddr:  LoadBase,
		Filesz: size,
		Memsz:  size,
		Align:  0x1000,
	})
	b.AddProg(Prog{
		Type:   elf.PT_DYNAMIC,
		Flags:  elf.PF_R | elf.PF_W,
		Off:    dynOff,
		Vaddr:  LoadBase + (dynOff - b.DataStart()),
		Filesz: uint64(len(dynamic)),
		Memsz:  uint64(len(dynamic)),
		Align:  8,
	})

	return b
}

func mustWrite(buf *bytes.Buffer, order binary.ByteOrder, v any) {
	if err := binary.Write(buf, order, v); err != nil {
		panic(err)
	}
}
