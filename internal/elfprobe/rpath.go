package elfprobe

import (
	"bytes"
	"debug/elf"
	"errors"
	"io"
	"math"
)

// pathChunkSize is the read granularity of a string table entry.
const pathChunkSize = 1024

// ReadRPaths collects the DT_RPATH and DT_RUNPATH entries of the binary f
// described by h. Multiple entries of the same tag are joined with ':' in
// table order. Binaries without a PT_DYNAMIC segment or without a string
// table yield two empty lists. Both lists are owned by ctx.
func ReadRPaths(ctx *Context, f io.ReadSeeker, h *Header) (rpaths, runpaths *PathList, err error) {
	if rpaths, err = ctx.newPathList(); err != nil {
		return nil, nil, err
	}
	if runpaths, err = ctx.newPathList(); err != nil {
		return nil, nil, err
	}

	dynamic, found, err := FindProgramHeader(f, h, elf.PT_DYNAMIC, AnyAddress)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return rpaths, runpaths, nil
	}

	table, err := newDynamicTable(f, h, dynamic)
	if err != nil {
		return nil, nil, err
	}

	// Only the first string table is used; nothing says a binary may not
	// reference several.
	strtabAddr, found, err := firstEntry(table, elf.DT_STRTAB)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return rpaths, runpaths, nil
	}

	strtabOff, err := stringTableOffset(f, h, strtabAddr)
	if err != nil {
		return nil, nil, err
	}

	if err := collectPaths(ctx, table, elf.DT_RPATH, strtabOff, rpaths); err != nil {
		return nil, nil, err
	}
	if err := collectPaths(ctx, table, elf.DT_RUNPATH, strtabOff, runpaths); err != nil {
		return nil, nil, err
	}

	return rpaths, runpaths, nil
}

func firstEntry(table *dynamicTable, tag elf.DynTag) (uint64, bool, error) {
	for entry, err := range table.entries(tag) {
		if err != nil {
			return 0, false, err
		}
		return entry.Val, true, nil
	}
	return 0, false, nil
}

// stringTableOffset maps the virtual address of the string table to a file
// offset through the PT_LOAD segment containing it.
func stringTableOffset(f io.ReadSeeker, h *Header, addr uint64) (uint64, error) {
	segment, found, err := FindProgramHeader(f, h, elf.PT_LOAD, addr)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, malformed(h.path, "no loadable segment contains the string table at %#x", addr)
	}

	delta := addr - segment.Vaddr
	if delta > math.MaxUint64-segment.Off {
		return 0, malformed(h.path, "string table offset overflows")
	}
	off := segment.Off + delta
	if off > math.MaxInt64 {
		return 0, malformed(h.path, "string table offset %#x out of range", off)
	}
	return off, nil
}

func collectPaths(ctx *Context, table *dynamicTable, tag elf.DynTag, strtabOff uint64, list *PathList) error {
	path := table.h.path
	for entry, err := range table.entries(tag) {
		if err != nil {
			return err
		}
		if entry.Val > math.MaxUint64-strtabOff {
			return malformed(path, "%s string offset %#x overflows", tag, entry.Val)
		}

		paths, err := readPathString(ctx, table.f, path, strtabOff+entry.Val)
		if err != nil {
			return err
		}
		ctx.release(cap(paths))
		if err := list.add(paths); err != nil {
			return err
		}
	}
	return nil
}

// readPathString reads the NUL-terminated string at off in chunks of
// pathChunkSize. It stops at the first chunk that is short or holds a NUL.
// The scratch buffer is charged to ctx while it grows; the caller releases
// cap(result) before keeping a copy of the string.
func readPathString(ctx *Context, f io.ReadSeeker, path string, off uint64) ([]byte, error) {
	if err := seekTo(f, path, off); err != nil {
		return nil, err
	}

	var buf []byte
	length := 0
	for {
		if err := ctx.charge(pathChunkSize); err != nil {
			ctx.release(cap(buf))
			return nil, err
		}
		grown := make([]byte, length+pathChunkSize)
		copy(grown, buf[:length])
		buf = grown

		n, err := io.ReadFull(f, buf[length:])
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			ctx.release(cap(buf))
			return nil, &IOError{Op: "read", Path: path, Err: err}
		}

		if i := bytes.IndexByte(buf[length:length+n], 0); i >= 0 {
			return buf[:length+i], nil
		}
		length += n
		if n < pathChunkSize {
			return buf[:length], nil
		}
	}
}
