package elfprobe

import (
	"debug/elf"
	"io"
	"iter"
)

// dynamicTable describes the entries of a PT_DYNAMIC segment.
type dynamicTable struct {
	f       io.ReadSeeker
	h       *Header
	offset  uint64
	count   uint64
	entSize uint64
}

func newDynamicTable(f io.ReadSeeker, h *Header, segment ProgramHeader) (*dynamicTable, error) {
	entSize := h.DynamicEntrySize()
	if segment.Filesz%entSize != 0 {
		return nil, malformed(h.path, "dynamic segment size %d is not a multiple of %d", segment.Filesz, entSize)
	}
	return &dynamicTable{
		f:       f,
		h:       h,
		offset:  segment.Off,
		count:   segment.Filesz / entSize,
		entSize: entSize,
	}, nil
}

// entries yields, in table order, every entry tagged tag. Each entry is read
// after an explicit seek, so the consumer may move the file offset between
// iterations. Iteration stops after the first error.
func (t *dynamicTable) entries(tag elf.DynTag) iter.Seq2[DynamicEntry, error] {
	return func(yield func(DynamicEntry, error) bool) {
		buf := make([]byte, t.entSize)
		for i := range t.count {
			off, err := tableOffset(t.h.path, t.offset, i, t.entSize)
			if err != nil {
				yield(DynamicEntry{}, err)
				return
			}
			if err := readRecordAt(t.f, t.h.path, off, buf, "dynamic entry"); err != nil {
				yield(DynamicEntry{}, err)
				return
			}

			entry, err := t.h.layout.decodeDyn(buf, t.h.ByteOrder)
			if err != nil {
				yield(DynamicEntry{}, malformed(t.h.path, "decoding dynamic entry %d: %v", i, err))
				return
			}
			if entry.Tag != tag {
				continue
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}
