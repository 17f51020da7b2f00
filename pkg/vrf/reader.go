package vrf

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// File is a parsed record container. Data holds the entire file, either as a
// read-only mapping or a heap copy; Sections index into it.
type File struct {
	Data     []byte
	Header   *Header
	Sections []Section
	mmapped  bool
}

// Open reads and validates the record file at path. It prefers a read-only
// mmap so section payloads can be sliced without copying, falling back to a
// heap copy where mapping is unavailable. Close releases the mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size, err := usableSize(st.Size())
	if err != nil {
		return nil, err
	}

	if raw, merr := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED); merr == nil {
		vf, err := parseFile(raw, true)
		if err != nil {
			_ = unix.Munmap(raw)
			return nil, err
		}
		return vf, nil
	}

	raw, err := readFullAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseFile(raw, false)
}

// OpenReaderAt parses a record from any random-access source. It never mmaps.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	n, err := usableSize(size)
	if err != nil {
		return nil, err
	}
	raw, err := readFullAt(r, n)
	if err != nil {
		return nil, err
	}
	return parseFile(raw, false)
}

// usableSize rejects sizes too small to hold a header and sizes that cannot
// back an int-indexed []byte on this architecture.
func usableSize(size int64) (int, error) {
	if size < int64(headerSize) {
		return 0, ErrCorruptFile
	}
	if size > int64(int(^uint(0)>>1)) {
		return 0, ErrCorruptFile
	}
	return int(size), nil
}

func readFullAt(r io.ReaderAt, size int) ([]byte, error) {
	buf := make([]byte, size)
	for off := 0; off < size; {
		n, err := r.ReadAt(buf[off:], int64(off))
		off += n
		if err == io.EOF && off == size {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func parseFile(raw []byte, mmapped bool) (*File, error) {
	h, err := parseHeader(raw)
	if err != nil {
		return nil, err
	}
	secs, err := parseSectionDir(raw, h)
	if err != nil {
		return nil, err
	}
	return &File{
		Data:     raw,
		Header:   &h,
		Sections: secs,
		mmapped:  mmapped,
	}, nil
}

func parseHeader(raw []byte) (Header, error) {
	if len(raw) < headerSize {
		return Header{}, ErrCorruptFile
	}
	h, ok := decodeHeader(raw[:headerSize])
	if !ok {
		return Header{}, ErrCorruptFile
	}
	if !h.Valid() {
		return Header{}, ErrInvalidMagic
	}
	if !h.Compatible() {
		return Header{}, ErrUnsupportedMajor
	}
	// A truncated or padded file cannot be trusted even when the directory
	// happens to stay in bounds.
	if h.FileSize != uint64(len(raw)) {
		return Header{}, ErrCorruptFile
	}
	if h.HeaderSize < headerSize || uint64(h.HeaderSize) > uint64(len(raw)) {
		return Header{}, ErrCorruptFile
	}
	return h, nil
}

func parseSectionDir(raw []byte, h Header) ([]Section, error) {
	dirStart := h.SectionDirOffset
	dirEnd := dirStart + uint64(h.SectionCount)*uint64(sectionSize)
	if dirStart < uint64(h.HeaderSize) || dirEnd < dirStart || dirEnd > uint64(len(raw)) {
		return nil, ErrCorruptFile
	}

	secs := make([]Section, h.SectionCount)
	for i := range secs {
		off := int(dirStart) + i*sectionSize
		s, ok := decodeSection(raw[off : off+sectionSize])
		if !ok {
			return nil, ErrCorruptFile
		}
		if err := checkSectionRange(len(raw), h, s, i, dirStart, dirEnd); err != nil {
			return nil, err
		}
		secs[i] = s
	}
	return secs, nil
}

// checkSectionRange verifies one directory entry: payload inside the file,
// clear of the header and the directory itself, and aligned.
func checkSectionRange(fileLen int, h Header, s Section, i int, dirStart, dirEnd uint64) error {
	end := s.Offset + s.Size
	if end < s.Offset || end > uint64(fileLen) {
		return fmt.Errorf("%w: section %d spills past end of file", ErrCorruptFile, i)
	}
	if s.Offset < uint64(h.HeaderSize) {
		return fmt.Errorf("%w: section %d overlaps header", ErrCorruptFile, i)
	}
	if rangesOverlap(s.Offset, end, dirStart, dirEnd) {
		return fmt.Errorf("%w: section %d overlaps section directory", ErrCorruptFile, i)
	}
	if s.Offset%vrfAlign != 0 {
		return fmt.Errorf("%w: section %d offset not %d-byte aligned", ErrCorruptFile, i, vrfAlign)
	}
	return nil
}

// Close releases the backing data. Safe on nil and after a prior Close.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	var err error
	if f.mmapped && f.Data != nil {
		err = unix.Munmap(f.Data)
	}
	f.Data = nil
	f.Header = nil
	f.Sections = nil
	f.mmapped = false
	return err
}

// Section returns the directory entry with the given type, or nil when the
// record has none. Duplicate types resolve to the earliest entry.
func (f *File) Section(t SectionType) *Section {
	for i := range f.Sections {
		if SectionType(f.Sections[i].Type) == t {
			return &f.Sections[i]
		}
	}
	return nil
}

// SectionData slices the payload for s out of the backing data without
// copying. The slice is no longer valid once the file is closed.
func (f *File) SectionData(s *Section) []byte {
	if f == nil || s == nil || f.Data == nil {
		return nil
	}
	end := s.Offset + s.Size
	if end < s.Offset || end > uint64(len(f.Data)) {
		return nil
	}
	// In-range by the checks above, so int conversion cannot truncate.
	return f.Data[int(s.Offset):int(end)]
}
