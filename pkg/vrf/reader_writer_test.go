package vrf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeRecordFile(t *testing.T, path string, tokens []int, meta *Meta) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	w, err := NewWriter(f)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	tokPayload, err := EncodeTokens(tokens)
	if err != nil {
		t.Fatalf("encode tokens: %v", err)
	}
	if err := w.WriteSection(SectionTokens, 1, tokPayload); err != nil {
		t.Fatalf("write tokens: %v", err)
	}
	if meta != nil {
		metaPayload, err := EncodeMeta(*meta)
		if err != nil {
			t.Fatalf("encode meta: %v", err)
		}
		if err := w.WriteSection(SectionMeta, 1, metaPayload); err != nil {
			t.Fatalf("write meta: %v", err)
		}
	}
	if err := w.Finalise(); err != nil {
		t.Fatalf("finalise: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close writer file: %v", err)
	}
}

func TestOpenReaderAtRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "0.vrf")
	meta := Meta{ModelID: "toy/tiny", Backend: "sequential", SeqLength: 4, MaxNewTokens: 3}
	writeRecordFile(t, path, []int{5, 9, 2}, &meta)

	rf, err := os.Open(path)
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	defer func() { _ = rf.Close() }()

	st, err := rf.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	vf, err := OpenReaderAt(rf, st.Size())
	if err != nil {
		t.Fatalf("open readerat: %v", err)
	}
	defer func() {
		if cerr := vf.Close(); cerr != nil {
			t.Fatalf("close vrf file: %v", cerr)
		}
	}()

	if vf.mmapped {
		t.Fatalf("OpenReaderAt should not mmap")
	}
	if vf.Header == nil {
		t.Fatalf("missing header")
	}
	if vf.Header.HeaderSize != headerSize {
		t.Fatalf("header size mismatch: got %d want %d", vf.Header.HeaderSize, headerSize)
	}

	tokSec := vf.Section(SectionTokens)
	if tokSec == nil {
		t.Fatalf("missing tokens section")
	}
	tokens, err := DecodeTokens(vf.SectionData(tokSec))
	if err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	if len(tokens) != 3 || tokens[0] != 5 || tokens[1] != 9 || tokens[2] != 2 {
		t.Fatalf("tokens mismatch: got %v", tokens)
	}

	metaSec := vf.Section(SectionMeta)
	if metaSec == nil {
		t.Fatalf("missing meta section")
	}
	gotMeta, err := DecodeMeta(vf.SectionData(metaSec))
	if err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if gotMeta != meta {
		t.Fatalf("meta mismatch: got %+v want %+v", gotMeta, meta)
	}
}

func TestOpenMmapRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "1.vrf")
	writeRecordFile(t, path, []int{1, 2, 3, 4}, nil)

	vf, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = vf.Close() }()

	sec := vf.Section(SectionTokens)
	if sec == nil {
		t.Fatalf("missing tokens section")
	}
	if sec.Offset%vrfAlign != 0 {
		t.Fatalf("tokens section offset %d not aligned", sec.Offset)
	}
	tokens, err := DecodeTokens(vf.SectionData(sec))
	if err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	if len(tokens) != 4 || tokens[3] != 4 {
		t.Fatalf("tokens mismatch: got %v", tokens)
	}
	if vf.Section(SectionLogits) != nil {
		t.Fatalf("unexpected logits section")
	}
}

func TestHeaderAndSectionEncodingLittleEndian(t *testing.T) {
	t.Parallel()

	h := Header{
		Magic:            [4]byte{'V', 'R', 'F', 0},
		Major:            0x1122,
		Minor:            0x3344,
		HeaderSize:       headerSize,
		SectionCount:     7,
		SectionDirOffset: 0x0102030405060708,
		FileSize:         0x1112131415161718,
		Flags:            0x2122232425262728,
	}
	var hdrRaw [headerSize]byte
	if !encodeHeader(hdrRaw[:], h) {
		t.Fatalf("encode header failed")
	}
	if hdrRaw[4] != 0x22 || hdrRaw[5] != 0x11 {
		t.Fatalf("major is not little-endian: %x", hdrRaw[4:6])
	}
	if hdrRaw[16] != 0x08 || hdrRaw[23] != 0x01 {
		t.Fatalf("section dir offset is not little-endian: %x", hdrRaw[16:24])
	}
	decodedH, ok := decodeHeader(hdrRaw[:])
	if !ok {
		t.Fatalf("decode header failed")
	}
	if decodedH != h {
		t.Fatalf("header round-trip mismatch: got %+v want %+v", decodedH, h)
	}

	s := Section{
		Type:    0x11223344,
		Version: 0x55667788,
		Offset:  0x0102030405060708,
		Size:    0x1112131415161718,
	}
	var secRaw [sectionSize]byte
	if !encodeSection(secRaw[:], s) {
		t.Fatalf("encode section failed")
	}
	if secRaw[0] != 0x44 || secRaw[3] != 0x11 {
		t.Fatalf("section type is not little-endian: %x", secRaw[0:4])
	}
	if secRaw[8] != 0x08 || secRaw[15] != 0x01 {
		t.Fatalf("section offset is not little-endian: %x", secRaw[8:16])
	}
	decodedS, ok := decodeSection(secRaw[:])
	if !ok {
		t.Fatalf("decode section failed")
	}
	if decodedS != s {
		t.Fatalf("section round-trip mismatch: got %+v want %+v", decodedS, s)
	}
}

func TestOpenRejectsCorruptFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.vrf")
	writeRecordFile(t, good, []int{1, 2}, nil)
	raw, err := os.ReadFile(good)
	if err != nil {
		t.Fatalf("read good file: %v", err)
	}

	t.Run("bad magic", func(t *testing.T) {
		mangled := bytes.Clone(raw)
		mangled[0] = 'X'
		if _, err := OpenReaderAt(bytes.NewReader(mangled), int64(len(mangled))); err == nil {
			t.Fatalf("expected error for bad magic")
		}
	})

	t.Run("unsupported major", func(t *testing.T) {
		mangled := bytes.Clone(raw)
		mangled[4] = 0xFF
		if _, err := OpenReaderAt(bytes.NewReader(mangled), int64(len(mangled))); err == nil {
			t.Fatalf("expected error for unsupported major version")
		}
	})

	t.Run("truncated", func(t *testing.T) {
		mangled := raw[:len(raw)-1]
		if _, err := OpenReaderAt(bytes.NewReader(mangled), int64(len(mangled))); err == nil {
			t.Fatalf("expected error for truncated file")
		}
	})

	t.Run("too short for header", func(t *testing.T) {
		if _, err := OpenReaderAt(bytes.NewReader(raw[:8]), 8); err == nil {
			t.Fatalf("expected error for short file")
		}
	})
}
