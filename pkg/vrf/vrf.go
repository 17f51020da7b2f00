// Package vrf implements the Validation Record File format.
//
// VRF is a single-file, memory-mappable container for per-sequence generation
// records: the token path a model produced and, optionally, the logits row it
// emitted at each decode step. It describes data only and never implies how
// the record was captured.
package vrf

// VRF global constants must never change.
const (
	// Magic is the file magic for all VRF containers. Encoded as "VRF\0".
	Magic = "VRF\x00"

	// CurrentMajor changes only on breaking format changes.
	CurrentMajor uint16 = 1

	// CurrentMinor may add new optional sections or fields.
	CurrentMinor uint16 = 0
)

type SectionType uint32

const (
	// SectionTokens holds the generated token ids as little-endian int32.
	SectionTokens SectionType = 0x0001
	// SectionLogits holds a row-major float32 matrix of one logits row per
	// decode step, prefixed by its shape.
	SectionLogits SectionType = 0x0002
	// SectionMeta holds a JSON document describing how the record was made.
	SectionMeta SectionType = 0x0003
)

type Header struct {
	Magic            [4]byte
	Major            uint16
	Minor            uint16
	HeaderSize       uint32
	SectionCount     uint32
	SectionDirOffset uint64
	FileSize         uint64
	Flags            uint64
}

func (h *Header) Valid() bool {
	if string(h.Magic[:]) != Magic {
		return false
	}
	if h.HeaderSize < headerSize {
		return false
	}
	if h.SectionCount == 0 {
		return false
	}
	return true
}

func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

type Section struct {
	Type    uint32
	Version uint32
	Offset  uint64
	Size    uint64
}

func (s *Section) End() uint64 {
	return s.Offset + s.Size
}
