package tokenizer

import (
	"fmt"
	"strings"
)

// Ids reserved above the 256 byte values.
const (
	ByteBOS = 256
	ByteEOS = 257

	// ByteVocabSize is the id range of the byte-level tokenizer.
	ByteVocabSize = 258
)

// ByteLevel maps each UTF-8 byte of the input to its own token id. It needs
// no vocabulary files, so tests and demos get stable ids on every platform.
type ByteLevel struct {
	addBOS bool
	addEOS bool
}

func NewByteLevel(addBOS, addEOS bool) *ByteLevel {
	return &ByteLevel{addBOS: addBOS, addEOS: addEOS}
}

func (t *ByteLevel) Encode(text string) ([]int, error) {
	ids := make([]int, 0, len(text)+2)
	if t.addBOS {
		ids = append(ids, ByteBOS)
	}
	for i := 0; i < len(text); i++ {
		ids = append(ids, int(text[i]))
	}
	if t.addEOS {
		ids = append(ids, ByteEOS)
	}
	return ids, nil
}

func (t *ByteLevel) Decode(ids []int) (string, error) {
	var sb strings.Builder
	sb.Grow(len(ids))
	for _, id := range ids {
		switch {
		case id >= 0 && id < 256:
			sb.WriteByte(byte(id))
		case id == ByteBOS || id == ByteEOS:
			// markers carry no text
		default:
			return "", fmt.Errorf("token id %d out of range", id)
		}
	}
	return sb.String(), nil
}
