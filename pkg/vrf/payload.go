package vrf

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// Meta describes how a record was captured. It is stored as JSON so
// inspection tools can print it without knowing every field.
type Meta struct {
	ModelID      string `json:"model_id"`
	DType        string `json:"dtype,omitempty"`
	Backend      string `json:"backend,omitempty"`
	BatchIndex   int    `json:"batch_index"`
	SeqLength    int    `json:"seq_length"`
	MaxNewTokens int    `json:"max_new_tokens"`
}

// EncodeTokens encodes token ids as little-endian int32 values.
func EncodeTokens(tokens []int) ([]byte, error) {
	buf := make([]byte, 4*len(tokens))
	for i, t := range tokens {
		if t < math.MinInt32 || t > math.MaxInt32 {
			return nil, fmt.Errorf("%w: token %d at index %d", ErrTokenRange, t, i)
		}
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(int32(t)))
	}
	return buf, nil
}

// DecodeTokens decodes a tokens section payload.
func DecodeTokens(data []byte) ([]int, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: tokens payload length %d not a multiple of 4", ErrCorruptFile, len(data))
	}
	out := make([]int, len(data)/4)
	for i := range out {
		out[i] = int(int32(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return out, nil
}

// EncodeLogits encodes a row-major float32 matrix as a logits section
// payload: uint32 rows, uint32 cols, then rows*cols little-endian float32.
func EncodeLogits(rows, cols int, data []float32) ([]byte, error) {
	if rows < 0 || cols < 0 {
		return nil, ErrBadShape
	}
	if rows*cols != len(data) {
		return nil, fmt.Errorf("%w: %dx%d vs %d values", ErrBadShape, rows, cols, len(data))
	}
	buf := make([]byte, 8+4*len(data))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(rows))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(cols))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[8+i*4:], math.Float32bits(v))
	}
	return buf, nil
}

// DecodeLogits decodes a logits section payload into its shape and values.
func DecodeLogits(data []byte) (rows, cols int, vals []float32, err error) {
	if len(data) < 8 {
		return 0, 0, nil, fmt.Errorf("%w: logits payload too short", ErrCorruptFile)
	}
	rows = int(binary.LittleEndian.Uint32(data[0:4]))
	cols = int(binary.LittleEndian.Uint32(data[4:8]))
	want := rows * cols
	if rows != 0 && want/rows != cols {
		return 0, 0, nil, fmt.Errorf("%w: logits shape overflow", ErrCorruptFile)
	}
	if len(data) != 8+4*want {
		return 0, 0, nil, fmt.Errorf("%w: logits payload %d bytes, want %d for %dx%d",
			ErrCorruptFile, len(data), 8+4*want, rows, cols)
	}
	vals = make([]float32, want)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[8+i*4:]))
	}
	return rows, cols, vals, nil
}

// EncodeMeta encodes record metadata as a JSON section payload.
func EncodeMeta(m Meta) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMeta decodes a meta section payload.
func DecodeMeta(data []byte) (Meta, error) {
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, fmt.Errorf("%w: meta: %v", ErrCorruptFile, err)
	}
	return m, nil
}
