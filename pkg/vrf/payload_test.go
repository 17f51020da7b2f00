package vrf

import (
	"errors"
	"math"
	"testing"
)

func TestTokensPayload(t *testing.T) {
	t.Parallel()

	tokens := []int{0, 1, -1, 32000, math.MaxInt32}
	payload, err := EncodeTokens(tokens)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(payload) != 4*len(tokens) {
		t.Fatalf("payload length = %d, want %d", len(payload), 4*len(tokens))
	}
	got, err := DecodeTokens(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range tokens {
		if got[i] != tokens[i] {
			t.Fatalf("token %d = %d, want %d", i, got[i], tokens[i])
		}
	}

	if _, err := EncodeTokens([]int{math.MaxInt32 + 1}); !errors.Is(err, ErrTokenRange) {
		t.Fatalf("expected ErrTokenRange, got %v", err)
	}
	if _, err := DecodeTokens(payload[:5]); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile for ragged payload, got %v", err)
	}
}

func TestLogitsPayload(t *testing.T) {
	t.Parallel()

	vals := []float32{1.5, -2.25, 0, 3.125, -0.5, 7}
	payload, err := EncodeLogits(2, 3, vals)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rows, cols, got, err := DecodeLogits(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rows != 2 || cols != 3 {
		t.Fatalf("shape = %dx%d, want 2x3", rows, cols)
	}
	for i := range vals {
		if got[i] != vals[i] {
			t.Fatalf("value %d = %v, want %v", i, got[i], vals[i])
		}
	}

	if _, err := EncodeLogits(2, 2, vals); !errors.Is(err, ErrBadShape) {
		t.Fatalf("expected ErrBadShape, got %v", err)
	}
	if _, _, _, err := DecodeLogits(payload[:len(payload)-4]); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile for truncated payload, got %v", err)
	}
}

func TestMetaPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	m := Meta{
		ModelID:      "acme/model-3b",
		DType:        "fp16",
		Backend:      "paged",
		BatchIndex:   2,
		SeqLength:    64,
		MaxNewTokens: 128,
	}
	payload, err := EncodeMeta(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeMeta(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != m {
		t.Fatalf("meta round-trip mismatch: got %+v want %+v", got, m)
	}

	if _, err := DecodeMeta([]byte("{not json")); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile for bad meta, got %v", err)
	}
}
