package tokenizer

import "testing"

func TestByteLevelRoundTrip(t *testing.T) {
	tok := NewByteLevel(false, false)
	for _, text := range []string{"", "hello", "café ☃", "line\nbreak"} {
		ids, err := tok.Encode(text)
		if err != nil {
			t.Fatalf("encode %q: %v", text, err)
		}
		got, err := tok.Decode(ids)
		if err != nil {
			t.Fatalf("decode %q: %v", text, err)
		}
		if got != text {
			t.Fatalf("round trip %q: got %q", text, got)
		}
	}
}

func TestByteLevelMarkers(t *testing.T) {
	tok := NewByteLevel(true, true)
	ids, err := tok.Encode("ab")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []int{ByteBOS, 'a', 'b', ByteEOS}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}

	text, err := tok.Decode(ids)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if text != "ab" {
		t.Fatalf("decode = %q, want %q", text, "ab")
	}
}

func TestByteLevelDecodeRejectsUnknownIDs(t *testing.T) {
	tok := NewByteLevel(false, false)
	if _, err := tok.Decode([]int{42, 9999}); err == nil {
		t.Fatal("expected error for out-of-range id")
	}
}
