package validation

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/lockstepml/lockstep/internal/tensor"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "text", want: KindText},
		{in: "TOKENS", want: KindTokens},
		{in: "Logits", want: KindLogits},
		{in: "csv", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseKind(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseKind(%q): unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDefaultPrefix(t *testing.T) {
	got := DefaultPrefix("ibm-granite/granite-3.0-8b", 128, 4, 64, "fp16")
	want := "ibm-granite--granite-3.0-8b_max-new-tokens-128_batch-size-4_seq-length-64_dtype-fp16"
	if got != want {
		t.Fatalf("prefix = %q, want %q", got, want)
	}
	if strings.ContainsRune(got, '/') {
		t.Fatalf("prefix %q still contains a path separator", got)
	}
}

func TestInfoAccessors(t *testing.T) {
	m := tensor.NewMat(2, 3)
	m.Data[0] = 1.5
	info := NewInfo([]Record{
		{Tokens: []int{1, 2, 3}},
		{Tokens: []int{4, 5}, Logits: &m},
	})

	if got := info.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	if info.Records()[0].HasLogits() {
		t.Fatal("record 0 should not report logits")
	}
	if !info.Records()[1].HasLogits() {
		t.Fatal("record 1 should report logits")
	}

	tok := info.TokensBySequence()
	if len(tok) != 2 || tok[0][2] != 3 || tok[1][0] != 4 {
		t.Fatalf("TokensBySequence = %v", tok)
	}

	lg := info.LogitsBySequence()
	if lg[0] != nil {
		t.Fatal("sequence 0 logits should be nil")
	}
	if lg[1] == nil || lg[1].Data[0] != 1.5 {
		t.Fatalf("sequence 1 logits = %v", lg[1])
	}
}

func TestJSONInterchange(t *testing.T) {
	t.Run("tokens only is a bare array", func(t *testing.T) {
		data, err := encodeJSONRecord(Record{Tokens: []int{5, 6, 7}})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
			t.Fatalf("tokens-only record should encode as a bare array, got %s", data)
		}

		rec, err := decodeJSONRecord(data, KindTokens)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(rec.Tokens) != 3 || rec.Tokens[0] != 5 || rec.HasLogits() {
			t.Fatalf("decoded record = %+v", rec)
		}
	})

	t.Run("logits record is an object", func(t *testing.T) {
		m := tensor.NewMatFromData(2, 2, []float32{1, 2, 3, 4})
		data, err := encodeJSONRecord(Record{Tokens: []int{9}, Logits: &m})
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
			t.Fatalf("logits record should encode as an object, got %s", data)
		}

		rec, err := decodeJSONRecord(data, KindLogits)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rec.Logits == nil || rec.Logits.R != 2 || rec.Logits.C != 2 {
			t.Fatalf("decoded logits shape = %+v", rec.Logits)
		}
		if got := rec.Logits.Row(1)[1]; got != 4 {
			t.Fatalf("logits[1][1] = %v, want 4", got)
		}
	})

	t.Run("bare array under logits kind", func(t *testing.T) {
		_, err := decodeJSONRecord([]byte("[1,2,3]"), KindLogits)
		if !errors.Is(err, ErrMissingLogits) {
			t.Fatalf("expected ErrMissingLogits, got %v", err)
		}
	})

	t.Run("object without logits under logits kind", func(t *testing.T) {
		_, err := decodeJSONRecord([]byte(`{"tokens":[1,2]}`), KindLogits)
		if !errors.Is(err, ErrMissingLogits) {
			t.Fatalf("expected ErrMissingLogits, got %v", err)
		}
	})

	t.Run("tokens kind drops logits", func(t *testing.T) {
		rec, err := decodeJSONRecord([]byte(`{"tokens":[8],"logits":[[0.5,0.5]]}`), KindTokens)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if rec.HasLogits() {
			t.Fatal("tokens kind should not retain logits")
		}
		if len(rec.Tokens) != 1 || rec.Tokens[0] != 8 {
			t.Fatalf("tokens = %v", rec.Tokens)
		}
	})

	t.Run("ragged logits rejected", func(t *testing.T) {
		if _, err := decodeJSONRecord([]byte(`{"tokens":[1],"logits":[[1,2],[3]]}`), KindLogits); err == nil {
			t.Fatal("expected error for ragged logits rows")
		}
	})

	t.Run("garbage rejected", func(t *testing.T) {
		if _, err := decodeJSONRecord([]byte(`"hello"`), KindTokens); err == nil {
			t.Fatal("expected error for non-record JSON")
		}
	})
}
