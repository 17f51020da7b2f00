package validation

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/lockstepml/lockstep/internal/tensor"
)

// JSON interchange layout: a record with logits is an object with "tokens"
// and "logits" keys; a tokens-only record collapses to a bare token array.
// This mirrors the on-disk degradation of the binary format so records can
// be exchanged with other harness implementations.
type jsonRecord struct {
	Tokens []int       `json:"tokens"`
	Logits [][]float32 `json:"logits,omitempty"`
}

func encodeJSONRecord(rec Record) ([]byte, error) {
	if rec.Logits == nil {
		return json.Marshal(rec.Tokens)
	}
	rows := make([][]float32, rec.Logits.R)
	for i := range rows {
		rows[i] = rec.Logits.Row(i)
	}
	return json.Marshal(jsonRecord{Tokens: rec.Tokens, Logits: rows})
}

func decodeJSONRecord(data []byte, kind Kind) (Record, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return Record{}, fmt.Errorf("empty record")
	}

	switch trimmed[0] {
	case '[':
		if kind == KindLogits {
			return Record{}, fmt.Errorf("%w: bare token array", ErrMissingLogits)
		}
		var tokens []int
		if err := json.Unmarshal(trimmed, &tokens); err != nil {
			return Record{}, fmt.Errorf("decoding token array: %w", err)
		}
		return Record{Tokens: tokens}, nil

	case '{':
		var jr jsonRecord
		if err := json.Unmarshal(trimmed, &jr); err != nil {
			return Record{}, fmt.Errorf("decoding record object: %w", err)
		}
		if jr.Tokens == nil {
			return Record{}, fmt.Errorf("record object missing tokens key")
		}
		rec := Record{Tokens: jr.Tokens}
		if kind == KindLogits {
			if len(jr.Logits) == 0 {
				return Record{}, fmt.Errorf("%w: record object has no logits key", ErrMissingLogits)
			}
			m, err := rowsToMat(jr.Logits)
			if err != nil {
				return Record{}, err
			}
			rec.Logits = m
		}
		return rec, nil
	}

	return Record{}, fmt.Errorf("record is neither a token array nor a record object")
}

func rowsToMat(rows [][]float32) (*tensor.Mat, error) {
	cols := len(rows[0])
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("logits row %d has %d values, row 0 has %d", i, len(r), cols)
		}
	}
	m := tensor.NewMat(len(rows), cols)
	for i, r := range rows {
		copy(m.Row(i), r)
	}
	return &m, nil
}
