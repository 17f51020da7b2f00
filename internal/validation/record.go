// Package validation holds the per-sequence outputs of a generation run and
// moves them between memory and a directory of record files, one file per
// sequence index.
package validation

import (
	"fmt"
	"strings"

	"github.com/lockstepml/lockstep/internal/tensor"
	"github.com/lockstepml/lockstep/pkg/vrf"
)

// Kind selects how validation files are interpreted when loading.
type Kind string

const (
	// KindText tokenizes each file's raw text into a prompt record.
	KindText Kind = "text"
	// KindTokens reads the token sequence and drops any logits.
	KindTokens Kind = "tokens"
	// KindLogits reads the combined tokens+logits record; files without
	// logits fail to load.
	KindLogits Kind = "logits"
)

// ParseKind converts a user-supplied string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindText, KindTokens, KindLogits:
		return k, nil
	}
	return "", fmt.Errorf("unknown validation file kind %q", s)
}

// Record is one sequence's output: the token path and, optionally, one
// logits row per generated step. Logits row count equals the number of
// generated steps recorded for the sequence.
type Record struct {
	Tokens []int
	Logits *tensor.Mat
}

// HasLogits reports whether the record carries logits.
func (r Record) HasLogits() bool { return r.Logits != nil }

// Info is an ordered, fixed-size collection of records, one per sequence.
// The index position is the sequence's identity for the run's lifetime.
type Info struct {
	records []Record

	// Meta, when set, is stamped into every record file Save writes, with
	// the sequence index filled per file. Never read by the comparison
	// pipeline.
	Meta *vrf.Meta
}

// NewInfo wraps records into an Info. The Info takes ownership of the slice.
func NewInfo(records []Record) *Info {
	return &Info{records: records}
}

func (in *Info) Len() int { return len(in.records) }

// Records returns the underlying record slice in sequence order.
func (in *Info) Records() []Record { return in.records }

// TokensBySequence gathers every record's token path, indexed by sequence.
func (in *Info) TokensBySequence() [][]int {
	out := make([][]int, len(in.records))
	for i, rec := range in.records {
		out[i] = rec.Tokens
	}
	return out
}

// LogitsBySequence gathers every record's logits, indexed by sequence.
// Entries are nil for tokens-only records.
func (in *Info) LogitsBySequence() []*tensor.Mat {
	out := make([]*tensor.Mat, len(in.records))
	for i, rec := range in.records {
		out[i] = rec.Logits
	}
	return out
}

// DefaultPrefix derives the canonical record-file prefix for a run
// configuration. Path separators in the model id are flattened so the
// prefix is a single path component.
func DefaultPrefix(modelID string, maxNewTokens, batchSize, seqLen int, dtype string) string {
	return fmt.Sprintf("%s_max-new-tokens-%d_batch-size-%d_seq-length-%d_dtype-%s",
		strings.ReplaceAll(modelID, "/", "--"), maxNewTokens, batchSize, seqLen, dtype)
}
