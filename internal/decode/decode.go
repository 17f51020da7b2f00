// Package decode defines the generation-loop contract the validation harness
// drives, plus two bundled greedy loops at toy scale: Sequential, which
// accepts contiguous-cache sizing options, and Paged, which rejects them.
// Production accelerators supply their own Loop and Model implementations;
// the harness only relies on the contract.
package decode

import (
	"context"
	"time"

	"github.com/lockstepml/lockstep/internal/hooks"
)

// Model is the forward-pass collaborator. Forward consumes the newest token
// column (one id per sequence) and returns one logits row per sequence.
// Implementations keep whatever cached state they need between calls; Reset
// drops it before a new run.
type Model interface {
	Forward(last []int) ([][]float32, error)
	Reset()
}

// CacheSizer is an optional Model capability. The sequential loop calls it
// when contiguous-cache sizing is requested so the model can allocate its
// cache up front.
type CacheSizer interface {
	EnsureCache(maxSeqLen int) error
}

type TimingMode int

const (
	TimingOff TimingMode = iota
	// TimingE2E records a single duration covering prefill and all steps.
	TimingE2E
	// TimingPerStep records one duration per decode step, prefill excluded.
	TimingPerStep
)

// Options configures one generation run. Exactly one of two mutually
// exclusive option sets applies: contiguous-cache sizing (sequential loop)
// or page sizing (paged loop). A loop returns ErrUnsupportedOption for
// options it does not support.
type Options struct {
	MaxNewTokens int
	UseCache     bool
	Greedy       bool

	// Hook, when set, runs once per decode step after the greedy choice and
	// before the token is committed.
	Hook hooks.StepHook

	// EOSTokenID ends a sequence once emitted. Negative disables early
	// stopping; zero is a valid token id.
	EOSTokenID int

	Timing TimingMode

	// Sequential loop only.
	ContiguousCache bool
	MaxSeqLen       int

	// Paged loop only.
	PageSize int
}

// Result is one generation run's output: one token row per input sequence
// (prompt plus generated suffix) and, when requested, timing observations:
// length 1 for TimingE2E, one entry per step for TimingPerStep.
type Result struct {
	Tokens  [][]int
	Timings []time.Duration
}

// Loop runs autoregressive generation over a batch of prompts. Input rows
// must be rectangular and non-empty; the returned token rows keep the batch
// order.
type Loop interface {
	Generate(ctx context.Context, model Model, inputIDs [][]int, opts Options) (*Result, error)
}
