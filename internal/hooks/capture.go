package hooks

import "github.com/lockstepml/lockstep/internal/tensor"

// Capture accumulates the logits a run emits, one steps-by-vocab matrix per
// sequence. It grows by one row per sequence per observed step and never
// shrinks. A Capture belongs to exactly one generation run; construct fresh
// hooks for every run instead of reusing one.
type Capture struct {
	seqs []tensor.Mat
}

// Observe appends one step's batch-by-vocab logits. The first call fixes the
// batch size; later calls must present the same number of rows.
func (c *Capture) Observe(logits *tensor.Mat) {
	if c.seqs == nil {
		c.seqs = make([]tensor.Mat, logits.R)
	}
	if len(c.seqs) != logits.R {
		panic("hooks: step batch size changed mid-run")
	}
	for i := range c.seqs {
		c.seqs[i].AppendRow(logits.Row(i))
	}
}

// Sequences returns how many sequences have been observed. Zero until the
// first step.
func (c *Capture) Sequences() int { return len(c.seqs) }

// Steps returns how many decode steps have been observed.
func (c *Capture) Steps() int {
	if len(c.seqs) == 0 {
		return 0
	}
	return c.seqs[0].R
}

// Logits returns the accumulated steps-by-vocab matrix for one sequence.
// The matrix is backed by the capture's own storage.
func (c *Capture) Logits(seq int) *tensor.Mat {
	return &c.seqs[seq]
}

// Recorder marks hooks that accumulate logits. The extraction driver
// type-asserts this to decide whether records carry logits; the capability
// is fixed when the hook is constructed.
type Recorder interface {
	Recorded() *Capture
}

// Extractor records every step's logits and leaves the proposed tokens
// untouched.
type Extractor struct {
	rec Capture
}

func NewExtractor() *Extractor { return &Extractor{} }

func (e *Extractor) OnStep(step int, logits *tensor.Mat, next []int, kc Context) ([]int, Context) {
	e.rec.Observe(logits)
	return next, kc
}

func (e *Extractor) Recorded() *Capture { return &e.rec }
