// Package hooks implements the per-step hook protocol a generation loop
// drives once per decoding step. Hooks observe the step's logits and may
// override the proposed next tokens; golden-token injection composes both to
// force a known path while recording what the model actually emitted.
package hooks

import "github.com/lockstepml/lockstep/internal/tensor"

// Context carries mutable cross-step bookkeeping through a generation run.
// The loop passes it back to the hook on every step; hooks may mutate it or
// return a replacement.
type Context map[string]any

// StepHook is called once per decoding step with the step index, the
// batch-by-vocab logits emitted for this step, and the proposed next token
// per sequence. It returns the token slice to commit (same length, possibly
// modified in place) and the context to carry forward. Implementations must
// not change the loop's control flow in any other way.
type StepHook interface {
	OnStep(step int, logits *tensor.Mat, next []int, kc Context) ([]int, Context)
}

// Func adapts a plain function to the StepHook interface.
type Func func(step int, logits *tensor.Mat, next []int, kc Context) ([]int, Context)

func (f Func) OnStep(step int, logits *tensor.Mat, next []int, kc Context) ([]int, Context) {
	return f(step, logits, next, kc)
}
