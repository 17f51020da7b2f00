package decode

import (
	"context"
	"fmt"
	"time"

	"github.com/lockstepml/lockstep/internal/hooks"
	"github.com/lockstepml/lockstep/internal/tensor"
)

func validateInput(inputIDs [][]int, opts Options) error {
	if !opts.Greedy || !opts.UseCache {
		return fmt.Errorf("%w: bundled loops only implement greedy cached decoding", ErrUnsupportedOption)
	}
	if opts.MaxNewTokens <= 0 {
		return fmt.Errorf("max new tokens must be positive, got %d", opts.MaxNewTokens)
	}
	if len(inputIDs) == 0 {
		return ErrEmptyBatch
	}
	promptLen := len(inputIDs[0])
	if promptLen == 0 {
		return ErrEmptyPrompt
	}
	for i, row := range inputIDs {
		if len(row) != promptLen {
			return fmt.Errorf("%w: row 0 has %d, row %d has %d", ErrRaggedPrompts, promptLen, i, len(row))
		}
	}
	return nil
}

// runGreedy is the decode core both bundled loops share: prefill the prompt
// column by column, then argmax one token per step, letting the hook observe
// the step's logits and override the choice before it is committed.
func runGreedy(ctx context.Context, model Model, inputIDs [][]int, opts Options) (*Result, error) {
	batch := len(inputIDs)
	promptLen := len(inputIDs[0])

	model.Reset()
	start := time.Now()

	// Prefill. Only the final column's logits matter for the first step.
	var lastLogits [][]float32
	var err error
	column := make([]int, batch)
	for col := 0; col < promptLen; col++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range inputIDs {
			column[i] = inputIDs[i][col]
		}
		lastLogits, err = model.Forward(column)
		if err != nil {
			return nil, fmt.Errorf("forward error during prefill column %d: %w", col, err)
		}
	}
	if len(lastLogits) != batch {
		return nil, fmt.Errorf("model returned %d logits rows for batch of %d", len(lastLogits), batch)
	}

	tokens := make([][]int, batch)
	for i, row := range inputIDs {
		tokens[i] = make([]int, 0, promptLen+opts.MaxNewTokens)
		tokens[i] = append(tokens[i], row...)
	}

	var timings []time.Duration
	if opts.Timing == TimingPerStep {
		timings = make([]time.Duration, 0, opts.MaxNewTokens)
	}

	kc := hooks.Context{}
	done := make([]bool, batch)

	for step := 0; step < opts.MaxNewTokens; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stepStart := time.Now()

		var stepMat tensor.Mat
		next := make([]int, batch)
		for i, row := range lastLogits {
			stepMat.AppendRow(row)
			next[i] = argmax(row)
		}

		if opts.Hook != nil {
			next, kc = opts.Hook.OnStep(step, &stepMat, next, kc)
			if len(next) != batch {
				return nil, fmt.Errorf("hook returned %d tokens for batch of %d", len(next), batch)
			}
		}

		for i := range tokens {
			tokens[i] = append(tokens[i], next[i])
		}

		allDone := false
		if opts.EOSTokenID >= 0 {
			allDone = true
			for i, tok := range next {
				if tok == opts.EOSTokenID {
					done[i] = true
				}
				if !done[i] {
					allDone = false
				}
			}
		}

		last := allDone || step == opts.MaxNewTokens-1
		if !last {
			lastLogits, err = model.Forward(next)
			if err != nil {
				return nil, fmt.Errorf("forward error during step %d: %w", step, err)
			}
			if len(lastLogits) != batch {
				return nil, fmt.Errorf("model returned %d logits rows for batch of %d", len(lastLogits), batch)
			}
		}
		if opts.Timing == TimingPerStep {
			timings = append(timings, time.Since(stepStart))
		}
		if allDone {
			break
		}
	}

	if opts.Timing == TimingE2E {
		timings = []time.Duration{time.Since(start)}
	}

	return &Result{Tokens: tokens, Timings: timings}, nil
}

// argmax returns the index of the largest value; ties resolve to the lowest
// index.
func argmax(row []float32) int {
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return best
}
