// Package extract drives one intercepted generation run and packages the
// outcome as validation records.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/lockstepml/lockstep/internal/decode"
	"github.com/lockstepml/lockstep/internal/hooks"
	"github.com/lockstepml/lockstep/internal/logger"
	"github.com/lockstepml/lockstep/internal/validation"
)

// Config selects the generation loop and its options for one run.
type Config struct {
	// AttnMode picks the loop: a mode containing "paged" runs the paged
	// loop, anything else the sequential loop with contiguous-cache sizing
	// derived from the prompt length.
	AttnMode string

	MaxNewTokens int

	// EOSTokenID stops a sequence early once emitted. Negative disables
	// early stopping; zero is a valid token id.
	EOSTokenID int

	Timing decode.TimingMode

	// PageSize applies to the paged loop only; zero picks the loop default.
	PageSize int
}

// DefaultConfig returns a Config with early stopping and timing disabled.
func DefaultConfig(maxNewTokens int) Config {
	return Config{MaxNewTokens: maxNewTokens, EOSTokenID: -1}
}

// Run generates cfg.MaxNewTokens tokens for every prompt with hook attached
// to each step, then packages the run as one record per sequence. When the
// hook records logits (hooks.Recorder) every record carries its sequence's
// step-by-step logits; otherwise records hold tokens only. Loop failures
// propagate unchanged.
func Run(ctx context.Context, log logger.Logger, model decode.Model, inputIDs [][]int, hook hooks.StepHook, cfg Config) (*validation.Info, error) {
	loop, opts := planRun(inputIDs, cfg)
	opts.Hook = hook

	res, err := loop.Generate(ctx, model, inputIDs, opts)
	if err != nil {
		return nil, err
	}
	logTimings(log, cfg.Timing, res.Timings)

	records := make([]validation.Record, len(res.Tokens))
	for i, tokens := range res.Tokens {
		records[i] = validation.Record{Tokens: tokens}
	}
	if hook != nil {
		if rec, ok := hook.(hooks.Recorder); ok {
			captured := rec.Recorded()
			for i := range records {
				if i < captured.Sequences() {
					records[i].Logits = captured.Logits(i)
				}
			}
		}
	}
	return validation.NewInfo(records), nil
}

func planRun(inputIDs [][]int, cfg Config) (decode.Loop, decode.Options) {
	opts := decode.Options{
		MaxNewTokens: cfg.MaxNewTokens,
		UseCache:     true,
		Greedy:       true,
		EOSTokenID:   cfg.EOSTokenID,
		Timing:       cfg.Timing,
	}
	if strings.Contains(cfg.AttnMode, "paged") {
		opts.PageSize = cfg.PageSize
		return decode.Paged{}, opts
	}
	opts.ContiguousCache = true
	if len(inputIDs) > 0 {
		opts.MaxSeqLen = len(inputIDs[0]) + cfg.MaxNewTokens
	}
	return decode.Sequential{}, opts
}

// logTimings reports the run's timing observations. The numbers include the
// hook and bookkeeping work the run does between forward passes, so they
// overstate bare generation time.
func logTimings(log logger.Logger, mode decode.TimingMode, timings []time.Duration) {
	if log == nil || mode == decode.TimingOff || len(timings) == 0 {
		return
	}
	switch mode {
	case decode.TimingE2E:
		log.Info("e2e generation time", "duration", timings[0])
	case decode.TimingPerStep:
		ms := make([]float64, len(timings))
		for i, d := range timings {
			ms[i] = float64(d.Microseconds()) / 1000.0
		}
		log.Info("per-step generation times", "ms", ms)
	}
}
