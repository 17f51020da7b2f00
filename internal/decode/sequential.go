package decode

import (
	"context"
	"fmt"
)

// Sequential is the bundled contiguous-cache loop. It accepts the
// ContiguousCache and MaxSeqLen options and forwards the cache bound to
// models that can size themselves; page sizing belongs to the paged loop
// and is rejected here.
type Sequential struct{}

func (Sequential) Generate(ctx context.Context, model Model, inputIDs [][]int, opts Options) (*Result, error) {
	if err := validateInput(inputIDs, opts); err != nil {
		return nil, err
	}
	if opts.PageSize != 0 {
		return nil, fmt.Errorf("%w: page size is a paged-loop option", ErrUnsupportedOption)
	}

	if opts.ContiguousCache {
		maxSeqLen := opts.MaxSeqLen
		if maxSeqLen <= 0 {
			maxSeqLen = len(inputIDs[0]) + opts.MaxNewTokens
		}
		if cs, ok := model.(CacheSizer); ok {
			if err := cs.EnsureCache(maxSeqLen); err != nil {
				return nil, fmt.Errorf("sizing contiguous cache to %d: %w", maxSeqLen, err)
			}
		}
	}

	return runGreedy(ctx, model, inputIDs, opts)
}
