package decode

import (
	"context"
	"fmt"
)

// DefaultPageSize is used when a paged run does not set Options.PageSize.
const DefaultPageSize = 16

// Paged is the bundled paged-attention loop. Its option set is disjoint
// from Sequential's: contiguous-cache sizing is rejected, page size is
// accepted. Real paged backends use PageSize to shape their KV pages; the
// bundled loop only validates it, the decode core is shared.
type Paged struct{}

func (Paged) Generate(ctx context.Context, model Model, inputIDs [][]int, opts Options) (*Result, error) {
	if err := validateInput(inputIDs, opts); err != nil {
		return nil, err
	}
	if opts.ContiguousCache || opts.MaxSeqLen != 0 {
		return nil, fmt.Errorf("%w: contiguous-cache sizing is a sequential-loop option", ErrUnsupportedOption)
	}
	if opts.PageSize < 0 {
		return nil, fmt.Errorf("page size must not be negative, got %d", opts.PageSize)
	}
	if opts.PageSize == 0 {
		opts.PageSize = DefaultPageSize
	}

	return runGreedy(ctx, model, inputIDs, opts)
}
