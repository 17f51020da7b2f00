package diverge

import "errors"

var (
	ErrNoLogits    = errors.New("sequence has no recorded logits")
	ErrRowMismatch = errors.New("reference and test rows differ in length")
	ErrBadTopK     = errors.New("top-k out of range")
)
