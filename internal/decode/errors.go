package decode

import "errors"

var (
	ErrUnsupportedOption = errors.New("unsupported generation option")
	ErrEmptyBatch        = errors.New("empty input batch")
	ErrEmptyPrompt       = errors.New("empty prompt row")
	ErrRaggedPrompts     = errors.New("prompt rows have unequal lengths")
)
