package validation

import "errors"

var (
	ErrNoValidationFiles        = errors.New("no validation files found")
	ErrNotEnoughValidationFiles = errors.New("not enough validation files for batch size")
	ErrTokenizerRequired        = errors.New("text validation files require a tokenizer")
	ErrMissingLogits            = errors.New("record has no logits")
)
