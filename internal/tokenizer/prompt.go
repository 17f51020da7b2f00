package tokenizer

import (
	"errors"
	"fmt"
)

// ErrEmptyPrompt reports text that tokenized to nothing.
var ErrEmptyPrompt = errors.New("prompt tokenized to zero tokens")

// IDsForPrompt encodes text for use as a generation prompt. Generation
// requires at least one prompt token, so an empty encoding is an error here
// rather than downstream in the decode loop.
func IDsForPrompt(t Tokenizer, text string) ([]int, error) {
	ids, err := t.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("encoding prompt: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrEmptyPrompt
	}
	return ids, nil
}

// PadLeft left-pads every row with pad until all rows have the length of the
// longest one, so a batch of prompts can decode rectangularly. Rows already
// at full length are returned as-is; padded rows are fresh slices.
func PadLeft(rows [][]int, pad int) [][]int {
	maxLen := 0
	for _, r := range rows {
		if len(r) > maxLen {
			maxLen = len(r)
		}
	}
	out := make([][]int, len(rows))
	for i, r := range rows {
		if len(r) == maxLen {
			out[i] = r
			continue
		}
		padded := make([]int, maxLen)
		for j := 0; j < maxLen-len(r); j++ {
			padded[j] = pad
		}
		copy(padded[maxLen-len(r):], r)
		out[i] = padded
	}
	return out
}
