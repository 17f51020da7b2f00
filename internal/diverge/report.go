package diverge

import (
	"fmt"
	"io"

	"github.com/lockstepml/lockstep/internal/tokenizer"
)

// PrintFailedCases re-renders level-0 mismatches with the detokenized text of
// both sides. Presentation only; pass/fail decisions belong to the mismatch
// list itself.
func PrintFailedCases(w io.Writer, failed []Mismatch, testTokens, refTokens [][]int, tok tokenizer.Tokenizer) error {
	for _, m := range failed {
		if m.Seq < 0 || m.Pos < 0 ||
			m.Seq >= len(testTokens) || m.Seq >= len(refTokens) ||
			m.Pos >= len(testTokens[m.Seq]) || m.Pos >= len(refTokens[m.Seq]) {
			return fmt.Errorf("mismatch (%d,%d) out of range", m.Seq, m.Pos)
		}
		testID := testTokens[m.Seq][m.Pos]
		refID := refTokens[m.Seq][m.Pos]

		testStr, err := tok.Decode([]int{testID})
		if err != nil {
			return fmt.Errorf("decoding test token %d: %w", testID, err)
		}
		refStr, err := tok.Decode([]int{refID})
		if err != nil {
			return fmt.Errorf("decoding reference token %d: %w", refID, err)
		}

		if _, err := fmt.Fprintf(w, "In sequence %d/%d, token %d, test outputs %d instead of %d -- test=%q -- reference=%q\n",
			m.Seq+1, len(testTokens), m.Pos, testID, refID, testStr, refStr); err != nil {
			return err
		}
	}
	return nil
}
