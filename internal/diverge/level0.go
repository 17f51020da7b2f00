// Package diverge compares a test generation run against a reference run.
// Level 0 is exact token agreement; level 1 scores the logits distributions
// at each aligned position with a pluggable comparator. Findings are data
// returned to the caller, never errors.
package diverge

// Mismatch identifies one level-0 disagreement.
type Mismatch struct {
	Seq int
	Pos int
}

// Level0 compares test tokens against reference tokens pairwise by position.
// Comparison stops at the shorter side of each pair, and at the shorter of
// the two batches. Integer equality only, no tolerance.
func Level0(test, ref [][]int) []Mismatch {
	var failed []Mismatch
	for s := 0; s < min(len(test), len(ref)); s++ {
		ts, rs := test[s], ref[s]
		for p := 0; p < min(len(ts), len(rs)); p++ {
			if ts[p] != rs[p] {
				failed = append(failed, Mismatch{Seq: s, Pos: p})
			}
		}
	}
	return failed
}
