package diverge

import "testing"

func TestLevel0TokenDisagreements(t *testing.T) {
	ref := [][]int{{1, 2, 3, 4}, {1, 2, 9, 4}}
	test := [][]int{{1, 2, 3, 4}, {1, 2, 3, 4}}

	failed := Level0(test, ref)
	if len(failed) != 1 {
		t.Fatalf("failures = %v, want exactly one", failed)
	}
	if failed[0].Seq != 1 || failed[0].Pos != 2 {
		t.Fatalf("failure at (%d,%d), want (1,2)", failed[0].Seq, failed[0].Pos)
	}
}

func TestLevel0IdenticalRunsAgree(t *testing.T) {
	tokens := [][]int{{5, 6, 7}, {8, 9}}
	if failed := Level0(tokens, tokens); len(failed) != 0 {
		t.Fatalf("identical runs reported failures: %v", failed)
	}
}

func TestLevel0StopsAtShorterSide(t *testing.T) {
	t.Run("shorter sequence", func(t *testing.T) {
		test := [][]int{{1, 2}}
		ref := [][]int{{1, 2, 3}}
		if failed := Level0(test, ref); len(failed) != 0 {
			t.Fatalf("trailing reference tokens should not be compared: %v", failed)
		}
	})

	t.Run("shorter batch", func(t *testing.T) {
		test := [][]int{{1, 2}}
		ref := [][]int{{1, 2}, {3, 4}}
		if failed := Level0(test, ref); len(failed) != 0 {
			t.Fatalf("unpaired reference sequence should not be compared: %v", failed)
		}
	})
}

func TestLevel0OrderedBySequenceThenPosition(t *testing.T) {
	test := [][]int{{0, 1}, {2, 3}}
	ref := [][]int{{9, 1}, {2, 9}}

	failed := Level0(test, ref)
	want := []Mismatch{{Seq: 0, Pos: 0}, {Seq: 1, Pos: 1}}
	if len(failed) != len(want) {
		t.Fatalf("failures = %v, want %v", failed, want)
	}
	for i := range want {
		if failed[i] != want[i] {
			t.Fatalf("failures = %v, want %v", failed, want)
		}
	}
}
