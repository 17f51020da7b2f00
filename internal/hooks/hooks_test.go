package hooks

import (
	"errors"
	"testing"

	"github.com/lockstepml/lockstep/internal/tensor"
)

func stepLogits(rows ...[]float32) *tensor.Mat {
	var m tensor.Mat
	for _, r := range rows {
		m.AppendRow(r)
	}
	return &m
}

func TestExtractorAccumulates(t *testing.T) {
	ext := NewExtractor()

	next := []int{3, 7}
	kc := Context{"note": "keep"}

	got, kc2 := ext.OnStep(0, stepLogits([]float32{1, 2, 3}, []float32{4, 5, 6}), next, kc)
	if &got[0] != &next[0] {
		t.Fatalf("extractor replaced the token slice")
	}
	if got[0] != 3 || got[1] != 7 {
		t.Fatalf("extractor modified tokens: %v", got)
	}
	if kc2["note"] != "keep" {
		t.Fatalf("context not forwarded")
	}

	ext.OnStep(1, stepLogits([]float32{7, 8, 9}, []float32{10, 11, 12}), next, kc2)

	rec := ext.Recorded()
	if rec.Sequences() != 2 {
		t.Fatalf("Sequences() = %d, want 2", rec.Sequences())
	}
	if rec.Steps() != 2 {
		t.Fatalf("Steps() = %d, want 2", rec.Steps())
	}
	seq1 := rec.Logits(1)
	if seq1.R != 2 || seq1.C != 3 {
		t.Fatalf("sequence 1 logits shape %dx%d, want 2x3", seq1.R, seq1.C)
	}
	if seq1.Row(0)[0] != 4 || seq1.Row(1)[2] != 12 {
		t.Fatalf("sequence 1 logits rows wrong: %v / %v", seq1.Row(0), seq1.Row(1))
	}
}

func TestCaptureRejectsBatchChange(t *testing.T) {
	ext := NewExtractor()
	ext.OnStep(0, stepLogits([]float32{1}, []float32{2}), []int{0, 0}, nil)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when batch size changes mid-run")
		}
	}()
	ext.OnStep(1, stepLogits([]float32{1}), []int{0}, nil)
}

func TestStaticInjectorForcesTokens(t *testing.T) {
	// two sequences, three steps each
	inj, err := NewStaticInjector([][]int{{10, 11, 12}, {20, 21, 22}})
	if err != nil {
		t.Fatalf("new injector: %v", err)
	}
	if inj.Steps() != 3 {
		t.Fatalf("Steps() = %d, want 3", inj.Steps())
	}

	next := []int{1, 2}
	got, _ := inj.OnStep(1, nil, next, nil)
	if &got[0] != &next[0] {
		t.Fatalf("injector did not write in place")
	}
	if got[0] != 11 || got[1] != 21 {
		t.Fatalf("step 1 forced tokens = %v, want [11 21]", got)
	}
}

func TestStaticInjectorRejectsRaggedRows(t *testing.T) {
	_, err := NewStaticInjector([][]int{{1, 2}, {3}})
	if !errors.Is(err, ErrRaggedRows) {
		t.Fatalf("expected ErrRaggedRows, got %v", err)
	}
	if _, err := NewStaticInjector(nil); err == nil {
		t.Fatal("expected error for empty table")
	}
}

func TestStaticInjectorStepOutOfRange(t *testing.T) {
	inj, err := NewStaticInjector([][]int{{1}})
	if err != nil {
		t.Fatalf("new injector: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for step beyond forced table")
		}
	}()
	inj.OnStep(1, nil, []int{0}, nil)
}

// Forced path comes out exactly, and the capture holds the logits the model
// emitted along that path, not along its own argmax path.
func TestGoldenTokenForcedPathWithModelLogits(t *testing.T) {
	forced := [][]int{{5, 6, 7}}
	hook, err := NewGoldenToken(forced)
	if err != nil {
		t.Fatalf("new golden token: %v", err)
	}

	var walked []int
	kc := Context{}
	for step := 0; step < 3; step++ {
		// the "model" proposes a token that differs from the forced path
		logits := stepLogits([]float32{float32(step), float32(step) + 0.5})
		next := []int{99}
		next, kc = hook.OnStep(step, logits, next, kc)
		walked = append(walked, next[0])
	}

	for i, want := range forced[0] {
		if walked[i] != want {
			t.Fatalf("walked[%d] = %d, want forced %d", i, walked[i], want)
		}
	}

	var rec Recorder = hook
	captured := rec.Recorded()
	if captured.Steps() != 3 {
		t.Fatalf("captured steps = %d, want 3", captured.Steps())
	}
	if got := captured.Logits(0).Row(2)[1]; got != 2.5 {
		t.Fatalf("captured logit = %v, want 2.5", got)
	}
}

func TestFuncAdapter(t *testing.T) {
	calls := 0
	var h StepHook = Func(func(step int, logits *tensor.Mat, next []int, kc Context) ([]int, Context) {
		calls++
		next[0] = 42
		return next, kc
	})

	got, _ := h.OnStep(0, nil, []int{0}, nil)
	if calls != 1 || got[0] != 42 {
		t.Fatalf("func adapter not invoked correctly: calls=%d got=%v", calls, got)
	}
}

func TestRecorderCapability(t *testing.T) {
	// Compile-time capability checks used by the driver.
	var _ Recorder = (*Extractor)(nil)
	var _ Recorder = (*GoldenToken)(nil)
	var _ StepHook = (*StaticInjector)(nil)

	// StaticInjector must not satisfy Recorder.
	var h StepHook = mustInjector(t)
	if _, ok := h.(Recorder); ok {
		t.Fatal("StaticInjector should not expose a capture")
	}
}

func mustInjector(t *testing.T) *StaticInjector {
	t.Helper()
	inj, err := NewStaticInjector([][]int{{1}})
	if err != nil {
		t.Fatalf("new injector: %v", err)
	}
	return inj
}
