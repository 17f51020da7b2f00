package diverge

import (
	"fmt"
	"math"

	"github.com/lockstepml/lockstep/internal/logger"
	"github.com/lockstepml/lockstep/internal/tensor"
)

// Comparator scores the divergence between the reference and test logits rows
// at one generated position. Reference comes first.
type Comparator func(ref, test []float32) (float64, error)

// LossFn scores the shortlisted reference values against the test values
// gathered at the same indices.
type LossFn func(refVals, testVals []float64) (float64, error)

// Metric is one scored position.
type Metric struct {
	Seq   int
	Pos   int
	Value float64
}

// Predicate decides whether a metric value counts as a failure.
type Predicate func(float64) bool

// TopKLoss builds a comparator that shortlists the indices of the k largest
// reference values, gathers the same indices from the test row, and applies
// lossFn to the two value sets. The test row's own ranking never participates:
// the metric measures agreement on the reference's most probable
// continuations. Shortlist order is descending by value; equal values keep
// the lower index first.
func TopKLoss(k int, lossFn LossFn) Comparator {
	return func(ref, test []float32) (float64, error) {
		if len(ref) != len(test) {
			return 0, fmt.Errorf("%w: %d vs %d", ErrRowMismatch, len(ref), len(test))
		}
		if k <= 0 || k > len(ref) {
			return 0, fmt.Errorf("%w: k=%d over %d values", ErrBadTopK, k, len(ref))
		}
		idx := topKIndices(ref, k)
		refVals := make([]float64, k)
		testVals := make([]float64, k)
		for i, j := range idx {
			refVals[i] = float64(ref[j])
			testVals[i] = float64(test[j])
		}
		return lossFn(refVals, testVals)
	}
}

// CrossEntropy is the comparator CaptureLevel1 falls back to. It computes
// -sum(softmax(test) * logSoftmax(ref)) over the full row in float64: the
// test row is normalized into the target distribution while the reference
// row plays the predicted-logits role. The asymmetry is part of the contract
// rather than a general-purpose distance; callers wanting symmetric
// treatment supply their own Comparator.
func CrossEntropy(ref, test []float32) (float64, error) {
	if len(ref) != len(test) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrRowMismatch, len(ref), len(test))
	}
	if len(ref) == 0 {
		return 0, fmt.Errorf("%w: empty rows", ErrRowMismatch)
	}
	logRef := logSoftmax(ref)
	target := softmax(test)
	var sum float64
	for i := range logRef {
		sum += target[i] * logRef[i]
	}
	return -sum, nil
}

// CrossEntropyLoss adapts CrossEntropy to the LossFn shape so it can score a
// TopKLoss shortlist instead of a full row.
func CrossEntropyLoss(refVals, testVals []float64) (float64, error) {
	ref := make([]float32, len(refVals))
	test := make([]float32, len(testVals))
	for i, v := range refVals {
		ref[i] = float32(v)
	}
	for i, v := range testVals {
		test[i] = float32(v)
	}
	return CrossEntropy(ref, test)
}

// MeanSquaredError is a symmetric LossFn alternative.
func MeanSquaredError(refVals, testVals []float64) (float64, error) {
	if len(refVals) != len(testVals) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrRowMismatch, len(refVals), len(testVals))
	}
	if len(refVals) == 0 {
		return 0, fmt.Errorf("%w: empty value sets", ErrRowMismatch)
	}
	var sum float64
	for i := range refVals {
		d := refVals[i] - testVals[i]
		sum += d * d
	}
	return sum / float64(len(refVals)), nil
}

// CaptureLevel1 scores every aligned generated position between the
// reference and test runs. Alignment stops at the shorter batch and, within
// a pair, at the shorter step count. A nil comparator selects CrossEntropy.
// Metrics come back ordered by sequence, then position.
func CaptureLevel1(ref, test []*tensor.Mat, cmp Comparator) ([]Metric, error) {
	if cmp == nil {
		cmp = CrossEntropy
	}
	var out []Metric
	for s := 0; s < min(len(ref), len(test)); s++ {
		if ref[s] == nil || test[s] == nil {
			return nil, fmt.Errorf("sequence %d: %w", s, ErrNoLogits)
		}
		for p := 0; p < min(ref[s].R, test[s].R); p++ {
			v, err := cmp(ref[s].Row(p), test[s].Row(p))
			if err != nil {
				return nil, fmt.Errorf("sequence %d position %d: %w", s, p, err)
			}
			out = append(out, Metric{Seq: s, Pos: p, Value: v})
		}
	}
	return out, nil
}

// FilterFailed keeps the metrics the predicate flags. A non-nil log gets one
// line per kept metric; sequence numbers in the log are 1-based.
func FilterFailed(metrics []Metric, fail Predicate, log logger.Logger) []Metric {
	var failed []Metric
	for _, m := range metrics {
		if !fail(m.Value) {
			continue
		}
		failed = append(failed, m)
		if log != nil {
			log.Info("level 1 failure", "sequence", m.Seq+1, "token", m.Pos, "metric", m.Value)
		}
	}
	return failed
}

// topKIndices selects the indices of the k largest values by insertion,
// descending by value with ties keeping the lower index first. O(n*k),
// fine for the small k this package sees.
func topKIndices(x []float32, k int) []int {
	idx := make([]int, 0, k+1)
	val := make([]float32, 0, k+1)
	for i, v := range x {
		pos := len(val)
		for pos > 0 && val[pos-1] < v {
			pos--
		}
		if pos >= k {
			continue
		}
		idx = append(idx, 0)
		val = append(val, 0)
		copy(idx[pos+1:], idx[pos:])
		copy(val[pos+1:], val[pos:])
		idx[pos] = i
		val[pos] = v
		if len(val) > k {
			idx = idx[:k]
			val = val[:k]
		}
	}
	return idx
}

func softmax(x []float32) []float64 {
	maxv := float64(x[0])
	for _, v := range x[1:] {
		if float64(v) > maxv {
			maxv = float64(v)
		}
	}
	out := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		e := math.Exp(float64(v) - maxv)
		out[i] = e
		sum += e
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func logSoftmax(x []float32) []float64 {
	maxv := float64(x[0])
	for _, v := range x[1:] {
		if float64(v) > maxv {
			maxv = float64(v)
		}
	}
	var sum float64
	for _, v := range x {
		sum += math.Exp(float64(v) - maxv)
	}
	lse := maxv + math.Log(sum)
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v) - lse
	}
	return out
}
