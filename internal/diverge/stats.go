package diverge

import (
	"fmt"
	"math"

	"github.com/lockstepml/lockstep/internal/tensor"
)

// RowStats describes how far apart two logits rows are beyond a single loss
// value: absolute error, angle, and ranking agreement. Ranking fields matter
// most in practice; a run can drift numerically while still picking the same
// tokens.
type RowStats struct {
	MaxAbs      float64
	MeanAbs     float64
	RMSE        float64
	Cosine      float64
	Top1Ref     int
	Top1Test    int
	Top1Match   bool
	TopKOverlap int
	Width       int
}

// DiffRow computes RowStats for one aligned position. k sets the shortlist
// size for the overlap count and is clamped to the row width; k < 2 skips the
// overlap entirely.
func DiffRow(ref, test []float32, k int) (RowStats, error) {
	if len(ref) != len(test) {
		return RowStats{}, fmt.Errorf("%w: %d vs %d", ErrRowMismatch, len(ref), len(test))
	}
	n := len(ref)
	if n == 0 {
		return RowStats{}, fmt.Errorf("%w: empty rows", ErrRowMismatch)
	}

	var (
		sumAbs float64
		sumSq  float64
		dot    float64
		normR  float64
		normT  float64
		maxAbs float64
	)
	top1Ref, top1Test := 0, 0
	maxRef, maxTest := ref[0], test[0]
	for i := 0; i < n; i++ {
		r := float64(ref[i])
		t := float64(test[i])
		diff := math.Abs(r - t)
		sumAbs += diff
		sumSq += diff * diff
		if diff > maxAbs {
			maxAbs = diff
		}
		dot += r * t
		normR += r * r
		normT += t * t
		if ref[i] > maxRef {
			maxRef = ref[i]
			top1Ref = i
		}
		if test[i] > maxTest {
			maxTest = test[i]
			top1Test = i
		}
	}
	cos := 0.0
	if normR > 0 && normT > 0 {
		cos = dot / (math.Sqrt(normR) * math.Sqrt(normT))
	}

	overlap := 0
	if k > n {
		k = n
	}
	if k > 1 {
		refTop := topKIndices(ref, k)
		testTop := topKIndices(test, k)
		seen := make(map[int]struct{}, len(refTop))
		for _, idx := range refTop {
			seen[idx] = struct{}{}
		}
		for _, idx := range testTop {
			if _, ok := seen[idx]; ok {
				overlap++
			}
		}
	}

	return RowStats{
		MaxAbs:      maxAbs,
		MeanAbs:     sumAbs / float64(n),
		RMSE:        math.Sqrt(sumSq / float64(n)),
		Cosine:      cos,
		Top1Ref:     top1Ref,
		Top1Test:    top1Test,
		Top1Match:   top1Ref == top1Test,
		TopKOverlap: overlap,
		Width:       n,
	}, nil
}

// StatsSummary aggregates RowStats across every aligned position of a run
// pair. Mean fields average the per-row values; MaxAbs keeps the worst row.
type StatsSummary struct {
	Steps       int
	MaxAbs      float64
	MeanAbs     float64
	RMSE        float64
	Cosine      float64
	Top1Match   int
	TopKOverlap float64
}

// CaptureStats walks the same alignment as CaptureLevel1 and accumulates
// RowStats into a run-level summary.
func CaptureStats(ref, test []*tensor.Mat, k int) (StatsSummary, error) {
	var sum StatsSummary
	for s := 0; s < min(len(ref), len(test)); s++ {
		if ref[s] == nil || test[s] == nil {
			return StatsSummary{}, fmt.Errorf("sequence %d: %w", s, ErrNoLogits)
		}
		for p := 0; p < min(ref[s].R, test[s].R); p++ {
			stats, err := DiffRow(ref[s].Row(p), test[s].Row(p), k)
			if err != nil {
				return StatsSummary{}, fmt.Errorf("sequence %d position %d: %w", s, p, err)
			}
			sum.Steps++
			if stats.MaxAbs > sum.MaxAbs {
				sum.MaxAbs = stats.MaxAbs
			}
			sum.MeanAbs += stats.MeanAbs
			sum.RMSE += stats.RMSE
			sum.Cosine += stats.Cosine
			if stats.Top1Match {
				sum.Top1Match++
			}
			sum.TopKOverlap += float64(stats.TopKOverlap)
		}
	}
	if sum.Steps > 0 {
		sum.MeanAbs /= float64(sum.Steps)
		sum.RMSE /= float64(sum.Steps)
		sum.Cosine /= float64(sum.Steps)
		sum.TopKOverlap /= float64(sum.Steps)
	}
	return sum, nil
}
