package hooks

import (
	"errors"
	"fmt"

	"github.com/lockstepml/lockstep/internal/tensor"
)

// ErrRaggedRows reports forced-token rows of unequal length.
var ErrRaggedRows = errors.New("forced token rows have unequal lengths")

// StaticInjector overwrites each step's proposed tokens with a fixed table.
// It ignores the logits entirely.
type StaticInjector struct {
	// step-major: steps[step][seq], transposed once at construction so each
	// OnStep is a single row copy.
	steps [][]int
}

// NewStaticInjector builds an injector from per-sequence token rows
// ([seq][step]). All rows must have the same length; the table is transposed
// to step-major form here.
func NewStaticInjector(perSeq [][]int) (*StaticInjector, error) {
	if len(perSeq) == 0 {
		return nil, fmt.Errorf("hooks: no forced token rows")
	}
	steps := len(perSeq[0])
	for i, row := range perSeq {
		if len(row) != steps {
			return nil, fmt.Errorf("%w: row 0 has %d, row %d has %d",
				ErrRaggedRows, steps, i, len(row))
		}
	}
	table := make([][]int, steps)
	for s := range table {
		table[s] = make([]int, len(perSeq))
		for i := range perSeq {
			table[s][i] = perSeq[i][s]
		}
	}
	return &StaticInjector{steps: table}, nil
}

// Steps returns how many decode steps the injector can force.
func (s *StaticInjector) Steps() int { return len(s.steps) }

func (s *StaticInjector) OnStep(step int, _ *tensor.Mat, next []int, kc Context) ([]int, Context) {
	if step < 0 || step >= len(s.steps) {
		panic(fmt.Sprintf("hooks: injection step %d outside forced table of %d steps", step, len(s.steps)))
	}
	row := s.steps[step]
	if len(row) != len(next) {
		panic(fmt.Sprintf("hooks: forced row has %d sequences, step has %d", len(row), len(next)))
	}
	copy(next, row)
	return next, kc
}

// GoldenToken records the model's logits for a step and then forces the next
// token, so the walked path is identical across runs while the captured
// logits remain the model's own. Extraction always happens before injection.
type GoldenToken struct {
	extract *Extractor
	inject  *StaticInjector
}

// NewGoldenToken builds the composite hook from per-sequence forced rows
// ([seq][step]).
func NewGoldenToken(perSeq [][]int) (*GoldenToken, error) {
	inject, err := NewStaticInjector(perSeq)
	if err != nil {
		return nil, err
	}
	return &GoldenToken{extract: NewExtractor(), inject: inject}, nil
}

func (g *GoldenToken) OnStep(step int, logits *tensor.Mat, next []int, kc Context) ([]int, Context) {
	next, kc = g.extract.OnStep(step, logits, next, kc)
	return g.inject.OnStep(step, logits, next, kc)
}

func (g *GoldenToken) Recorded() *Capture { return g.extract.Recorded() }
