package main

import (
	"testing"

	"github.com/lockstepml/lockstep/internal/diverge"
)

func TestBuildComparator(t *testing.T) {
	t.Run("zero k keeps the default", func(t *testing.T) {
		cmp, err := buildComparator(0, "ce")
		if err != nil {
			t.Fatalf("buildComparator: %v", err)
		}
		if cmp != nil {
			t.Fatal("expected nil comparator for k=0")
		}
	})

	t.Run("shortlist losses score identical rows as zero or entropy", func(t *testing.T) {
		row := []float32{3, 1, 2, 0}

		mse, err := buildComparator(2, "mse")
		if err != nil {
			t.Fatalf("buildComparator(mse): %v", err)
		}
		got, err := mse(row, row)
		if err != nil {
			t.Fatalf("mse comparator: %v", err)
		}
		if got != 0 {
			t.Fatalf("mse on identical rows = %v, want 0", got)
		}

		ce, err := buildComparator(2, "ce")
		if err != nil {
			t.Fatalf("buildComparator(ce): %v", err)
		}
		got, err = ce(row, row)
		if err != nil {
			t.Fatalf("ce comparator: %v", err)
		}
		if got <= 0 {
			t.Fatalf("ce on identical rows = %v, want the shortlist entropy > 0", got)
		}
	})

	t.Run("unknown loss errors", func(t *testing.T) {
		if _, err := buildComparator(2, "cosine"); err == nil {
			t.Fatal("expected error for unknown loss")
		}
	})
}

func TestSummarizeMetrics(t *testing.T) {
	mean, maxv := summarizeMetrics(nil)
	if mean != 0 || maxv != 0 {
		t.Fatalf("empty metrics = (%v, %v), want (0, 0)", mean, maxv)
	}

	metrics := []diverge.Metric{
		{Seq: 0, Pos: 0, Value: 1},
		{Seq: 0, Pos: 1, Value: 3},
		{Seq: 1, Pos: 0, Value: 2},
	}
	mean, maxv = summarizeMetrics(metrics)
	if mean != 2 || maxv != 3 {
		t.Fatalf("summarizeMetrics = (%v, %v), want (2, 3)", mean, maxv)
	}
}
