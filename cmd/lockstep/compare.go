package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/lockstepml/lockstep/internal/diverge"
	"github.com/lockstepml/lockstep/internal/tokenizer"
	"github.com/lockstepml/lockstep/internal/validation"
)

func compareCmd() *cli.Command {
	var (
		refPath   string
		testPath  string
		kindName  string
		batchSize int64
		topK      int64
		lossName  string
		threshold float64
		stats     bool
		strict    bool
	)

	return &cli.Command{
		Name:  "compare",
		Usage: "Compare a test run's records against a reference run",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "reference",
				Aliases:     []string{"r"},
				Usage:       "path or glob pattern for reference records",
				Destination: &refPath,
			},
			&cli.StringFlag{
				Name:        "test",
				Aliases:     []string{"t"},
				Usage:       "path or glob pattern for test records",
				Destination: &testPath,
			},
			&cli.StringFlag{
				Name:        "kind",
				Usage:       "record kind (tokens, logits)",
				Value:       "tokens",
				Destination: &kindName,
			},
			&cli.Int64Flag{
				Name:        "batch-size",
				Aliases:     []string{"b"},
				Usage:       "number of sequences to compare",
				Value:       1,
				Destination: &batchSize,
			},
			&cli.Int64Flag{
				Name:        "top-k",
				Usage:       "score only the k highest reference logits per step (0 = full rows)",
				Destination: &topK,
			},
			&cli.StringFlag{
				Name:        "loss",
				Usage:       "top-k shortlist loss (ce, mse)",
				Value:       "ce",
				Destination: &lossName,
			},
			&cli.Float64Flag{
				Name:        "threshold",
				Usage:       "flag level 1 metrics above this value",
				Destination: &threshold,
			},
			&cli.BoolFlag{
				Name:        "stats",
				Usage:       "print per-run divergence statistics (abs error, cosine, ranking agreement)",
				Destination: &stats,
			},
			&cli.BoolFlag{
				Name:        "strict",
				Usage:       "exit nonzero when any mismatch or flagged metric is found",
				Destination: &strict,
			},
		}, loggingFlags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			applyLoggingConfig(c, cfg)
			applyCompareConfig(c, cfg, &batchSize, &topK, &threshold)
			log := newLogger()

			if refPath == "" || testPath == "" {
				return cli.Exit("error: --reference and --test are required", 1)
			}
			kind, err := validation.ParseKind(kindName)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if kind == validation.KindText {
				return cli.Exit("error: compare reads token or logits records, not text", 1)
			}

			ref, err := validation.Load(refPath, kind, int(batchSize), nil)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load reference records: %v", err), 1)
			}
			test, err := validation.Load(testPath, kind, int(batchSize), nil)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load test records: %v", err), 1)
			}

			testTokens := test.TokensBySequence()
			refTokens := ref.TokensBySequence()
			failed := diverge.Level0(testTokens, refTokens)
			if len(failed) == 0 {
				fmt.Println("level 0: all token paths match")
			} else {
				fmt.Printf("level 0: %d token mismatches\n", len(failed))
				tok := tokenizer.NewByteLevel(false, false)
				if err := diverge.PrintFailedCases(os.Stdout, failed, testTokens, refTokens, tok); err != nil {
					return cli.Exit(fmt.Sprintf("error: print failed cases: %v", err), 1)
				}
			}

			flagged := 0
			if kind == validation.KindLogits {
				cmp, err := buildComparator(int(topK), lossName)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				metrics, err := diverge.CaptureLevel1(ref.LogitsBySequence(), test.LogitsBySequence(), cmp)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: level 1: %v", err), 1)
				}
				mean, maxv := summarizeMetrics(metrics)
				fmt.Printf("level 1: %d metrics, mean=%g max=%g\n", len(metrics), mean, maxv)

				if c.IsSet("threshold") || cfg.Threshold != nil {
					failedMetrics := diverge.FilterFailed(metrics, func(v float64) bool { return v > threshold }, log)
					flagged = len(failedMetrics)
					fmt.Printf("level 1: %d of %d metrics above %g\n", flagged, len(metrics), threshold)
				}

				if stats {
					k := int(topK)
					if k == 0 {
						k = 5
					}
					sum, err := diverge.CaptureStats(ref.LogitsBySequence(), test.LogitsBySequence(), k)
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: stats: %v", err), 1)
					}
					top1Pct := 0.0
					if sum.Steps > 0 {
						top1Pct = 100 * float64(sum.Top1Match) / float64(sum.Steps)
					}
					fmt.Printf("stats: steps=%d max_abs=%.6g mean_abs=%.6g rmse=%.6g cos=%.6g top1_match=%.2f%% top%d_overlap=%.2f\n",
						sum.Steps, sum.MaxAbs, sum.MeanAbs, sum.RMSE, sum.Cosine, top1Pct, k, sum.TopKOverlap)
				}
			}

			if strict && (len(failed) > 0 || flagged > 0) {
				return cli.Exit("comparison failed", 1)
			}
			return nil
		},
	}
}

// buildComparator maps the top-k and loss flags onto a comparator. k == 0
// keeps the default full-row cross entropy.
func buildComparator(k int, lossName string) (diverge.Comparator, error) {
	if k == 0 {
		return nil, nil
	}
	switch lossName {
	case "ce":
		return diverge.TopKLoss(k, diverge.CrossEntropyLoss), nil
	case "mse":
		return diverge.TopKLoss(k, diverge.MeanSquaredError), nil
	}
	return nil, fmt.Errorf("unknown loss %q", lossName)
}

func summarizeMetrics(metrics []diverge.Metric) (mean, maxv float64) {
	if len(metrics) == 0 {
		return 0, 0
	}
	maxv = metrics[0].Value
	var sum float64
	for _, m := range metrics {
		sum += m.Value
		if m.Value > maxv {
			maxv = m.Value
		}
	}
	return sum / float64(len(metrics)), maxv
}
