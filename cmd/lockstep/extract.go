package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/lockstepml/lockstep/internal/decode"
	"github.com/lockstepml/lockstep/internal/extract"
	"github.com/lockstepml/lockstep/internal/hooks"
	"github.com/lockstepml/lockstep/internal/tokenizer"
	"github.com/lockstepml/lockstep/internal/toy"
	"github.com/lockstepml/lockstep/internal/validation"
	"github.com/lockstepml/lockstep/pkg/vrf"
)

func extractCmd() *cli.Command {
	var (
		prompts       string
		outputDir     string
		format        string
		captureLogits bool
		forceFrom     string
		maxNewTokens  int64
		batchSize     int64
		attnMode      string
		pageSize      int64
		timing        string
		eosToken      int64
		modelID       string
		dtype         string
		vocab         int64
		hidden        int64
		seed          int64
	)

	return &cli.Command{
		Name:  "extract",
		Usage: "Run batch generation and write one record file per sequence",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "prompts",
				Aliases:     []string{"p"},
				Usage:       "path or glob pattern for prompt text files",
				Destination: &prompts,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "directory to write record files into",
				Value:       "validation-info",
				Destination: &outputDir,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "record file format (vrf, json)",
				Value:       "vrf",
				Destination: &format,
			},
			&cli.BoolFlag{
				Name:        "logits",
				Usage:       "record one logits row per generated step",
				Destination: &captureLogits,
			},
			&cli.StringFlag{
				Name:        "force-from",
				Usage:       "directory of reference records whose generated tokens are forced back in",
				Destination: &forceFrom,
			},
			&cli.Int64Flag{
				Name:        "max-new-tokens",
				Aliases:     []string{"n"},
				Usage:       "number of tokens to generate per sequence",
				Value:       16,
				Destination: &maxNewTokens,
			},
			&cli.Int64Flag{
				Name:        "batch-size",
				Aliases:     []string{"b"},
				Usage:       "number of prompt sequences",
				Value:       1,
				Destination: &batchSize,
			},
			&cli.StringFlag{
				Name:        "attn-mode",
				Usage:       "attention mode (sdpa, spyre_paged)",
				Value:       "sdpa",
				Destination: &attnMode,
			},
			&cli.Int64Flag{
				Name:        "page-size",
				Usage:       "cache page size, paged attention modes only",
				Value:       64,
				Destination: &pageSize,
			},
			&cli.StringFlag{
				Name:        "timing",
				Usage:       "timing capture (off, e2e, per-token)",
				Value:       "off",
				Destination: &timing,
			},
			&cli.Int64Flag{
				Name:        "eos-token",
				Usage:       "stop a sequence on this token id (-1 = disabled)",
				Value:       -1,
				Destination: &eosToken,
			},
			&cli.StringFlag{
				Name:        "model-id",
				Usage:       "model identifier stamped into record metadata",
				Value:       "toy/lm",
				Destination: &modelID,
			},
			&cli.StringFlag{
				Name:        "dtype",
				Usage:       "compute dtype stamped into record metadata",
				Value:       "fp32",
				Destination: &dtype,
			},
			&cli.Int64Flag{
				Name:        "vocab",
				Usage:       "toy model vocabulary size",
				Value:       256,
				Destination: &vocab,
			},
			&cli.Int64Flag{
				Name:        "hidden",
				Usage:       "toy model hidden width",
				Value:       64,
				Destination: &hidden,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "toy model weight seed",
				Destination: &seed,
			},
		}, loggingFlags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := LoadConfig()
			applyLoggingConfig(c, cfg)
			applyExtractConfig(c, cfg, &outputDir, &maxNewTokens, &batchSize, &attnMode, &pageSize, &seed)
			log := newLogger()

			if prompts == "" {
				return cli.Exit("error: --prompts is required", 1)
			}
			timingMode, err := parseTiming(timing)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			tok := tokenizer.NewByteLevel(false, false)
			promptInfo, err := validation.Load(prompts, validation.KindText, int(batchSize), tok)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load prompts: %v", err), 1)
			}
			inputIDs := tokenizer.PadLeft(promptInfo.TokensBySequence(), 0)
			promptLen := len(inputIDs[0])

			hook, err := buildHook(captureLogits, forceFrom, int(batchSize), promptLen)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			model := toy.NewBatch(toy.NewLM(int(vocab), int(hidden), seed), int(batchSize))
			runCfg := extract.Config{
				AttnMode:     attnMode,
				MaxNewTokens: int(maxNewTokens),
				EOSTokenID:   int(eosToken),
				Timing:       timingMode,
				PageSize:     int(pageSize),
			}

			info, err := extract.Run(ctx, log, model, inputIDs, hook, runCfg)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: generation: %v", err), 1)
			}
			info.Meta = &vrf.Meta{
				ModelID:      modelID,
				DType:        dtype,
				Backend:      "cpu",
				SeqLength:    promptLen,
				MaxNewTokens: int(maxNewTokens),
			}

			switch format {
			case "vrf":
				err = info.Save(outputDir)
			case "json":
				err = info.SaveJSON(outputDir)
			default:
				return cli.Exit(fmt.Sprintf("error: unknown record format %q", format), 1)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: save records: %v", err), 1)
			}
			log.Info("records written",
				"dir", outputDir,
				"sequences", info.Len(),
				"format", format,
				"logits", captureLogits,
			)
			return nil
		},
	}
}

// buildHook assembles the per-step hook for a run. Forced tokens come from a
// previous run's records; everything past the prompt positions is replayed.
func buildHook(captureLogits bool, forceFrom string, batch, promptLen int) (hooks.StepHook, error) {
	if forceFrom == "" {
		if captureLogits {
			return hooks.NewExtractor(), nil
		}
		return nil, nil
	}

	ref, err := validation.Load(forceFrom, validation.KindTokens, batch, nil)
	if err != nil {
		return nil, fmt.Errorf("loading forced tokens: %w", err)
	}
	forced := make([][]int, ref.Len())
	for i, row := range ref.TokensBySequence() {
		if len(row) <= promptLen {
			return nil, fmt.Errorf("reference sequence %d has no tokens beyond the %d prompt positions", i, promptLen)
		}
		forced[i] = row[promptLen:]
	}
	if captureLogits {
		return hooks.NewGoldenToken(forced)
	}
	return hooks.NewStaticInjector(forced)
}

func parseTiming(s string) (decode.TimingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return decode.TimingOff, nil
	case "e2e":
		return decode.TimingE2E, nil
	case "per-token", "per_token":
		return decode.TimingPerStep, nil
	}
	return decode.TimingOff, fmt.Errorf("unknown timing mode %q", s)
}
