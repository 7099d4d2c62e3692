package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/grailbio/fqdemux/internal/align"
	"github.com/grailbio/fqdemux/internal/barcode"
	"github.com/grailbio/fqdemux/internal/demux"
)

func newInlineCmd() *cobra.Command {
	var (
		r1, r2          []string
		barcodeSpecs    []string
		unmatchedPrefix string
		statsPath       string
		sampleName      string
		errorRate       float64
		score, penalty  int
		workers         int
		workDir         string
	)

	cmd := &cobra.Command{
		Use:     "demux-inline",
		Aliases: []string{"demux_inline"},
		Short:   "Demultiplex by trimming a 5' adapter found via alignment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(r1) != len(r2) {
				return fmt.Errorf("demux-inline: --r1 and --r2 must list the same number of files")
			}
			if workers < 1 {
				workers = runtime.NumCPU()
			}
			if workDir == "" {
				workDir = "."
			}

			pairs := barcode.ParseSpecs(barcodeSpecs)
			table := barcode.New(pairs, unmatchedPrefix)

			if err := demux.ValidateConfig(errorRate, table.Adapters); err != nil {
				return err
			}
			aligner, err := align.New(score, penalty)
			if err != nil {
				return err
			}
			processor := demux.NewInlineProcessor(table, aligner, errorRate)

			ctx := context.Background()
			result, err := demux.Run(ctx, demux.Config{
				Inputs:     inputPairs(r1, r2),
				Table:      table,
				Processor:  processor,
				WorkDir:    workDir,
				NumWorkers: workers,
			})
			if err != nil {
				return fmt.Errorf("demux-inline: %w", err)
			}

			return reportStats(ctx, statsPath, sampleName, table.Adapters, result.Counters)
		},
	}

	cmd.Flags().StringArrayVar(&r1, "r1", nil, "R1 input FASTQ(.gz) files")
	cmd.Flags().StringArrayVar(&r2, "r2", nil, "R2 input FASTQ(.gz) files")
	cmd.Flags().StringArrayVar(&barcodeSpecs, "barcode", nil, "TOKEN(S)=PREFIX or bare TOKEN adapter spec")
	cmd.Flags().StringVar(&unmatchedPrefix, "unmatched", "", "output prefix for unmatched pairs")
	cmd.Flags().StringVar(&statsPath, "stats", "", "path to write the stats CSV")
	cmd.Flags().StringVar(&sampleName, "name", "", "sample name recorded in the stats CSV")
	cmd.Flags().Float64Var(&errorRate, "error_rate", 0.2, "fraction of adapter length tolerated as edit distance")
	cmd.Flags().IntVar(&score, "score", 1, "alignment match score")
	cmd.Flags().IntVar(&penalty, "penalty", 10, "alignment mismatch/indel penalty")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (default: number of CPUs)")
	cmd.Flags().StringVar(&workDir, "workdir", "", "scratch directory for per-worker shards (default: current directory)")

	return cmd
}

func inputPairs(r1, r2 []string) []demux.InputPair {
	pairs := make([]demux.InputPair, len(r1))
	for i := range r1 {
		pairs[i] = demux.InputPair{R1: r1[i], R2: r2[i]}
	}
	return pairs
}

func reportStats(ctx context.Context, statsPath, sampleName string, adapters []string, counters demux.Counters) error {
	if statsPath == "" {
		return nil
	}
	out, err := demux.WriteStats(ctx, statsPath, sampleName, adapters, counters)
	if err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	color.Green("fqdemux: %d pairs processed, %d matched, %d unmatched (%s)",
		counters["total"], counters["matched"], counters["unmatched"], out)
	return nil
}
