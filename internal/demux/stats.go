package demux

import (
	"context"
	"encoding/csv"
	"fmt"

	"github.com/grailbio/base/file"
)

// WriteStats emits the per-adapter summary CSV described in spec.md §4.7:
// one header row and one row per adapter in table order, derived from the
// merged counter map produced by Run.
//
// The header's "<tag>" placeholder (spec.md §4.7) names the generic
// matched/unmatched split rather than a fixed string; this package spells
// it out as "matched"/"unmatched" (see DESIGN.md, Open Question: StatsWriter
// header naming).
//
// The "_percent" columns are raw fractions (count/total), not scaled by
// 100 — the column names are inherited as-is from the original tool, whose
// save_statistics emits r1/total with no percent scaling despite the name.
func WriteStats(ctx context.Context, path, sample string, adapters []string, counters Counters) (string, error) {
	total, ok := counters["total"]
	if !ok {
		return "", ErrMissingCounter
	}
	unmatched, ok := counters["unmatched"]
	if !ok {
		return "", ErrMissingCounter
	}
	if total == 0 {
		return "no output", nil
	}

	f, err := file.Create(ctx, path)
	if err != nil {
		return "", err
	}
	w := csv.NewWriter(f.Writer(ctx))

	header := []string{
		"sample", "barcode", "read1_percent", "read2_percent",
		"total_percent_matched", "total_reads", "matched_reads", "unmatched_reads",
	}
	if err := w.Write(header); err != nil {
		f.Close(ctx)
		return "", err
	}

	for _, adapter := range adapters {
		row := []string{
			sample,
			adapter,
			formatFraction(counters[adapter+"_1"], total),
			formatFraction(counters[adapter+"_2"], total),
			formatFraction(counters[adapter], total),
			fmt.Sprintf("%d", total),
			fmt.Sprintf("%d", counters[adapter]),
			fmt.Sprintf("%d", unmatched),
		}
		if err := w.Write(row); err != nil {
			f.Close(ctx)
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close(ctx)
		return "", err
	}
	if err := f.Close(ctx); err != nil {
		return "", err
	}
	return path, nil
}

func formatFraction(count, total uint64) string {
	return fmt.Sprintf("%.4f", float64(count)/float64(total))
}
