package demux

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/grailbio/fqdemux/internal/align"
	"github.com/grailbio/fqdemux/internal/barcode"
	"github.com/grailbio/fqdemux/internal/fastq"
)

func writeInputPair(t *testing.T, ctx context.Context, prefix string, seqs ...string) InputPair {
	t.Helper()
	pw, err := fastq.CreateGzipPair(ctx, prefix)
	if err != nil {
		t.Fatal(err)
	}
	for _, seq := range seqs {
		r1 := &fastq.Read{Header: "read", Sequence: seq, Quality: fillQuality(len(seq))}
		r2 := &fastq.Read{Header: "read", Sequence: seq, Quality: fillQuality(len(seq))}
		if err := pw.Write(r1, r2); err != nil {
			t.Fatal(err)
		}
	}
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}
	r1Path, r2Path := fastq.PairedEndFilenames(prefix)
	return InputPair{R1: r1Path, R2: r2Path}
}

func fillQuality(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'I'
	}
	return string(b)
}

func TestPipelineRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	input := writeInputPair(t, ctx, filepath.Join(dir, "in"),
		"AAAACGTACGTACGTACGTACGT", // matches adapter AAAA
		"AAAACGTACGTACGTACGTACGT",
		"GGGGGGGGGGGGGGGGGGGGGGG", // no match
	)

	table := barcode.New([]barcode.Pair{{Barcode: "AAAA", Prefix: filepath.Join(dir, "sampleA")}},
		filepath.Join(dir, "unmatched"))
	aligner, err := align.New(1, 10)
	if err != nil {
		t.Fatal(err)
	}
	processor := NewInlineProcessor(table, aligner, 0.2)

	result, err := Run(ctx, Config{
		Inputs:     []InputPair{input},
		Table:      table,
		Processor:  processor,
		WorkDir:    dir,
		NumWorkers: 2,
		BatchSize:  1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Counters["total"] != 3 {
		t.Errorf("total = %d, want 3", result.Counters["total"])
	}
	if result.Counters["matched"] != 2 {
		t.Errorf("matched = %d, want 2", result.Counters["matched"])
	}
	if result.Counters["unmatched"] != 1 {
		t.Errorf("unmatched = %d, want 1", result.Counters["unmatched"])
	}

	r1Path, r2Path := fastq.PairedEndFilenames(filepath.Join(dir, "sampleA"))
	scanner, closeFn, err := fastq.OpenGzipPair(ctx, r1Path, r2Path)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()
	var n int
	var pair fastq.ReadPair
	for scanner.Scan(&pair) {
		n++
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("got %d records in final sampleA output, want 2", n)
	}
}
