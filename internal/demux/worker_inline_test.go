package demux

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/grailbio/fqdemux/internal/align"
	"github.com/grailbio/fqdemux/internal/barcode"
	"github.com/grailbio/fqdemux/internal/fastq"
)

func newInlineFixture(t *testing.T) (*InlineProcessor, *Writer) {
	t.Helper()
	table := barcode.New([]barcode.Pair{{Barcode: "AAAA", Prefix: "sampleA"}}, "unmatched")
	aligner, err := align.New(1, 10)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	w, err := New(context.Background(), table, func(prefix string) string { return filepath.Join(dir, prefix) })
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	return NewInlineProcessor(table, aligner, 0.2), w
}

func TestInlineProcessMatch(t *testing.T) {
	p, w := newInlineFixture(t)
	counters := Counters{}

	pair := &fastq.ReadPair{
		R1: &fastq.Read{Header: "r 1:N:0:X", Sequence: "AAAACGTACGTACGTACGTACGT", Quality: "IIIIIIIIIIIIIIIIIIIIIII"},
		R2: &fastq.Read{Header: "r 2:N:0:X", Sequence: "GGGGGGGGGGGGGGGGGGGGGGG", Quality: "IIIIIIIIIIIIIIIIIIIIIII"},
	}
	if err := p.Process(pair, w, counters); err != nil {
		t.Fatal(err)
	}
	if counters["AAAA"] != 1 {
		t.Errorf("AAAA = %d, want 1", counters["AAAA"])
	}
	if counters["AAAA_1"] != 1 {
		t.Errorf("AAAA_1 = %d, want 1", counters["AAAA_1"])
	}
	if counters["matched"] != 1 {
		t.Errorf("matched = %d, want 1", counters["matched"])
	}
	if len(pair.R1.Sequence) != 19 {
		t.Errorf("R1 not trimmed: len=%d", len(pair.R1.Sequence))
	}
}

func TestInlineProcessUnmatched(t *testing.T) {
	p, w := newInlineFixture(t)
	counters := Counters{}

	pair := &fastq.ReadPair{
		R1: &fastq.Read{Header: "r 1:N:0:X", Sequence: "GGGGGGGGGGGGGGGGGGGG", Quality: "IIIIIIIIIIIIIIIIIIII"},
		R2: &fastq.Read{Header: "r 2:N:0:X", Sequence: "GGGGGGGGGGGGGGGGGGGG", Quality: "IIIIIIIIIIIIIIIIIIII"},
	}
	if err := p.Process(pair, w, counters); err != nil {
		t.Fatal(err)
	}
	if counters["unmatched"] != 1 {
		t.Errorf("unmatched = %d, want 1", counters["unmatched"])
	}
	if counters["matched"] != 0 {
		t.Errorf("matched = %d, want 0", counters["matched"])
	}
}

func TestInlineProcessDiscordantPair(t *testing.T) {
	p, w := newInlineFixture(t)
	pair := &fastq.ReadPair{
		R1: &fastq.Read{Header: "r1 1:N:0:X", Sequence: "AAAA", Quality: "IIII"},
		R2: &fastq.Read{Header: "r2 2:N:0:X", Sequence: "AAAA", Quality: "IIII"},
	}
	if err := p.Process(pair, w, Counters{}); err != fastq.ErrDiscordantPair {
		t.Errorf("got %v, want ErrDiscordantPair", err)
	}
}
