package demux

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/grailbio/fqdemux/internal/barcode"
	"github.com/grailbio/fqdemux/internal/fastq"
)

func newDualIndexFixture(t *testing.T) (*DualIndexProcessor, *Writer) {
	t.Helper()
	table := barcode.New([]barcode.Pair{
		{Barcode: "AAAAAAAA+GGGGGGGG", Prefix: "sampleA"},
	}, "unmatched")
	dir := t.TempDir()
	w, err := New(context.Background(), table, func(prefix string) string { return filepath.Join(dir, prefix) })
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	return &DualIndexProcessor{Table: table, ErrorRate: 0.1}, w
}

func TestDualIndexProcessMatch(t *testing.T) {
	p, w := newDualIndexFixture(t)
	counters := Counters{}

	// Header carries i7+i5 as read by the sequencer; Canonicalize rewrites
	// it to i7+revcomp(i5) = "AAAAAAAA+GGGGGGGG" before matching.
	pair := &fastq.ReadPair{
		R1: &fastq.Read{Header: "x 1:N:0:AAAAAAAA+CCCCCCCC", Sequence: "ACGT", Quality: "IIII"},
		R2: &fastq.Read{Header: "x 2:N:0:AAAAAAAA+CCCCCCCC", Sequence: "ACGT", Quality: "IIII"},
	}
	if err := p.Process(pair, w, counters); err != nil {
		t.Fatal(err)
	}
	if counters["AAAAAAAA+GGGGGGGG"] != 1 {
		t.Errorf("matched adapter counter = %d, want 1", counters["AAAAAAAA+GGGGGGGG"])
	}
	if counters["matched"] != 1 {
		t.Errorf("matched = %d, want 1", counters["matched"])
	}
}

func TestDualIndexProcessUnmatched(t *testing.T) {
	p, w := newDualIndexFixture(t)
	counters := Counters{}
	pair := &fastq.ReadPair{
		R1: &fastq.Read{Header: "x 1:N:0:TTTTTTTT+TTTTTTTT", Sequence: "ACGT", Quality: "IIII"},
		R2: &fastq.Read{Header: "x 2:N:0:TTTTTTTT+TTTTTTTT", Sequence: "ACGT", Quality: "IIII"},
	}
	if err := p.Process(pair, w, counters); err != nil {
		t.Fatal(err)
	}
	if counters["unmatched"] != 1 {
		t.Errorf("unmatched = %d, want 1", counters["unmatched"])
	}
}
