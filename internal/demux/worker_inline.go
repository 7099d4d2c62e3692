package demux

import (
	"github.com/grailbio/fqdemux/internal/align"
	"github.com/grailbio/fqdemux/internal/barcode"
	"github.com/grailbio/fqdemux/internal/fastq"
)

// probeLength is the number of leading bases of a read examined for an
// inline adapter (spec.md §4.1: "probe is the first 20 bases").
const probeLength = 20

// InlineProcessor implements the inline-mode worker (spec.md §4.3):
// locate and trim a 5' adapter in each of R1 and R2 via semi-global
// alignment, assign the longer-matching adapter as the pair's barcode.
type InlineProcessor struct {
	Table          *barcode.Table
	Aligner        *align.Aligner
	ErrorRate      float64
	MinMatchLength int
}

// NewInlineProcessor builds an InlineProcessor, computing MinMatchLength
// from the table's adapters per spec.md §4.1.
func NewInlineProcessor(table *barcode.Table, aligner *align.Aligner, errorRate float64) *InlineProcessor {
	return &InlineProcessor{
		Table:          table,
		Aligner:        aligner,
		ErrorRate:      errorRate,
		MinMatchLength: align.MinMatchLength(table.Adapters),
	}
}

// Process implements the per-read-pair contract of spec.md §4.3, steps 1-7.
func (p *InlineProcessor) Process(pair *fastq.ReadPair, w *Writer, counters Counters) error {
	if err := pair.Validate(); err != nil {
		return err
	}

	a1 := p.matchAndTrim(pair.R1)
	a2 := p.matchAndTrim(pair.R2)

	if a1 != "" {
		counters.Add(a1+"_1", 1)
	}
	if a2 != "" {
		counters.Add(a2+"_2", 1)
	}

	best := a1
	if len(a2) > len(a1) {
		best = a2
	}

	if best != "" {
		counters.Add(best, 1)
		counters.Add("matched", 1)
	} else {
		counters.Add("unmatched", 1)
		best = barcode.NoMatch
	}

	return w.Write(best, pair.R1, pair.R2)
}

// matchAndTrim tests read's leading probeLength bases against every
// adapter in insertion order; the first accepted adapter wins and the
// match is trimmed from read's sequence and quality in place.
func (p *InlineProcessor) matchAndTrim(read *fastq.Read) string {
	n := probeLength
	if len(read.Sequence) < n {
		n = len(read.Sequence)
	}
	probe := read.Sequence[:n]

	for _, adapter := range p.Table.Adapters {
		res := p.Aligner.Align(adapter, probe)
		if res.Matches <= p.MinMatchLength {
			continue
		}
		distance := p.Aligner.Distance(res)
		if distance <= align.MaxDistance(len(adapter), p.ErrorRate) {
			read.Trim(res.EndRef + 1)
			return adapter
		}
	}
	return ""
}
