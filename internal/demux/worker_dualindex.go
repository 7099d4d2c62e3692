package demux

import (
	"github.com/grailbio/fqdemux/internal/align"
	"github.com/grailbio/fqdemux/internal/barcode"
	"github.com/grailbio/fqdemux/internal/fastq"
)

// DualIndexProcessor implements the dual-index worker (spec.md §4.4):
// extract the barcode embedded in R1's header, canonicalise it, and
// assign it to the first adapter in table order whose edit distance is
// below that adapter's threshold.
type DualIndexProcessor struct {
	Table     *barcode.Table
	ErrorRate float64
}

// Process implements the per-read-pair contract of spec.md §4.4.
func (p *DualIndexProcessor) Process(pair *fastq.ReadPair, w *Writer, counters Counters) error {
	if err := pair.Validate(); err != nil {
		return err
	}

	raw := fastq.HeaderBarcode(pair.R1.Header)
	observed := barcode.Canonicalize(raw)

	if adapter := p.matchAdapter(observed); adapter != "" {
		counters.Add(adapter, 1)
		counters.Add("matched", 1)
		return w.Write(adapter, pair.R1, pair.R2)
	}

	counters.Add("unmatched", 1)
	return w.Write(barcode.NoMatch, pair.R1, pair.R2)
}

// matchAdapter returns the first adapter (in table insertion order) whose
// edit distance from observed is strictly below the error-rate threshold
// for that adapter's length, or "" if none qualifies.
func (p *DualIndexProcessor) matchAdapter(observed string) string {
	for _, adapter := range p.Table.Adapters {
		if align.EditDistance(observed, adapter) < align.MaxDistance(len(adapter), p.ErrorRate) {
			return adapter
		}
	}
	return ""
}
