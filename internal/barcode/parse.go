package barcode

import (
	"sort"
	"strings"
)

// ParseSpecs parses the --barcode flag values accepted by both
// sub-commands. Each spec is either "TOKEN(S)=PREFIX" or a bare "TOKEN";
// whitespace inside the token list maps multiple barcodes to one prefix
// (original_source/fastq/demux.py: DemultiplexProcess.parse_barcode_outputs).
func ParseSpecs(specs []string) []Pair {
	var pairs []Pair
	for _, spec := range specs {
		tokens, prefix := spec, ""
		if i := strings.Index(spec, "="); i >= 0 {
			tokens, prefix = spec[:i], spec[i+1:]
		}
		for _, tok := range strings.Fields(tokens) {
			pairs = append(pairs, Pair{Barcode: tok, Prefix: prefix})
		}
	}
	return pairs
}

// MajorBarcodeThreshold is the minimum fraction of sampled headers a
// barcode must account for to be inferred as an adapter when --barcode is
// omitted for demux-barcode (spec.md §6, §9 Open Question — the source
// leaves "major" implementation-defined; SPEC_FULL.md fixes it at 1%).
const MajorBarcodeThreshold = 0.01

// MajorBarcodes selects the adapters to demultiplex by from a sample of
// observed (already-canonicalised) header barcodes, keeping any barcode
// whose frequency exceeds MajorBarcodeThreshold of the sample.
// (original_source/fastq/demux.py: DemultiplexDualIndex.determine_adapters)
func MajorBarcodes(counts map[string]int) []string {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return nil
	}
	var major []string
	for barcode, c := range counts {
		if float64(c)/float64(total) > MajorBarcodeThreshold {
			major = append(major, barcode)
		}
	}
	// Deterministic order: most frequent first, ties broken
	// alphabetically, since insertion order decides first-match-wins
	// (spec.md §9).
	sort.Slice(major, func(i, j int) bool {
		if counts[major[i]] != counts[major[j]] {
			return counts[major[i]] > counts[major[j]]
		}
		return major[i] < major[j]
	})
	return major
}
