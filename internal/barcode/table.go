// Package barcode implements the barcode-to-output-prefix mapping and the
// dual-index canonicalisation rule (spec.md §3).
package barcode

import "regexp"

// NoMatch is the sentinel barcode for read pairs that did not match any
// configured adapter (spec.md §3).
const NoMatch = "NO_MATCH"

// DualIndexPattern matches a dual-index barcode string: two 8-base index
// reads joined by '+'.
var DualIndexPattern = regexp.MustCompile(`^[ACGTN]{8}\+[ACGTN]{8}$`)

// Table maps a barcode to an output-file prefix. Multiple barcodes may
// share a prefix; an empty prefix means discard. NoMatch is always present,
// mapping to either an explicit unmatched prefix or the empty (discard)
// string.
type Table struct {
	PrefixByBarcode map[string]string
	// Adapters lists the non-sentinel barcodes in insertion order; both
	// matching algorithms test adapters in this order and the first
	// acceptance wins (spec.md §9).
	Adapters []string
}

// New builds a Table from an ordered list of (barcode, prefix) pairs,
// appending the NoMatch sentinel mapped to unmatchedPrefix.
func New(pairs []Pair, unmatchedPrefix string) *Table {
	t := &Table{PrefixByBarcode: make(map[string]string, len(pairs)+1)}
	for _, p := range pairs {
		if _, exists := t.PrefixByBarcode[p.Barcode]; !exists {
			t.Adapters = append(t.Adapters, p.Barcode)
		}
		t.PrefixByBarcode[p.Barcode] = p.Prefix
	}
	if _, exists := t.PrefixByBarcode[NoMatch]; !exists {
		t.PrefixByBarcode[NoMatch] = unmatchedPrefix
	}
	return t
}

// Pair is one (barcode, output-prefix) entry used to build a Table.
type Pair struct {
	Barcode string
	Prefix  string
}

// Prefix returns the output prefix for barcode, and whether the barcode is
// a known key. An unknown barcode yields "" and false; it does not fall back
// to NoMatch's mapping.
func (t *Table) Prefix(barcode string) (string, bool) {
	p, ok := t.PrefixByBarcode[barcode]
	return p, ok
}

// UniquePrefixes returns the set of distinct non-empty output prefixes
// across all barcodes, used by the Writer to open one handle per prefix.
func (t *Table) UniquePrefixes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, prefix := range t.PrefixByBarcode {
		if prefix == "" || seen[prefix] {
			continue
		}
		seen[prefix] = true
		out = append(out, prefix)
	}
	return out
}

var complement = map[byte]byte{'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C', 'N': 'N'}

// ReverseComplement returns the reverse complement of a nucleotide
// sequence over the alphabet {A,C,G,T,N}, pairing A<->T, C<->G, N<->N.
func ReverseComplement(seq string) string {
	out := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		out[len(seq)-1-i] = complement[seq[i]]
	}
	return string(out)
}

// Canonicalize rewrites a dual-index barcode "i7+i5" to its canonical form
// "i7+revcomp(i5)" (spec.md §3). Strings that do not match DualIndexPattern
// are returned unchanged, since not every header carries a well-formed
// dual-index barcode (spec.md §8 boundary behaviour).
func Canonicalize(barcode string) string {
	if !DualIndexPattern.MatchString(barcode) {
		return barcode
	}
	i7, i5 := splitIndexPair(barcode)
	return i7 + "+" + ReverseComplement(i5)
}

func splitIndexPair(barcode string) (i7, i5 string) {
	for i := 0; i < len(barcode); i++ {
		if barcode[i] == '+' {
			return barcode[:i], barcode[i+1:]
		}
	}
	return barcode, ""
}
