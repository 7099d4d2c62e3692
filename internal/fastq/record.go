// Package fastq implements the paired-end FASTQ record model and the
// gzip-backed codec used to read and write it.
package fastq

import (
	"errors"
	"strings"
)

// Read is a single FASTQ record: a header (with the leading '@' stripped),
// a nucleotide sequence, the separator ("plus") line with its leading '+'
// stripped, and a quality string of the same length as Sequence.
type Read struct {
	Header   string
	Sequence string
	Plus     string
	Quality  string
}

// Trim removes the first n bases from the 5' end of the read, updating
// both Sequence and Quality. It is used by the inline worker to remove a
// matched adapter.
func (r *Read) Trim(n int) {
	if n <= 0 {
		return
	}
	if n > len(r.Sequence) {
		n = len(r.Sequence)
	}
	r.Sequence = r.Sequence[n:]
	r.Quality = r.Quality[n:]
}

// ReadPair is a mated pair of reads from the R1 and R2 input streams.
type ReadPair struct {
	R1, R2 *Read
}

// ErrDiscordantPair is returned when R1 and R2 do not share the same mate
// identifier, per spec.md §3's ReadPair validity invariant.
var ErrDiscordantPair = errors.New("fastq: discordant read pair")

// Validate checks that R1 and R2 share the same header up to the mate
// designator. A discordant pair is a fatal input error (spec.md §3, §7).
func (p *ReadPair) Validate() error {
	if mateID(p.R1.Header) != mateID(p.R2.Header) {
		return ErrDiscordantPair
	}
	return nil
}

// mateID returns the portion of a FASTQ header used to pair R1 with R2: the
// segment preceding the first whitespace, with a terminal "/1" or "/2"
// mate designator stripped.
func mateID(header string) string {
	if i := strings.IndexAny(header, " \t"); i >= 0 {
		header = header[:i]
	}
	if n := len(header); n >= 2 && header[n-2] == '/' && (header[n-1] == '1' || header[n-1] == '2') {
		header = header[:n-2]
	}
	return header
}

// HeaderBarcode returns the substring following the final ':' of a read
// header, which on Illumina instruments carries the i7(+i5) index pair
// consumed by the dual-index worker.
func HeaderBarcode(header string) string {
	if i := strings.LastIndexByte(header, ':'); i >= 0 {
		return header[i+1:]
	}
	return header
}
