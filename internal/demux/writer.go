package demux

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/fqdemux/internal/barcode"
	"github.com/grailbio/fqdemux/internal/fastq"
)

// Writer owns one open gzip output pair per unique output prefix in a
// barcode.Table and routes writes by barcode (spec.md §4.2). It is
// constructed once per worker at worker start and is guaranteed to be
// released on every worker exit path via Close, including panics — callers
// should `defer w.Close()` immediately after a successful New.
type Writer struct {
	byBarcode map[string]*fastq.PairWriter // alias set: multiple barcodes -> one handle
	owned     []*fastq.PairWriter          // unique handles, for Close
}

// New opens one output pair per unique prefix named in table, at the path
// shardPrefix(prefix) returns, and builds the barcode-to-handle alias map. The alias
// set is built once, before the hot loop, and never mutated afterward
// (spec.md §9).
func New(ctx context.Context, table *barcode.Table, shardPrefix func(prefix string) string) (*Writer, error) {
	w := &Writer{byBarcode: make(map[string]*fastq.PairWriter)}
	byPrefix := make(map[string]*fastq.PairWriter)
	for b, prefix := range table.PrefixByBarcode {
		if prefix == "" {
			continue // missing/empty prefix silently discards (spec.md §4.2)
		}
		handle, ok := byPrefix[prefix]
		if !ok {
			var err error
			handle, err = fastq.CreateGzipPair(ctx, shardPrefix(prefix))
			if err != nil {
				w.Close()
				return nil, errors.E(err, "open shard for prefix", prefix)
			}
			byPrefix[prefix] = handle
			w.owned = append(w.owned, handle)
		}
		w.byBarcode[b] = handle
	}
	return w, nil
}

// Write routes (r1, r2) to the output pair for barcode. A barcode with no
// mapped prefix (including NO_MATCH with no unmatched sink configured)
// silently discards the pair.
func (w *Writer) Write(barcode string, r1, r2 *fastq.Read) error {
	handle, ok := w.byBarcode[barcode]
	if !ok {
		return nil
	}
	return handle.Write(r1, r2)
}

// Close flushes and closes every open handle. Close is idempotent: calling
// it more than once, or after a partial New failure, is safe.
func (w *Writer) Close() error {
	var first error
	for _, handle := range w.owned {
		if err := handle.Close(); err != nil && first == nil {
			first = err
		}
	}
	w.owned = nil
	w.byBarcode = map[string]*fastq.PairWriter{}
	return first
}
