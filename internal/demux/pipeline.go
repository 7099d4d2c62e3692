// Package demux implements the producer/worker/writer concurrency pipeline
// (spec.md §5): a single reader, a bounded worker pool, per-worker output
// sharding, and post-join concatenation.
package demux

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/fqdemux/internal/barcode"
	"github.com/grailbio/fqdemux/internal/fastq"
)

// DefaultBatchSize is the default number of read pairs the reader groups
// into one unit of work (spec.md §5).
const DefaultBatchSize = 5000

// progressLogInterval is the minimum number of processed pairs between
// progress log lines (spec.md §5: "logs at >= 10,000-pair intervals").
const progressLogInterval = 10000

// InputPair names one (R1, R2) input file pair the reader consumes.
type InputPair struct {
	R1, R2 string
}

// Processor is the per-read-pair matching-and-writing contract shared by
// the inline and dual-index workers (spec.md §4.3, §4.4).
type Processor interface {
	Process(pair *fastq.ReadPair, w *Writer, counters Counters) error
}

// Config holds everything the Pipeline needs to run a demultiplexing pass.
type Config struct {
	Inputs        []InputPair
	Table         *barcode.Table
	Processor     Processor
	WorkDir       string
	NumWorkers    int
	BatchSize     int // 0 means DefaultBatchSize
	QueueCapacity int // 0 means 2*NumWorkers
}

// Result is the outcome of a completed Pipeline run.
type Result struct {
	Counters Counters
}

type batch struct {
	pairs []*fastq.ReadPair
}

// Run executes the full pipeline: reader, worker pool, progress reporter,
// shutdown, and concatenation (spec.md §5). On any worker's fatal error, the
// pipeline cancels outstanding work, surfaces the first error via
// errors.Once, and skips concatenation so shards remain for inspection
// (spec.md §7).
func Run(ctx context.Context, cfg Config) (*Result, error) {
	workers := cfg.NumWorkers
	if workers < 1 {
		workers = 1
	}
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	queueCap := cfg.QueueCapacity
	if queueCap < 1 {
		queueCap = 2 * workers
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var once errors.Once
	input := make(chan *batch, queueCap)
	progress := make(chan int, queueCap*batchSize/progressLogInterval+workers+1)

	var readerWG sync.WaitGroup
	readerWG.Add(1)
	go func() {
		defer readerWG.Done()
		if err := readInputs(ctx, cfg.Inputs, batchSize, input); err != nil {
			once.Set(errors.E(err, "read input"))
		}
		for i := 0; i < workers; i++ {
			select {
			case input <- nil:
			case <-ctx.Done():
				return
			}
		}
	}()

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		reportProgress(progress)
	}()

	var workersWG sync.WaitGroup
	counterResults := make([]Counters, workers)
	shardResults := make([]map[string]string, workers)
	for i := 0; i < workers; i++ {
		workersWG.Add(1)
		go func(id int) {
			defer workersWG.Done()
			counters, shards, err := runWorker(ctx, id, cfg, input, progress)
			if err != nil {
				once.Set(errors.E(err, fmt.Sprintf("worker %d", id)))
				cancel()
			}
			counterResults[id] = counters
			shardResults[id] = shards
		}(i)
	}

	workersWG.Wait()
	shardPrefixes := make(map[string][]string) // prefix -> shard prefixes, worker order
	for _, shards := range shardResults {
		for prefix, shardPrefix := range shards {
			shardPrefixes[prefix] = append(shardPrefixes[prefix], shardPrefix)
		}
	}
	readerWG.Wait()
	close(progress)
	<-progressDone

	merged := Counters{}
	for _, c := range counterResults {
		merged.Merge(c)
	}

	if err := once.Err(); err != nil {
		log.Error.Printf("fqdemux: fatal worker error, shards preserved under %s: %v", cfg.WorkDir, err)
		return &Result{Counters: merged}, err
	}

	if err := Concatenate(ctx, dedupeShardLists(shardPrefixes)); err != nil {
		return &Result{Counters: merged}, errors.E(err, "concatenate shards")
	}

	return &Result{Counters: merged}, nil
}

// readInputs scans every input pair in order, grouping records into batches
// of batchSize and pushing them onto input. It returns the first codec
// error encountered.
func readInputs(ctx context.Context, inputs []InputPair, batchSize int, input chan<- *batch) error {
	for _, in := range inputs {
		scanner, closeFn, err := fastq.OpenGzipPair(ctx, in.R1, in.R2)
		if err != nil {
			return err
		}
		err = readOnePair(ctx, scanner, batchSize, input)
		closeErr := closeFn()
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}
	}
	return nil
}

func readOnePair(ctx context.Context, scanner *fastq.PairScanner, batchSize int, input chan<- *batch) error {
	var pairs []*fastq.ReadPair
	for {
		pair := &fastq.ReadPair{}
		if !scanner.Scan(pair) {
			break
		}
		pairs = append(pairs, pair)
		if len(pairs) == batchSize {
			if !sendBatch(ctx, input, pairs) {
				return nil
			}
			pairs = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(pairs) > 0 {
		sendBatch(ctx, input, pairs)
	}
	return nil
}

func sendBatch(ctx context.Context, input chan<- *batch, pairs []*fastq.ReadPair) bool {
	select {
	case input <- &batch{pairs: pairs}:
		return true
	case <-ctx.Done():
		return false
	}
}

// runWorker is the body of one worker goroutine: it owns a Writer and a
// Counters map for its entire lifetime, processes batches until a poison
// (nil batch) or context cancellation, and always releases its Writer
// (spec.md §4.2 scoped-release guarantee), including on panic.
func runWorker(ctx context.Context, id int, cfg Config, input <-chan *batch, progress chan<- int) (counters Counters, shardPrefixByPrefix map[string]string, err error) {
	counters = Counters{}
	shardPrefixByPrefix = make(map[string]string)

	shardDir := func(prefix string) string {
		shardPrefix := filepath.Join(cfg.WorkDir, fmt.Sprintf("%s.shard%04d", prefix, id))
		shardPrefixByPrefix[prefix] = shardPrefix
		return shardPrefix
	}

	w, werr := New(ctx, cfg.Table, shardDir)
	if werr != nil {
		return counters, shardPrefixByPrefix, werr
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var activeTime time.Duration
	var batchCount int
	logActiveTime := func() {
		if !log.At(log.Debug) {
			return
		}
		var perBatch time.Duration
		if batchCount > 0 {
			perBatch = activeTime / time.Duration(batchCount)
		}
		log.Debug.Printf("worker %d: active time %s (%d batches, %s/batch)", id, activeTime, batchCount, perBatch)
	}

	for {
		select {
		case b := <-input:
			if b == nil {
				logActiveTime()
				return counters, shardPrefixByPrefix, err
			}
			batchStarted := time.Now()
			for _, pair := range b.pairs {
				if perr := cfg.Processor.Process(pair, w, counters); perr != nil {
					err = perr
					return counters, shardPrefixByPrefix, err
				}
			}
			counters.Add("total", uint64(len(b.pairs)))
			batchCount++
			activeTime += time.Since(batchStarted)
			select {
			case progress <- len(b.pairs):
			case <-ctx.Done():
			}
		case <-ctx.Done():
			logActiveTime()
			return counters, shardPrefixByPrefix, err
		}
	}
}

// reportProgress sums batch sizes from progress and logs at
// progressLogInterval boundaries (spec.md §5), until progress is closed.
func reportProgress(progress <-chan int) {
	total := 0
	next := progressLogInterval
	for n := range progress {
		total += n
		if total >= next {
			log.Printf("fqdemux: processed %d pairs", total)
			next = total - total%progressLogInterval + progressLogInterval
		}
	}
}

func dedupeShardLists(shardPrefixes map[string][]string) map[string][]string {
	out := make(map[string][]string, len(shardPrefixes))
	for prefix, shards := range shardPrefixes {
		seen := make(map[string]bool, len(shards))
		var deduped []string
		for _, s := range shards {
			if seen[s] {
				continue
			}
			seen[s] = true
			deduped = append(deduped, s)
		}
		out[prefix] = deduped
	}
	return out
}
