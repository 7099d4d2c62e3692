package fastq

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/pgzip"
)

// ErrShort is returned when a truncated FASTQ record is encountered.
var ErrShort = errors.New("fastq: short record")

// ErrInvalid is returned when a record does not begin with '@' or its
// plus-line does not begin with '+'.
var ErrInvalid = errors.New("fastq: invalid record")

// Scanner reads FASTQ records from a decompressed byte stream. Scanners are
// not threadsafe; each worker and the reader own their own.
type Scanner struct {
	b   *bufio.Scanner
	err error
}

// NewScanner constructs a Scanner reading raw (already-decompressed) FASTQ
// text from r.
func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Scanner{b: s}
}

// Scan reads the next record into read. It returns false at end of stream
// or on error; callers must check Err to distinguish the two.
func (s *Scanner) Scan(read *Read) bool {
	if s.err != nil {
		return false
	}
	if !s.b.Scan() {
		s.err = s.b.Err()
		return false
	}
	header := s.b.Text()
	if len(header) == 0 || header[0] != '@' {
		s.err = ErrInvalid
		return false
	}
	read.Header = header[1:]

	if !s.scanLine() {
		return false
	}
	read.Sequence = s.b.Text()

	if !s.scanLine() {
		return false
	}
	plus := s.b.Text()
	if len(plus) == 0 || plus[0] != '+' {
		s.err = ErrInvalid
		return false
	}
	read.Plus = plus[1:]

	if !s.scanLine() {
		return false
	}
	read.Quality = s.b.Text()

	if len(read.Sequence) != len(read.Quality) {
		s.err = ErrInvalid
		return false
	}
	return true
}

func (s *Scanner) scanLine() bool {
	if !s.b.Scan() {
		if s.err = s.b.Err(); s.err == nil {
			s.err = ErrShort
		}
		return false
	}
	return true
}

// Err returns the scanning error, if any. nil at a clean EOF.
func (s *Scanner) Err() error {
	return s.err
}

// ErrDiscordantLength is returned by PairScanner when R1 and R2 streams
// reach end-of-file at different points.
var ErrDiscordantLength = errors.New("fastq: R1/R2 record counts differ")

// PairScanner scans a matched pair of FASTQ streams in lock-step.
type PairScanner struct {
	r1, r2 *Scanner
	err    error
}

// NewPairScanner constructs a PairScanner over the given R1 and R2 streams.
func NewPairScanner(r1, r2 io.Reader) *PairScanner {
	return &PairScanner{r1: NewScanner(r1), r2: NewScanner(r2)}
}

// Scan reads the next read pair. It returns false at end of stream (both
// sides exhausted together) or on error.
func (p *PairScanner) Scan(pair *ReadPair) bool {
	if pair.R1 == nil {
		pair.R1 = &Read{}
	}
	if pair.R2 == nil {
		pair.R2 = &Read{}
	}
	ok1 := p.r1.Scan(pair.R1)
	ok2 := p.r2.Scan(pair.R2)
	if ok1 != ok2 {
		p.err = ErrDiscordantLength
		return false
	}
	return ok1 && ok2
}

// Err returns the scanning error, if any.
func (p *PairScanner) Err() error {
	if p.err != nil {
		return p.err
	}
	if err := p.r1.Err(); err != nil {
		return err
	}
	return p.r2.Err()
}

var newline = []byte{'\n'}

// Writer writes FASTQ records to an underlying byte stream.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter constructs a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write emits one record in four-line FASTQ form, restoring the leading
// '@' and '+' stripped by the Scanner.
func (w *Writer) Write(r *Read) error {
	w.writeln("@", r.Header)
	w.writeln("", r.Sequence)
	w.writeln("+", r.Plus)
	w.writeln("", r.Quality)
	return w.err
}

func (w *Writer) writeln(prefix, line string) {
	if w.err != nil {
		return
	}
	if prefix != "" {
		if _, w.err = io.WriteString(w.w, prefix); w.err != nil {
			return
		}
	}
	if _, w.err = io.WriteString(w.w, line); w.err != nil {
		return
	}
	_, w.err = w.w.Write(newline)
}

// OpenGzipPair opens a pair of gzip-compressed FASTQ inputs (local path or
// any scheme registered with github.com/grailbio/base/file, including
// gs://) and returns a ready-to-scan PairScanner plus a close func that
// releases both underlying streams.
func OpenGzipPair(ctx context.Context, r1Path, r2Path string) (*PairScanner, func() error, error) {
	f1, err := file.Open(ctx, r1Path)
	if err != nil {
		return nil, nil, errors.E(err, "open", r1Path)
	}
	f2, err := file.Open(ctx, r2Path)
	if err != nil {
		f1.Close(ctx)
		return nil, nil, errors.E(err, "open", r2Path)
	}
	gz1, err := pgzip.NewReader(f1.Reader(ctx))
	if err != nil {
		f1.Close(ctx)
		f2.Close(ctx)
		return nil, nil, errors.E(err, "gunzip", r1Path)
	}
	gz2, err := pgzip.NewReader(f2.Reader(ctx))
	if err != nil {
		gz1.Close()
		f1.Close(ctx)
		f2.Close(ctx)
		return nil, nil, errors.E(err, "gunzip", r2Path)
	}
	closeFn := func() error {
		gz1.Close()
		gz2.Close()
		err1 := f1.Close(ctx)
		err2 := f2.Close(ctx)
		if err1 != nil {
			return err1
		}
		return err2
	}
	return NewPairScanner(gz1, gz2), closeFn, nil
}

// PairWriter owns a single gzip-compressed output FASTQ pair (R1, R2).
type PairWriter struct {
	ctx      context.Context
	f1, f2   file.File
	gz1, gz2 *pgzip.Writer
	w1, w2   *Writer
}

// CreateGzipPair creates a new gzip-compressed output FASTQ pair at the
// paths derived from prefix (<prefix>.R1.fastq.gz, <prefix>.R2.fastq.gz).
func CreateGzipPair(ctx context.Context, prefix string) (*PairWriter, error) {
	r1Path, r2Path := PairedEndFilenames(prefix)
	f1, err := file.Create(ctx, r1Path)
	if err != nil {
		return nil, errors.E(err, "create", r1Path)
	}
	f2, err := file.Create(ctx, r2Path)
	if err != nil {
		f1.Close(ctx)
		return nil, errors.E(err, "create", r2Path)
	}
	gz1 := pgzip.NewWriter(f1.Writer(ctx))
	gz2 := pgzip.NewWriter(f2.Writer(ctx))
	return &PairWriter{
		ctx: ctx, f1: f1, f2: f2, gz1: gz1, gz2: gz2,
		w1: NewWriter(gz1), w2: NewWriter(gz2),
	}, nil
}

// Write writes one read pair.
func (p *PairWriter) Write(r1, r2 *Read) error {
	if err := p.w1.Write(r1); err != nil {
		return err
	}
	return p.w2.Write(r2)
}

// Close flushes and closes both underlying files. It is safe to call once
// on every exit path, including after a write error; it is not idempotent,
// since a second call closes the underlying files again.
func (p *PairWriter) Close() error {
	err1 := p.gz1.Close()
	err2 := p.gz2.Close()
	err3 := p.f1.Close(p.ctx)
	err4 := p.f2.Close(p.ctx)
	for _, err := range []error{err1, err2, err3, err4} {
		if err != nil {
			return err
		}
	}
	return nil
}

// PairedEndFilenames maps an output prefix to its (R1, R2) file paths.
func PairedEndFilenames(prefix string) (string, string) {
	return prefix + ".R1.fastq.gz", prefix + ".R2.fastq.gz"
}
