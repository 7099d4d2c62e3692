package demux

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/fqdemux/internal/fastq"
)

func writeShard(t *testing.T, ctx context.Context, prefix string, records ...*fastq.Read) {
	t.Helper()
	pw, err := fastq.CreateGzipPair(ctx, prefix)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range records {
		if err := pw.Write(r, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := pw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestConcatenateStitchesShardsInOrder(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	shard0 := filepath.Join(dir, "out.shard0000")
	shard1 := filepath.Join(dir, "out.shard0001")
	writeShard(t, ctx, shard0, &fastq.Read{Header: "first", Sequence: "AAAA", Plus: "", Quality: "IIII"})
	writeShard(t, ctx, shard1, &fastq.Read{Header: "second", Sequence: "CCCC", Plus: "", Quality: "IIII"})

	finalPrefix := filepath.Join(dir, "out")
	err := Concatenate(ctx, map[string][]string{finalPrefix: {shard0, shard1}})
	if err != nil {
		t.Fatal(err)
	}

	r1Path, r2Path := fastq.PairedEndFilenames(finalPrefix)
	scanner, closeFn, err := fastq.OpenGzipPair(ctx, r1Path, r2Path)
	if err != nil {
		t.Fatal(err)
	}
	defer closeFn()

	var headers []string
	var pair fastq.ReadPair
	for scanner.Scan(&pair) {
		headers = append(headers, pair.R1.Header)
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	if len(headers) != 2 || headers[0] != "first" || headers[1] != "second" {
		t.Errorf("got headers %v, want [first second]", headers)
	}

	shard0R1, _ := fastq.PairedEndFilenames(shard0)
	if _, err := os.Stat(shard0R1); !os.IsNotExist(err) {
		t.Errorf("expected shard %s to be removed after concatenation", shard0R1)
	}
}

func TestConcatenateEmptyPrefixSet(t *testing.T) {
	err := Concatenate(context.Background(), map[string][]string{})
	if err != nil {
		t.Errorf("expected no error for empty prefix set, got %v", err)
	}
}
