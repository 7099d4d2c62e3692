package demux

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteStatsCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.csv")
	counters := Counters{
		"total":     100,
		"unmatched": 10,
		"AAAA":      90,
		"AAAA_1":    90,
		"AAAA_2":    88,
	}
	got, err := WriteStats(context.Background(), path, "sample1", []string{"AAAA"}, counters)
	if err != nil {
		t.Fatal(err)
	}
	if got != path {
		t.Errorf("got %q, want %q", got, path)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2 (header + 1 row): %q", len(lines), contents)
	}
	if !strings.Contains(lines[0], "sample") || !strings.Contains(lines[0], "barcode") {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "sample1") || !strings.Contains(lines[1], "AAAA") {
		t.Errorf("unexpected row: %q", lines[1])
	}
}

func TestWriteStatsNoOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.csv")
	counters := Counters{"total": 0, "unmatched": 0}
	got, err := WriteStats(context.Background(), path, "sample1", nil, counters)
	if err != nil {
		t.Fatal(err)
	}
	if got != "no output" {
		t.Errorf("got %q, want %q", got, "no output")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no file written when total == 0")
	}
}

func TestWriteStatsMissingCounter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.csv")
	counters := Counters{"unmatched": 0}
	if _, err := WriteStats(context.Background(), path, "sample1", nil, counters); err != ErrMissingCounter {
		t.Errorf("got %v, want ErrMissingCounter", err)
	}
}
