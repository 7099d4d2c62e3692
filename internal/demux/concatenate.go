package demux

import (
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/fqdemux/internal/fastq"
)

// Concatenate stitches each prefix's shard pairs into a final output pair,
// in worker order, then removes the shards (spec.md §5: "Shards are raw
// gzip streams; gzip concatenation is valid because the format is
// concatenative at member boundaries, so no re-encoding is performed").
// Prefixes are stitched in parallel via traverse.Each; within a prefix,
// shards are appended strictly in the order given.
func Concatenate(ctx context.Context, shardPrefixesByPrefix map[string][]string) error {
	prefixes := make([]string, 0, len(shardPrefixesByPrefix))
	for prefix := range shardPrefixesByPrefix {
		prefixes = append(prefixes, prefix)
	}
	return traverse.Each(len(prefixes), func(i int) error {
		prefix := prefixes[i]
		return concatenatePrefix(ctx, prefix, shardPrefixesByPrefix[prefix])
	})
}

func concatenatePrefix(ctx context.Context, prefix string, shardPrefixes []string) error {
	finalR1, finalR2 := fastq.PairedEndFilenames(prefix)

	shardR1s := make([]string, len(shardPrefixes))
	shardR2s := make([]string, len(shardPrefixes))
	for i, sp := range shardPrefixes {
		shardR1s[i], shardR2s[i] = fastq.PairedEndFilenames(sp)
	}

	if err := concatenateSide(ctx, finalR1, shardR1s); err != nil {
		return errors.E(err, "concatenate R1 for", prefix)
	}
	if err := concatenateSide(ctx, finalR2, shardR2s); err != nil {
		return errors.E(err, "concatenate R2 for", prefix)
	}
	return nil
}

func concatenateSide(ctx context.Context, finalPath string, shardPaths []string) error {
	out, err := file.Create(ctx, finalPath)
	if err != nil {
		return errors.E(err, "create", finalPath)
	}
	w := out.Writer(ctx)
	for _, shardPath := range shardPaths {
		if err := appendShard(ctx, w, shardPath); err != nil {
			out.Close(ctx)
			return err
		}
	}
	if err := out.Close(ctx); err != nil {
		return errors.E(err, "close", finalPath)
	}
	for _, shardPath := range shardPaths {
		if err := file.Remove(ctx, shardPath); err != nil {
			return errors.E(err, "remove shard", shardPath)
		}
	}
	return nil
}

func appendShard(ctx context.Context, w io.Writer, shardPath string) error {
	in, err := file.Open(ctx, shardPath)
	if err != nil {
		return errors.E(err, "open shard", shardPath)
	}
	defer in.Close(ctx)
	if _, err := io.Copy(w, in.Reader(ctx)); err != nil {
		return errors.E(err, "copy shard", shardPath)
	}
	return nil
}
