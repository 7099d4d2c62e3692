// Package cli implements the fqdemux command-line surface (spec.md §6):
// one subcommand per matching mode, both driving the same demux.Run pipeline.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the fqdemux root command and its subcommands.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:     "fqdemux",
		Short:   "Demultiplex paired-end FASTQ reads by inline adapter or dual index",
		Version: version,
	}
	root.AddCommand(newInlineCmd())
	root.AddCommand(newBarcodeCmd())
	return root
}

// Execute runs the root command against os.Args.
func Execute(version string) error {
	return NewRootCmd(version).Execute()
}
