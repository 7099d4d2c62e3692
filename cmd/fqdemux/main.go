// Command fqdemux demultiplexes paired-end FASTQ reads by inline adapter
// trimming or dual-index barcode matching.
package main

import (
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/grailbio/fqdemux/internal/cli"
)

var version = "dev"

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if err := cli.Execute(version); err != nil {
		log.Error.Printf("fqdemux: %v", err)
		os.Exit(1)
	}
}
