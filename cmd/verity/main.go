// Command verity serves and fetches erasure-coded, root-attested
// archives over QUIC.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "verity",
		Short: "Attested block transfer over QUIC",
		Long: `verity commits a file to a Merkle root, serves its blocks over QUIC,
and fetches them elsewhere with every block verified against the root.`,

		SilenceUsage: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newServeCommand(),
		newFetchCommand(),
	)

	return root
}
