// Command teenybox runs the content API, the comment cascade worker and a
// few development helpers.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCommand = &cobra.Command{
	Use:           "teenybox",
	Short:         "teenybox content API",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
