package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped via -ldflags at release time.
var version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fixity version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fixity %s\n", version)
	},
}
