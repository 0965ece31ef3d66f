package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped by the build via -ldflags.
var version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the opsward version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("opsward", version)
	},
}
