package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "opsward",
	Short: "Chat-driven host operations assistant with a policy sandbox",
	Long: "opsward lets authorized users and LLM tools inspect a host's containers,\n" +
		"resources, and logs. Every side-effecting request passes an access-control\n" +
		"sandbox: command allowlisting, path gating, and per-plugin data isolation.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config YAML (default: ~/.opsward/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
