package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Vigil - multi-strategy static analysis for dynamically-typed scripts",
	Long:  `Vigil finds vulnerabilities in scripting-language source trees using regex, AST and taint-flow analysis.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to config file (default .vigil.toml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "show progress and statistics")
	rootCmd.PersistentFlags().Bool("debug", false, "show timestamped diagnostics")
}
