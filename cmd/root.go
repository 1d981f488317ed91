package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel   string // Log verbosity level
	configPath string // Optional planner run file
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Throughput-maximizing configuration planner for multi-stage inference pipelines",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Planner run file (YAML); flags given explicitly override its values")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(curveCmd)
	rootCmd.AddCommand(traceCmd)
}
