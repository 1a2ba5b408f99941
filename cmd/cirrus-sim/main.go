package main

import (
	"fmt"
	"os"

	"github.com/cuemby/cirrus/pkg/log"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cirrus-sim",
	Short:   "Discrete-event simulator for a serverless compute service",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("cirrus-sim version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}
