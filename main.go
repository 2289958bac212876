package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/thediveo/enumflag/v2"
	"github.com/vshn/dagbucket/cmd"
)

// These variables are set by the release build.
var (
	version = "snapshot"
	commit  = "unknown"
	date    = "unknown"
)

func init() {
	rootCmd.AddCommand(
		cmd.FunctionCMD,
		cmd.SynthCMD,
	)
}

func main() {

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	logLevel  int
	logFormat = consoleFormat
	rootCmd   = &cobra.Command{
		Use:               "dagbucket",
		Short:             "DAG bucket",
		Long:              "Provisions a bucket for Airflow workflow definitions and deploys them into it",
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}
)

func init() {
	rootCmd.PersistentFlags().IntVarP(&logLevel, "log-level", "v", 0, "Number of the log level verbosity.")
	rootCmd.PersistentFlags().Var(
		enumflag.New(&logFormat, "log-format", logFormats, enumflag.EnumCaseInsensitive),
		"log-format",
		"Sets the log format (values: [json, console]).")
	viper.AutomaticEnv()
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	err := SetupLogging(cmd, logLevel, logFormat)
	if err != nil {
		return err
	}

	return LogMetadata(cmd)
}
