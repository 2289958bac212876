package main

import (
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"
	"github.com/vshn/dagbucket/pkg/comp-functions/runtime"
)

const appName = "dagbucket"

type format enumflag.Flag

const (
	consoleFormat format = iota
	jsonFormat
)

var logFormats = map[format][]string{
	consoleFormat: {"console"},
	jsonFormat:    {"json"},
}

// LogMetadata prints various metadata to the root logger.
func LogMetadata(cmd *cobra.Command) error {
	return runtime.LogMetadata(cmd.Context(), runtime.AppInfo{
		Version:     version,
		Commit:      commit,
		Date:        date,
		AppName:     appName,
		AppLongName: "DAG bucket provisioner",
	})
}

// SetupLogging puts a new logger into the context of the given command.
func SetupLogging(cmd *cobra.Command, level int, f format) error {
	log, err := runtime.NewZapLogger(appName, version, level, f == jsonFormat)
	if err != nil {
		return err
	}
	cmd.SetContext(logr.NewContext(cmd.Context(), log))
	return nil
}
