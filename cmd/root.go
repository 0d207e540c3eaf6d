// Package cmd provides the CLI commands for chime.
//
// This software is a derivative work based on Zeit (https://github.com/mrusme/zeit)
// Original work copyright (c) マリウス (mrusme)
// Modifications copyright (c) Manav Panchal
//
// Licensed under the SEGV License, Version 1.0
// See LICENSE file for full license text.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/logging"
	"github.com/manav03panchal/chime/internal/output"
	"github.com/manav03panchal/chime/internal/runtime"
)

// Version information (set at build time via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Global flags.
var (
	flagFormat string
	flagColor  string
	flagConfig string
	flagDebug  bool
)

// ctx is the shared runtime context.
var ctx *runtime.Context

// annotationDatabase marks commands that run without opening storage.
const annotationDatabase = "database"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chime",
	Short: "Recurring reminders with prayer-time schedules and live alerts",
	Long: `chime keeps recurring reminders, works out when each one is next due,
and rings every connected listener when the time comes.

Examples:
  chime remind add Stand up at 9:30 on weekdays
  chime remind add "Drink water" every 2h until friday
  chime remind add Quran --prayer fajr --after 15m --city Cairo --country Egypt
  chime serve start
  chime listen`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for completion and help commands (but allow __complete for dynamic completions)
		if cmd.Name() == "completion" || cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		if flagDebug {
			logging.InitDebug()
		}

		opts := runtime.DefaultOptions()
		opts.Format = output.ParseFormat(flagFormat)
		opts.ColorMode = output.ParseColorMode(flagColor)
		opts.Debug = flagDebug
		opts.NoDatabase = cmd.Annotations[annotationDatabase] == "none"
		if flagConfig != "" {
			opts.ConfigPath = flagConfig
		}

		var err error
		ctx, err = runtime.New(opts)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeContext()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemindList(cmd, args)
	},
}

// Execute runs the root command and reports any error.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
		_ = closeContext()
	}
	return err
}

func closeContext() error {
	if ctx == nil {
		return nil
	}
	err := ctx.Close()
	ctx = nil
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagFormat, "format", "f", "cli",
		"Output format: cli, json, plain")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto",
		"Color output: auto, always, never")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"Config file (default $XDG_CONFIG_HOME/chime/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug output")

	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("chime %s\n", Version)
		cmd.Printf("  commit: %s\n", Commit)
		cmd.Printf("  built: %s\n", BuildTime)
		cmd.Println("")
		cmd.Println("Based on Zeit (https://github.com/mrusme/zeit)")
		cmd.Println("Licensed under SEGV License v1.0")
	},
}

// printError writes err to stderr, or as JSON when --format json is set.
func printError(err error) {
	if ctx != nil && ctx.IsJSON() {
		_ = ctx.JSONFormatter().PrintError("error", err.Error(), errors.GetSuggestion(err))
		return
	}
	os.Stderr.WriteString("Error: " + runtime.FormatError(err) + "\n")
}
