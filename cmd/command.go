// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/utils"
)

var rootCmd = &cobra.Command{
	Use:   "placefs",
	Short: "PlaceFS - OSD selection and placement policies",
	Long: `PlaceFS selects storage servers (OSDs) for new replicas and orders
existing replicas for reads, using per-volume chains of filter, group and
sort policies. It also ships a fault tolerant directory client and an
in-memory directory service.`,
	PersistentPreRun: initialize,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&utils.ConfigurationFileDirectory, "config_dir", ".", "Directory for configuration files")
	rootCmd.PersistentFlags().String("log_level", "info", "Log level (trace, debug, info, warn, error)")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log_level"))
}

// initialize loads placefs.{yaml,toml,...} and applies the log level.
func initialize(cmd *cobra.Command, args []string) {
	utils.LoadConfiguration("placefs", false)

	if level, err := zerolog.ParseLevel(viper.GetString("log_level")); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warn().Err(err).Msg("invalid log level, keeping default")
	}
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
