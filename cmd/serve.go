// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeeDigitalWorks/placefs/pkg/debug"
	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/registry"
	"github.com/LeeDigitalWorks/placefs/pkg/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Track the registered OSDs and expose metrics",
	Long: `Poll the directory service for registered OSDs and serve the debug endpoint
(/metrics, /healthz, /readyz, /status, pprof). The process is ready once the
first poll succeeded; /status lists OSDs whose heartbeat is older than
--stale_timeout.`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	addDIRFlags(f)
	f.String("ip", utils.DetectedHostAddress(), "IP address to bind to")
	f.Int("debug_port", 32639, "Debug HTTP port (metrics, pprof, status)")
	f.Duration("refresh_interval", 10*time.Second, "Interval between directory polls")
	f.Duration("stale_timeout", 5*time.Minute, "Heartbeat age after which an OSD is reported stale")

	viper.BindPFlags(f)
}

type registryStatus struct {
	DIRServer string    `json:"dir_server"`
	LoadedAt  time.Time `json:"loaded_at"`
	OSDs      int       `json:"osds"`
	Stale     []string  `json:"stale_osds"`
}

func runServe(cmd *cobra.Command, args []string) {
	fl := NewFlagLoader(cmd)
	debug.SetNotReady()

	dir, err := dialDIR(fl)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to directory")
	}
	defer dir.Close()

	provider := registry.NewDIRProvider(dir, registry.DIRProviderConfig{
		Interval: fl.Duration("refresh_interval"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := provider.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial directory poll failed, retrying in background")
	}
	defer provider.Stop()

	staleTimeout := fl.Duration("stale_timeout")
	debug.SetReadyCheck(func() bool { return !provider.LoadedAt().IsZero() })
	debug.RegisterStatus("registry", func() any {
		st := registryStatus{
			DIRServer: dir.Caller().CurrentServer(),
			LoadedAt:  provider.LoadedAt(),
		}
		if osds, err := provider.KnownServices(ctx); err == nil {
			st.OSDs = len(osds)
		}
		st.Stale = provider.StaleServices(staleTimeout).UUIDs()
		return st
	})

	ip := fl.String("ip")
	debugServer := startHTTPServer(debug.GetMux(), ip, fl.Int("debug_port"))
	debug.SetReady()
	logger.Info().
		Strs("dir_addrs", dir.Caller().Servers()).
		Dur("refresh_interval", fl.Duration("refresh_interval")).
		Msg("Registry tracker started")

	waitForShutdown()
	debug.SetNotReady()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	debugServer.Shutdown(shutdownCtx)
	logger.Info().Msg("Registry tracker stopped")
}
