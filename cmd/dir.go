// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LeeDigitalWorks/placefs/pkg/debug"
	"github.com/LeeDigitalWorks/placefs/pkg/dirservice"
	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/registry"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
	"github.com/LeeDigitalWorks/placefs/pkg/utils"
)

var dirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Directory service commands",
}

var dirServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an in-memory directory service",
	Long: `Start a directory service that keeps service registrations, address
mappings and configurations in memory.

With --redirect_to every request is answered with a redirect to that
address, which makes the server behave like a non-master replica.`,
	Args: cobra.NoArgs,
	Run:  runDirServe,
}

func init() {
	rootCmd.AddCommand(dirCmd)
	dirCmd.AddCommand(dirServeCmd)

	f := dirServeCmd.Flags()
	f.String("ip", utils.DetectedHostAddress(), "IP address to bind to")
	f.Int("grpc_port", defaultDIRPort, "gRPC port of the directory service")
	f.Int("debug_port", defaultDIRPort+1, "Debug HTTP port (metrics, pprof)")
	f.String("redirect_to", "", "Redirect every request to this directory address")
	f.String("services_file", "", "YAML services file to register at startup")

	viper.BindPFlags(f)
}

func runDirServe(cmd *cobra.Command, args []string) {
	fl := NewFlagLoader(cmd)
	ip := fl.String("ip")
	grpcPort := fl.Int("grpc_port")

	debug.SetNotReady()
	srv := dirservice.New()
	if path := fl.String("services_file"); path != "" {
		services, mappings, err := registry.LoadFile(utils.ResolvePath(path))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load services file")
		}
		addrs := make([]types.AddressMapping, 0, len(mappings))
		for _, m := range mappings {
			addrs = append(addrs, types.AddressMapping{
				UUID:     m.UUID,
				Protocol: "grpc",
				Address:  m.Host,
				Port:     m.Port,
			})
		}
		if err := srv.Seed(context.Background(), services, addrs); err != nil {
			logger.Fatal().Err(err).Msg("failed to register services")
		}
		logger.Info().Int("services", len(services)).Int("mappings", len(addrs)).Str("file", path).Msg("services registered")
	}
	if target := fl.String("redirect_to"); target != "" {
		srv.SetRedirect(target)
		logger.Info().Str("redirect_to", target).Msg("redirecting all requests")
	}
	debug.RegisterStatus("directory", func() any { return srv.Stats() })

	listener, err := utils.NewListener(utils.JoinHostPort(ip, grpcPort))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create gRPC listener")
	}
	grpcServer := srv.NewGRPCServer()
	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			logger.Fatal().Err(err).Msg("failed to serve gRPC")
		}
	}()
	debugServer := startHTTPServer(debug.GetMux(), ip, fl.Int("debug_port"))
	debug.SetReady()

	logger.Info().
		Str("grpc_addr", utils.JoinHostPort(ip, grpcPort)).
		Msg("Directory service started")

	waitForShutdown()
	debug.SetNotReady()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		grpcServer.Stop()
	}
	debugServer.Shutdown(ctx)
	logger.Info().Msg("Directory service stopped")
}
