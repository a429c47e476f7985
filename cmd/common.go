// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/LeeDigitalWorks/placefs/pkg/dirclient"
	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/osdselection"
	"github.com/LeeDigitalWorks/placefs/pkg/placement"
	"github.com/LeeDigitalWorks/placefs/pkg/registry"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
	"github.com/LeeDigitalWorks/placefs/pkg/utils"
	"github.com/LeeDigitalWorks/placefs/pkg/uuidresolver"
	"github.com/LeeDigitalWorks/placefs/pkg/vivaldi"
	"github.com/LeeDigitalWorks/placefs/pkg/xattr"
)

const defaultDIRPort = 32638

func addDIRFlags(f *pflag.FlagSet) {
	f.StringSlice("dir_addrs", nil, "Directory service addresses (host:port), tried in order on failure")
	f.Int("dir_max_retries", dirclient.DefaultMaxRetries, "Attempts per directory request before giving up")
	f.Duration("dir_retry_wait", dirclient.DefaultRetryWait, "Wait before retrying after a failover or repeated redirect")
	f.Duration("dir_request_timeout", dirclient.DefaultRequestTimeout, "Timeout of a single directory attempt")
}

func addStoreFlags(f *pflag.FlagSet) {
	f.String("xattr_kind", string(xattr.KindLevelDB), "Volume attribute store (memory, leveldb, redis)")
	f.String("xattr_dir", "/var/lib/placefs/xattr", "LevelDB directory of the attribute store")
	f.String("redis_addr", "localhost:6379", "Redis address of the attribute store")
	f.String("redis_password", "", "Redis password")
	f.Int("redis_db", 0, "Redis database")
	f.String("redis_prefix", xattr.DefaultRedisKeyPrefix, "Redis key prefix, followed by the volume ID")
}

func addSelectionFlags(f *pflag.FlagSet) {
	addDIRFlags(f)
	addStoreFlags(f)
	f.String("services_file", "", "Read OSDs from a YAML services file instead of the directory")
	f.String("dcmap_file", "", "YAML datacenter map used by the DCMap policies")
	f.String("client", "", "Client address (IP or host name)")
	f.String("coords", "", `Client Vivaldi coordinates "x y error"`)
}

func dirConfig(fl *FlagLoader) dirclient.Config {
	return dirclient.Config{
		Addrs:          fl.StringSlice("dir_addrs"),
		MaxRetries:     fl.Int("dir_max_retries"),
		RetryWait:      fl.Duration("dir_retry_wait"),
		RequestTimeout: fl.Duration("dir_request_timeout"),
	}
}

func dialDIR(fl *FlagLoader) (*dirclient.Client, error) {
	cfg := dirConfig(fl)
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("--dir_addrs is required")
	}
	return dirclient.Dial(cfg)
}

// openStore opens the attribute store, creating the LevelDB directory if
// needed.
func openStore(fl *FlagLoader) (xattr.Store, error) {
	cfg := xattr.Config{
		Kind:          xattr.Kind(fl.String("xattr_kind")),
		Dir:           utils.ResolvePath(fl.String("xattr_dir")),
		RedisAddr:     fl.String("redis_addr"),
		RedisPassword: fl.String("redis_password"),
		RedisDB:       fl.Int("redis_db"),
		RedisPrefix:   fl.String("redis_prefix"),
	}
	if cfg.Kind == xattr.KindLevelDB {
		if err := utils.EnsureWritableDir(cfg.Dir); err != nil {
			return nil, fmt.Errorf("xattr directory: %w", err)
		}
	}
	return xattr.Open(cfg)
}

// selectionEnv bundles what the selection commands need: the OSD snapshot,
// UUID resolution, the attribute store and the volume manager on top.
type selectionEnv struct {
	manager  *placement.VolumeManager
	store    xattr.Store
	dir      *dirclient.Client
	provider *registry.DIRProvider
}

func (e *selectionEnv) Close() {
	if e.provider != nil {
		e.provider.Stop()
	}
	if e.dir != nil {
		e.dir.Close()
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing attribute store")
		}
	}
}

func openSelectionEnv(ctx context.Context, cmd *cobra.Command) (*selectionEnv, error) {
	fl := NewFlagLoader(cmd)
	env := &selectionEnv{}

	var (
		provider registry.Provider
		resolver uuidresolver.Resolver
	)
	if path := fl.String("services_file"); path != "" {
		services, mappings, err := registry.LoadFile(utils.ResolvePath(path))
		if err != nil {
			return nil, err
		}
		static := uuidresolver.NewStatic()
		for _, m := range mappings {
			static.Add(m.UUID, m.Host, m.Port)
		}
		provider, resolver = registry.NewStatic(services), static
	} else {
		dir, err := dialDIR(fl)
		if err != nil {
			return nil, err
		}
		env.dir = dir
		env.provider = registry.NewDIRProvider(dir, registry.DIRProviderConfig{})
		if err := env.provider.Start(ctx); err != nil {
			env.Close()
			return nil, err
		}
		provider = env.provider
		resolver = uuidresolver.NewDIRResolver(dir, uuidresolver.DIRResolverConfig{})
	}

	store, err := openStore(fl)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.store = store

	factory := osdselection.NewFactory(osdselection.Environment{
		UUIDs:     resolver,
		DCMapFile: utils.ResolvePath(fl.String("dcmap_file")),
	})
	env.manager = placement.NewVolumeManager(store, provider, factory)
	return env, nil
}

// openPolicyStore opens only the attribute store; chains and attributes can
// be edited without a directory.
func openPolicyStore(cmd *cobra.Command) (*placement.VolumeManager, xattr.Store, error) {
	fl := NewFlagLoader(cmd)
	store, err := openStore(fl)
	if err != nil {
		return nil, nil, err
	}
	factory := osdselection.NewFactory(osdselection.Environment{
		UUIDs:     uuidresolver.NewStatic(),
		DCMapFile: utils.ResolvePath(fl.String("dcmap_file")),
	})
	return placement.NewVolumeManager(store, registry.NewStatic(nil), factory), store, nil
}

// clientCoords parses --coords. An empty value yields nil.
func clientCoords(fl *FlagLoader) (*vivaldi.Coordinates, error) {
	raw := strings.TrimSpace(fl.String("coords"))
	if raw == "" {
		return nil, nil
	}
	c, err := vivaldi.Parse(strings.ReplaceAll(raw, ",", " "))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// parseReplicas turns repeated "osd1,osd2" values into an XLoc list, one
// replica per value.
func parseReplicas(values []string) *types.XLocList {
	if len(values) == 0 {
		return nil
	}
	replicas := make([][]string, 0, len(values))
	for _, v := range values {
		var osds []string
		for _, osd := range strings.Split(v, ",") {
			if osd = strings.TrimSpace(osd); osd != "" {
				osds = append(osds, osd)
			}
		}
		if len(osds) > 0 {
			replicas = append(replicas, osds)
		}
	}
	return types.NewXLocList(replicas...)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Minute)
}

func startHTTPServer(handler http.Handler, ip string, port int) *http.Server {
	listener, err := utils.NewListener(utils.JoinHostPort(ip, port))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create HTTP listener")
	}

	httpServer := &http.Server{Handler: handler}
	go func() {
		logger.Info().Str("http_addr", utils.JoinHostPort(ip, port)).Msg("Starting HTTP server")
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start HTTP server")
		}
	}()
	return httpServer
}

func waitForShutdown() {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	<-stopChan
}
