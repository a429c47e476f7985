// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool provides lazily created, reusable gRPC client connections
// keyed by server address.
package pool

import (
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/LeeDigitalWorks/placefs/pkg/grpc/codec"
	"github.com/LeeDigitalWorks/placefs/pkg/logger"
)

const (
	DefaultConnsPerHost = 1

	KeepAliveTime    = 60 * time.Second
	KeepAliveTimeout = 20 * time.Second

	// Max message size (16 MiB)
	MaxMessageSize = 16 << 20
)

// Options configures a connection pool
type Options struct {
	// ConnsPerHost is the number of connections kept per address. Calls are
	// spread round-robin across them.
	ConnsPerHost int

	// DialOpts are the gRPC dial options used for every connection
	DialOpts []grpc.DialOption
}

// DefaultOptions returns Options with sensible defaults
func DefaultOptions() Options {
	return Options{
		ConnsPerHost: DefaultConnsPerHost,
		DialOpts:     DefaultDialOpts(),
	}
}

// DefaultDialOpts returns plaintext dial options that encode messages with
// the JSON codec and log finished calls. Retries are left to the caller,
// which knows about the other servers.
func DefaultDialOpts() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    KeepAliveTime,
			Timeout: KeepAliveTimeout,
		}),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(codec.Name),
			grpc.MaxCallRecvMsgSize(MaxMessageSize),
			grpc.MaxCallSendMsgSize(MaxMessageSize),
		),
		grpc.WithChainUnaryInterceptor(
			logging.UnaryClientInterceptor(
				logger.InterceptorLogger(logger.Global()),
				logging.WithLogOnEvents(logging.FinishCall),
			),
		),
	}
}

// Option is a functional option for configuring pools
type Option func(*Options)

// WithConnsPerHost sets connections per host
func WithConnsPerHost(n int) Option {
	return func(o *Options) {
		o.ConnsPerHost = n
	}
}

// WithDialOpts appends dial options
func WithDialOpts(opts ...grpc.DialOption) Option {
	return func(o *Options) {
		o.DialOpts = append(o.DialOpts, opts...)
	}
}
