// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package dirclient

import (
	"context"

	"google.golang.org/grpc/metadata"

	reqctx "github.com/LeeDigitalWorks/placefs/pkg/context"
	"github.com/LeeDigitalWorks/placefs/pkg/grpc/pool"
)

// GRPCTransport sends directory requests over gRPC using the JSON codec.
type GRPCTransport struct {
	pool *pool.Pool
}

func NewGRPCTransport(opts ...pool.Option) *GRPCTransport {
	return &GRPCTransport{pool: pool.New(opts...)}
}

func (t *GRPCTransport) Invoke(ctx context.Context, server, method string, req, resp any) error {
	conn, err := t.pool.Get(server)
	if err != nil {
		return err
	}
	if id, ok := reqctx.RequestIDFrom(ctx); ok {
		ctx = metadata.AppendToOutgoingContext(ctx, reqctx.RequestKey, id)
	}
	return FromStatusError(conn.Invoke(ctx, FullMethod(method), req, resp))
}

func (t *GRPCTransport) Close() error {
	return t.pool.Close()
}
