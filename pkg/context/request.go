// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package context carries request identifiers across goroutines and gRPC
// hops.
package context

import (
	"context"

	"github.com/google/uuid"
)

const (
	// RequestKey is the gRPC metadata key holding the request ID.
	RequestKey = "placefs-request-id"
)

type RequestID struct{}

// WithUUID returns c with a request ID, generating one if c has none.
func WithUUID(c context.Context) (context.Context, string) {
	if id, ok := RequestIDFrom(c); ok {
		return c, id
	}
	newID := uuid.New().String()
	c = context.WithValue(c, RequestID{}, newID)
	return c, newID
}

func FromUUID(c context.Context, reqID string) context.Context {
	return context.WithValue(c, RequestID{}, reqID)
}

// RequestIDFrom returns the request ID stored in c.
func RequestIDFrom(c context.Context) (string, bool) {
	id, ok := c.Value(RequestID{}).(string)
	return id, ok && id != ""
}
