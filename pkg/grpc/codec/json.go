// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec registers a JSON gRPC codec. Clients select it with
// grpc.CallContentSubtype(codec.Name); servers pick it from the request's
// content subtype.
package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the content subtype of the codec.
const Name = "json"

type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec: marshal %T: %w", v, err)
	}
	return b, nil
}

func (JSON) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec: unmarshal %T: %w", v, err)
	}
	return nil
}

func (JSON) Name() string { return Name }

func init() {
	encoding.RegisterCodec(JSON{})
}
