// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package types

// MatchNetworkAny matches any client network.
const MatchNetworkAny = "*"

// AddressMapping binds a service UUID to a network endpoint.
type AddressMapping struct {
	UUID         string `json:"uuid"`
	Version      uint64 `json:"version"`
	Protocol     string `json:"protocol"`
	Address      string `json:"address"`
	Port         int    `json:"port"`
	MatchNetwork string `json:"match_network"`
	TTLs         int    `json:"ttl_s"`
	URI          string `json:"uri"`
}

// Configuration is a service configuration stored in the directory.
type Configuration struct {
	UUID       string      `json:"uuid"`
	Version    uint64      `json:"version"`
	Parameters ServiceData `json:"parameters,omitempty"`
}
