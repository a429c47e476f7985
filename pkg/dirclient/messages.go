// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package dirclient

import (
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

// ServiceName is the gRPC service implemented by directory servers.
const ServiceName = "placefs.dir.v1.DirectoryService"

// Directory service methods.
const (
	MethodAddressMappingsGet    = "AddressMappingsGet"
	MethodAddressMappingsSet    = "AddressMappingsSet"
	MethodAddressMappingsRemove = "AddressMappingsRemove"
	MethodServiceRegister       = "ServiceRegister"
	MethodServiceDeregister     = "ServiceDeregister"
	MethodServiceOffline        = "ServiceOffline"
	MethodServiceGetByName      = "ServiceGetByName"
	MethodServiceGetByUUID      = "ServiceGetByUUID"
	MethodServiceGetByType      = "ServiceGetByType"
	MethodConfigurationGet      = "ConfigurationGet"
	MethodConfigurationSet      = "ConfigurationSet"
	MethodGlobalTimeGet         = "GlobalTimeGet"
)

// FullMethod returns the gRPC path of a directory method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type Empty struct{}

type UUIDRequest struct {
	UUID string `json:"uuid"`
}

type NameRequest struct {
	Name string `json:"name"`
}

type TypeRequest struct {
	Type types.ServiceType `json:"type"`
}

type VersionResponse struct {
	NewVersion uint64 `json:"new_version"`
}

type AddressMappingSet struct {
	Mappings []types.AddressMapping `json:"mappings"`
}

type ServiceRegisterRequest struct {
	Service types.ServiceEntry `json:"service"`
}

type ServiceSetResponse struct {
	Services types.ServiceSet `json:"services"`
}

type ConfigurationSetRequest struct {
	Configuration types.Configuration `json:"configuration"`
}

type GlobalTimeResponse struct {
	TimeMillis int64 `json:"time_millis"`
}
