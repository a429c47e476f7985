// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package dirservice

import (
	"context"

	"google.golang.org/grpc"

	"github.com/LeeDigitalWorks/placefs/pkg/dirclient"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

// DirectoryServer is the server side of the directory gRPC service.
type DirectoryServer interface {
	AddressMappingsGet(context.Context, *dirclient.UUIDRequest) (*dirclient.AddressMappingSet, error)
	AddressMappingsSet(context.Context, *dirclient.AddressMappingSet) (*dirclient.VersionResponse, error)
	AddressMappingsRemove(context.Context, *dirclient.UUIDRequest) (*dirclient.Empty, error)
	ServiceRegister(context.Context, *dirclient.ServiceRegisterRequest) (*dirclient.VersionResponse, error)
	ServiceDeregister(context.Context, *dirclient.UUIDRequest) (*dirclient.Empty, error)
	ServiceOffline(context.Context, *dirclient.UUIDRequest) (*dirclient.Empty, error)
	ServiceGetByName(context.Context, *dirclient.NameRequest) (*dirclient.ServiceSetResponse, error)
	ServiceGetByUUID(context.Context, *dirclient.UUIDRequest) (*dirclient.ServiceSetResponse, error)
	ServiceGetByType(context.Context, *dirclient.TypeRequest) (*dirclient.ServiceSetResponse, error)
	ConfigurationGet(context.Context, *dirclient.UUIDRequest) (*types.Configuration, error)
	ConfigurationSet(context.Context, *dirclient.ConfigurationSetRequest) (*dirclient.VersionResponse, error)
	GlobalTimeGet(context.Context, *dirclient.Empty) (*dirclient.GlobalTimeResponse, error)
}

func unary[Req, Resp any](method string, call func(DirectoryServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DirectoryServer), ctx, req)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: dirclient.FullMethod(method),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DirectoryServer), ctx, req.(*Req))
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}

// ServiceDesc describes the directory service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: dirclient.ServiceName,
	HandlerType: (*DirectoryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(dirclient.MethodAddressMappingsGet, DirectoryServer.AddressMappingsGet),
		unary(dirclient.MethodAddressMappingsSet, DirectoryServer.AddressMappingsSet),
		unary(dirclient.MethodAddressMappingsRemove, DirectoryServer.AddressMappingsRemove),
		unary(dirclient.MethodServiceRegister, DirectoryServer.ServiceRegister),
		unary(dirclient.MethodServiceDeregister, DirectoryServer.ServiceDeregister),
		unary(dirclient.MethodServiceOffline, DirectoryServer.ServiceOffline),
		unary(dirclient.MethodServiceGetByName, DirectoryServer.ServiceGetByName),
		unary(dirclient.MethodServiceGetByUUID, DirectoryServer.ServiceGetByUUID),
		unary(dirclient.MethodServiceGetByType, DirectoryServer.ServiceGetByType),
		unary(dirclient.MethodConfigurationGet, DirectoryServer.ConfigurationGet),
		unary(dirclient.MethodConfigurationSet, DirectoryServer.ConfigurationSet),
		unary(dirclient.MethodGlobalTimeGet, DirectoryServer.GlobalTimeGet),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "placefs.dir.v1",
}
