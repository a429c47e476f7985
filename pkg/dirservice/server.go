// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package dirservice is an in-memory directory service. It keeps service
// registrations, address mappings and configurations, and can be told to
// redirect every call to another replica.
package dirservice

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	reqctx "github.com/LeeDigitalWorks/placefs/pkg/context"
	"github.com/LeeDigitalWorks/placefs/pkg/dirclient"
	_ "github.com/LeeDigitalWorks/placefs/pkg/grpc/codec"
	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

// Server implements DirectoryServer in memory.
type Server struct {
	now func() time.Time

	mu             sync.RWMutex
	services       map[string]*types.ServiceEntry
	mappings       map[string][]types.AddressMapping
	mappingVersion map[string]uint64
	configs        map[string]types.Configuration
	redirect       string
}

var _ DirectoryServer = (*Server)(nil)

type Option func(*Server)

// WithClock overrides the time source used for registrations and
// GlobalTimeGet.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func New(opts ...Option) *Server {
	s := &Server{
		now:            time.Now,
		services:       make(map[string]*types.ServiceEntry),
		mappings:       make(map[string][]types.AddressMapping),
		mappingVersion: make(map[string]uint64),
		configs:        make(map[string]types.Configuration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRedirect makes every call answer with a redirect to addr. An empty addr
// restores normal operation.
func (s *Server) SetRedirect(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirect = addr
}

func (s *Server) redirectTarget() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redirect
}

// NewGRPCServer returns a grpc.Server serving s.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(
				logger.InterceptorLogger(logger.Global()),
				logging.WithLogOnEvents(logging.FinishCall),
				logging.WithFieldsFromContext(requestIDFields),
			),
			recovery.UnaryServerInterceptor(),
			s.statusInterceptor,
		),
	}, opts...)
	gs := grpc.NewServer(opts...)
	gs.RegisterService(&ServiceDesc, s)
	return gs
}

func requestIDFields(ctx context.Context) logging.Fields {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}
	if ids := md.Get(reqctx.RequestKey); len(ids) > 0 {
		return logging.Fields{"request_id", ids[0]}
	}
	return nil
}

// statusInterceptor answers with the configured redirect and encodes
// directory errors as gRPC statuses.
func (s *Server) statusInterceptor(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if target := s.redirectTarget(); target != "" {
		return nil, dirclient.StatusError(&dirclient.RedirectError{Target: target})
	}
	resp, err := handler(ctx, req)
	if err != nil {
		return nil, dirclient.StatusError(err)
	}
	return resp, nil
}

func appError(errno int, msg string) error {
	return &dirclient.ApplicationError{Errno: errno, Message: msg}
}

func (s *Server) AddressMappingsGet(_ context.Context, req *dirclient.UUIDRequest) (*dirclient.AddressMappingSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := &dirclient.AddressMappingSet{Mappings: []types.AddressMapping{}}
	if req.UUID != "" {
		out.Mappings = append(out.Mappings, s.mappings[req.UUID]...)
		return out, nil
	}
	for _, uuid := range sortedKeys(s.mappings) {
		out.Mappings = append(out.Mappings, s.mappings[uuid]...)
	}
	return out, nil
}

// AddressMappingsSet replaces all mappings of one UUID. The version of the
// first mapping must equal the stored version.
func (s *Server) AddressMappingsSet(_ context.Context, req *dirclient.AddressMappingSet) (*dirclient.VersionResponse, error) {
	if len(req.Mappings) == 0 {
		return nil, appError(dirclient.EINVAL, "no address mappings given")
	}
	uuid := req.Mappings[0].UUID
	if uuid == "" {
		return nil, appError(dirclient.EINVAL, "address mapping without uuid")
	}
	for _, m := range req.Mappings[1:] {
		if m.UUID != uuid {
			return nil, appError(dirclient.EINVAL, "all mappings must share one uuid")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.mappingVersion[uuid]
	if req.Mappings[0].Version != current {
		return nil, appError(dirclient.EAGAIN, "address mapping version mismatch for "+uuid)
	}
	next := current + 1
	stored := make([]types.AddressMapping, len(req.Mappings))
	for i, m := range req.Mappings {
		m.Version = next
		if m.MatchNetwork == "" {
			m.MatchNetwork = types.MatchNetworkAny
		}
		stored[i] = m
	}
	s.mappings[uuid] = stored
	s.mappingVersion[uuid] = next
	return &dirclient.VersionResponse{NewVersion: next}, nil
}

func (s *Server) AddressMappingsRemove(_ context.Context, req *dirclient.UUIDRequest) (*dirclient.Empty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mappings[req.UUID]; !ok {
		return nil, appError(dirclient.ENOENT, "no address mappings for "+req.UUID)
	}
	delete(s.mappings, req.UUID)
	delete(s.mappingVersion, req.UUID)
	return &dirclient.Empty{}, nil
}

// ServiceRegister stores a registration. The request's version must equal
// the stored version (0 for new services); LastUpdatedS is set to now.
func (s *Server) ServiceRegister(_ context.Context, req *dirclient.ServiceRegisterRequest) (*dirclient.VersionResponse, error) {
	svc := req.Service
	if svc.UUID == "" {
		return nil, appError(dirclient.EINVAL, "service without uuid")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var current uint64
	if old, ok := s.services[svc.UUID]; ok {
		current = old.Version
	}
	if svc.Version != current {
		return nil, appError(dirclient.EAGAIN, "service version mismatch for "+svc.UUID)
	}
	svc.Version = current + 1
	svc.LastUpdatedS = s.now().Unix()
	svc.Data = append(types.ServiceData(nil), svc.Data...)
	s.services[svc.UUID] = &svc
	return &dirclient.VersionResponse{NewVersion: svc.Version}, nil
}

func (s *Server) ServiceDeregister(_ context.Context, req *dirclient.UUIDRequest) (*dirclient.Empty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.services[req.UUID]; !ok {
		return nil, appError(dirclient.ENOENT, "service "+req.UUID+" not registered")
	}
	delete(s.services, req.UUID)
	return &dirclient.Empty{}, nil
}

// ServiceOffline keeps the registration but resets its update time, so
// every staleness check treats it as offline.
func (s *Server) ServiceOffline(_ context.Context, req *dirclient.UUIDRequest) (*dirclient.Empty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.services[req.UUID]
	if !ok {
		return nil, appError(dirclient.ENOENT, "service "+req.UUID+" not registered")
	}
	c := *old
	c.LastUpdatedS = 0
	c.Version++
	s.services[req.UUID] = &c
	return &dirclient.Empty{}, nil
}

func (s *Server) ServiceGetByName(_ context.Context, req *dirclient.NameRequest) (*dirclient.ServiceSetResponse, error) {
	return s.list(func(e *types.ServiceEntry) bool { return e.Name == req.Name }), nil
}

func (s *Server) ServiceGetByUUID(_ context.Context, req *dirclient.UUIDRequest) (*dirclient.ServiceSetResponse, error) {
	return s.list(func(e *types.ServiceEntry) bool { return e.UUID == req.UUID }), nil
}

func (s *Server) ServiceGetByType(_ context.Context, req *dirclient.TypeRequest) (*dirclient.ServiceSetResponse, error) {
	return s.list(func(e *types.ServiceEntry) bool {
		return req.Type == types.ServiceTypeMixed || e.Type == req.Type
	}), nil
}

// list returns matching services ordered by UUID.
func (s *Server) list(match func(*types.ServiceEntry) bool) *dirclient.ServiceSetResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := types.ServiceSet{}
	for _, e := range s.services {
		if match(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *types.ServiceEntry) int { return cmp.Compare(a.UUID, b.UUID) })
	return &dirclient.ServiceSetResponse{Services: out}
}

// ConfigurationGet returns the stored configuration, or an empty one at
// version 0.
func (s *Server) ConfigurationGet(_ context.Context, req *dirclient.UUIDRequest) (*types.Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[req.UUID]
	if !ok {
		return &types.Configuration{UUID: req.UUID}, nil
	}
	return &cfg, nil
}

func (s *Server) ConfigurationSet(_ context.Context, req *dirclient.ConfigurationSetRequest) (*dirclient.VersionResponse, error) {
	cfg := req.Configuration
	if cfg.UUID == "" {
		return nil, appError(dirclient.EINVAL, "configuration without uuid")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Version != s.configs[cfg.UUID].Version {
		return nil, appError(dirclient.EAGAIN, "configuration version mismatch for "+cfg.UUID)
	}
	cfg.Version++
	cfg.Parameters = append(types.ServiceData(nil), cfg.Parameters...)
	s.configs[cfg.UUID] = cfg
	return &dirclient.VersionResponse{NewVersion: cfg.Version}, nil
}

func (s *Server) GlobalTimeGet(context.Context, *dirclient.Empty) (*dirclient.GlobalTimeResponse, error) {
	return &dirclient.GlobalTimeResponse{TimeMillis: s.now().UnixMilli()}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
