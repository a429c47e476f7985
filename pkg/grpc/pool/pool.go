// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
)

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("pool is closed")

// Pool manages gRPC connections to multiple hosts.
// Connections are created on first use and reused until Remove or Close.
type Pool struct {
	mu     sync.RWMutex
	hosts  map[string]*hostPool // address -> pool
	opts   Options
	closed atomic.Bool
}

// hostPool manages connections to a single host
type hostPool struct {
	mu      sync.Mutex
	address string
	conns   []*grpc.ClientConn
	next    atomic.Uint32
	opts    Options
}

func New(opts ...Option) *Pool {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.ConnsPerHost < 1 {
		options.ConnsPerHost = 1
	}
	return &Pool{
		hosts: make(map[string]*hostPool),
		opts:  options,
	}
}

// Get returns a connection to address.
func (p *Pool) Get(address string) (*grpc.ClientConn, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	return p.getOrCreateHostPool(address).get()
}

func (p *Pool) getOrCreateHostPool(address string) *hostPool {
	p.mu.RLock()
	hp, exists := p.hosts[address]
	p.mu.RUnlock()
	if exists {
		return hp
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if hp, exists := p.hosts[address]; exists {
		return hp
	}
	hp = &hostPool{
		address: address,
		conns:   make([]*grpc.ClientConn, 0, p.opts.ConnsPerHost),
		opts:    p.opts,
	}
	p.hosts[address] = hp

	logger.Debug().Str("address", address).Msg("created new host pool")
	return hp
}

// Remove closes all connections for an address
func (p *Pool) Remove(address string) {
	p.mu.Lock()
	hp, exists := p.hosts[address]
	if exists {
		delete(p.hosts, address)
	}
	p.mu.Unlock()

	if exists {
		if err := hp.close(); err != nil {
			logger.Warn().Err(err).Str("address", address).Msg("closing removed host")
		}
	}
}

// Close closes all connections in the pool
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.mu.Lock()
	hosts := p.hosts
	p.hosts = make(map[string]*hostPool)
	p.mu.Unlock()

	var errs []error
	for _, hp := range hosts {
		if err := hp.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Addresses returns all addresses with open connections
func (p *Pool) Addresses() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	addrs := make([]string, 0, len(p.hosts))
	for addr := range p.hosts {
		addrs = append(addrs, addr)
	}
	return addrs
}

func (hp *hostPool) get() (*grpc.ClientConn, error) {
	hp.mu.Lock()
	defer hp.mu.Unlock()

	if len(hp.conns) < hp.opts.ConnsPerHost {
		return hp.createConnection()
	}

	start := int(hp.next.Add(1))
	for i := range hp.conns {
		conn := hp.conns[(start+i)%len(hp.conns)]
		if conn.GetState() != connectivity.Shutdown {
			return conn, nil
		}
	}

	// Every connection was shut down; replace the first one.
	conn, err := hp.dial()
	if err != nil {
		return nil, err
	}
	hp.conns[0] = conn
	return conn, nil
}

func (hp *hostPool) createConnection() (*grpc.ClientConn, error) {
	conn, err := hp.dial()
	if err != nil {
		return nil, err
	}
	hp.conns = append(hp.conns, conn)

	logger.Debug().
		Str("address", hp.address).
		Int("total_conns", len(hp.conns)).
		Msg("created new connection")
	return conn, nil
}

// dial creates a lazily connecting client. The passthrough scheme keeps the
// address as given so custom dialers see it unchanged.
func (hp *hostPool) dial() (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient("passthrough:///"+hp.address, hp.opts.DialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", hp.address, err)
	}
	return conn, nil
}

func (hp *hostPool) close() error {
	hp.mu.Lock()
	defer hp.mu.Unlock()

	var errs []error
	for _, conn := range hp.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	hp.conns = nil
	return errors.Join(errs...)
}
