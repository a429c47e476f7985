// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package dirclient talks to a replicated directory service. Requests fail
// over between the configured replicas and follow redirects to the replica
// that is currently in charge.
package dirclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	reqctx "github.com/LeeDigitalWorks/placefs/pkg/context"
	"github.com/LeeDigitalWorks/placefs/pkg/logger"
)

const (
	DefaultMaxRetries     = 5
	DefaultRetryWait      = time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultQueueSize      = 1000
)

// Transport sends a single request to one directory server.
type Transport interface {
	Invoke(ctx context.Context, server, method string, req, resp any) error
}

// CallFunc performs one attempt of a request against server. It is invoked
// again for every retry.
type CallFunc func(ctx context.Context, t Transport, server string) (any, error)

// Callback receives the final result of a request. It runs on a caller
// goroutine and must not block.
type Callback func(resp any, err error)

// Options configures a Caller.
type Options struct {
	// MaxRetries is the number of attempts made before giving up.
	MaxRetries int
	// RetryWait is slept before a failover and between redirects.
	RetryWait      time.Duration
	RequestTimeout time.Duration
	QueueSize      int
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:     DefaultMaxRetries,
		RetryWait:      DefaultRetryWait,
		RequestTimeout: DefaultRequestTimeout,
		QueueSize:      DefaultQueueSize,
	}
}

type Option func(*Options)

func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

func WithRetryWait(d time.Duration) Option {
	return func(o *Options) { o.RetryWait = d }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) { o.RequestTimeout = d }
}

func WithQueueSize(n int) Option {
	return func(o *Options) { o.QueueSize = n }
}

// request is the state of one logical request across its attempts.
type request struct {
	id      string
	ctx     context.Context
	gen     CallFunc
	cb      Callback
	started time.Time

	tries      int
	redirected bool
	dispatched int
	last       outcome
}

// Caller dispatches requests to the current directory server and moves to
// another one on failure or redirect. A single worker owns all retry
// decisions; attempts run concurrently.
type Caller struct {
	transport Transport
	servers   *serverList
	opts      Options

	queue  chan *request
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewCaller creates a caller for the given server addresses ("host:port").
// Call Start before submitting requests.
func NewCaller(transport Transport, servers []string, opts ...Option) (*Caller, error) {
	list, err := newServerList(servers)
	if err != nil {
		return nil, err
	}
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxRetries < 1 {
		options.MaxRetries = 1
	}
	if options.QueueSize < 1 {
		options.QueueSize = DefaultQueueSize
	}
	if options.RequestTimeout <= 0 {
		options.RequestTimeout = DefaultRequestTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Caller{
		transport: transport,
		servers:   list,
		opts:      options,
		queue:     make(chan *request, options.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start launches the worker. It is a no-op on a started or closed caller.
func (c *Caller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed {
		return
	}
	c.started = true
	c.wg.Add(1)
	go c.run()
}

// Close stops the worker, cancels attempts in flight and fails every
// pending request with ErrClosed.
func (c *Caller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	for {
		select {
		case r := <-c.queue:
			c.finish(r, nil, ErrClosed)
		default:
			return nil
		}
	}
}

// Submit queues a request. cb is invoked exactly once with the result.
func (c *Caller) Submit(gen CallFunc, cb Callback) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	id := uuid.NewString()
	r := &request{
		id:      id,
		ctx:     reqctx.FromUUID(c.ctx, id),
		gen:     gen,
		cb:      cb,
		started: time.Now(),
	}
	select {
	case c.queue <- r:
		return nil
	default:
		return ErrQueueFull
	}
}

// Call submits a request and waits for its result. If ctx ends first the
// request keeps running in the background and ctx.Err() is returned.
func (c *Caller) Call(ctx context.Context, gen CallFunc) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		resp any
		err  error
	}
	done := make(chan result, 1)
	err := c.Submit(gen, func(resp any, err error) {
		done <- result{resp: resp, err: err}
	})
	if err != nil {
		return nil, err
	}

	select {
	case res := <-done:
		return res.resp, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CurrentServer returns the address requests are currently sent to.
func (c *Caller) CurrentServer() string {
	_, addr := c.servers.Current()
	return addr
}

// Servers returns the configured server addresses in priority order.
func (c *Caller) Servers() []string {
	return c.servers.Servers()
}

func (c *Caller) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case r := <-c.queue:
			c.process(r)
		}
	}
}

// process handles the previous outcome of r, if any, and dispatches the next
// attempt.
func (c *Caller) process(r *request) {
	if r.last.err != nil {
		if r.tries >= c.opts.MaxRetries {
			c.finish(r, nil, &RetriesExhaustedError{Tries: r.tries, Last: r.last.err})
			return
		}
		if !c.handleOutcome(r) {
			c.finish(r, nil, ErrClosed)
			return
		}
	}

	r.tries++
	idx, addr := c.servers.Current()
	r.dispatched = idx
	attemptsTotal.WithLabelValues(addr).Inc()

	c.wg.Add(1)
	go c.dispatch(r, addr)
}

// handleOutcome applies a failover or redirect. It returns false if the
// caller was closed while waiting.
func (c *Caller) handleOutcome(r *request) bool {
	switch r.last.kind {
	case outcomeTransport:
		logger.Warn().
			Err(r.last.err).
			Str("request_id", r.id).
			Str("server", c.servers.Addr(r.dispatched)).
			Int("try", r.tries).
			Msg("directory request failed")
		if !c.sleep() {
			return false
		}
		if next, moved := c.servers.AdvanceFrom(r.dispatched); moved {
			failoversTotal.Inc()
			logger.Info().Str("request_id", r.id).Str("server", c.servers.Addr(next)).Msg("switching directory server")
		}

	case outcomeRedirect:
		wait := r.redirected
		r.redirected = true
		idx, ok := c.servers.RedirectTo(r.last.target)
		if !ok {
			redirectsTotal.WithLabelValues("unknown").Inc()
			logger.Error().
				Str("request_id", r.id).
				Str("target", r.last.target).
				Msg("cannot redirect to unknown directory server")
			return c.sleep()
		}
		redirectsTotal.WithLabelValues("known").Inc()
		logger.Info().Str("request_id", r.id).Str("server", c.servers.Addr(idx)).Msg("redirected to directory server")
		if wait {
			return c.sleep()
		}
	}
	return true
}

func (c *Caller) sleep() bool {
	if c.opts.RetryWait <= 0 {
		return c.ctx.Err() == nil
	}
	t := time.NewTimer(c.opts.RetryWait)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Caller) dispatch(r *request, addr string) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(r.ctx, c.opts.RequestTimeout)
	resp, err := r.gen(ctx, c.transport, addr)
	cancel()

	o := classify(err)
	switch o.kind {
	case outcomeSuccess:
		c.finish(r, resp, nil)
	case outcomeApplication:
		c.finish(r, nil, err)
	default:
		r.last = o
		select {
		case c.queue <- r:
		case <-c.ctx.Done():
			c.finish(r, nil, ErrClosed)
		}
	}
}

func (c *Caller) finish(r *request, resp any, err error) {
	var exhausted *RetriesExhaustedError
	switch {
	case err == nil:
		requestsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, ErrClosed):
		requestsTotal.WithLabelValues("closed").Inc()
	case errors.As(err, &exhausted):
		requestsTotal.WithLabelValues("retries_exhausted").Inc()
		logger.Error().Err(err).Str("request_id", r.id).Msg("directory request failed permanently")
	default:
		requestsTotal.WithLabelValues("application_error").Inc()
	}
	requestDuration.Observe(time.Since(r.started).Seconds())
	r.cb(resp, err)
}
