// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
	"github.com/LeeDigitalWorks/placefs/pkg/utils"
)

// ErrNotLoaded is returned before the first successful poll.
var ErrNotLoaded = errors.New("registry not loaded yet")

// ServiceLister is the directory query the provider polls.
type ServiceLister interface {
	ServiceGetByType(ctx context.Context, t types.ServiceType) (types.ServiceSet, error)
}

// DIRProviderConfig configures a DIRProvider.
type DIRProviderConfig struct {
	// Interval between background polls. Defaults to 10s.
	Interval time.Duration
	// MinRefreshInterval limits forced refreshes. Defaults to 1s.
	MinRefreshInterval time.Duration
	Now                func() time.Time
}

// DIRProvider keeps a periodically refreshed snapshot of the OSDs registered
// with the directory.
type DIRProvider struct {
	dir     ServiceLister
	cfg     DIRProviderConfig
	limiter *rate.Limiter

	snapshot atomic.Pointer[snapshot]
	pollMu   sync.Mutex

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

type snapshot struct {
	services types.ServiceSet
	loadedAt time.Time
}

func NewDIRProvider(dir ServiceLister, cfg DIRProviderConfig) *DIRProvider {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.MinRefreshInterval <= 0 {
		cfg.MinRefreshInterval = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &DIRProvider{
		dir:     dir,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.MinRefreshInterval), 1),
		done:    make(chan struct{}),
	}
}

// Start polls once and then keeps polling in the background until Stop.
// The first poll's error is returned but does not stop the background loop.
func (p *DIRProvider) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	err := p.poll(ctx)
	go p.loop(ctx)
	return err
}

func (p *DIRProvider) loop(ctx context.Context) {
	defer close(p.done)
	ticks := utils.JitteredTicker(ctx, p.cfg.Interval, 0.1)
	for range ticks {
		if err := p.poll(ctx); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("registry poll failed, keeping previous snapshot")
		}
	}
}

// Stop ends background polling.
func (p *DIRProvider) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel == nil {
			close(p.done)
			return
		}
		p.cancel()
		<-p.done
	})
}

// Refresh forces a poll unless one happened within MinRefreshInterval.
func (p *DIRProvider) Refresh(ctx context.Context) error {
	if !p.limiter.Allow() {
		return nil
	}
	return p.poll(ctx)
}

func (p *DIRProvider) poll(ctx context.Context) error {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	services, err := p.dir.ServiceGetByType(ctx, types.ServiceTypeOSD)
	if err != nil {
		return fmt.Errorf("poll directory: %w", err)
	}
	p.snapshot.Store(&snapshot{services: services.Clone(), loadedAt: p.cfg.Now()})
	logger.Debug().Int("osds", len(services)).Msg("registry refreshed")
	return nil
}

// stampAge records the seconds since the last heartbeat as service data. It
// runs on every read so the age keeps growing between polls.
func stampAge(e *types.ServiceEntry, now time.Time) *types.ServiceEntry {
	if e.LastUpdatedS == 0 {
		return e
	}
	age := max(now.Unix()-e.LastUpdatedS, 0)
	return e.WithAttr(types.AttrSecondsSinceLastUpdate, strconv.FormatInt(age, 10))
}

func (p *DIRProvider) KnownServices(context.Context) (types.ServiceSet, error) {
	s := p.snapshot.Load()
	if s == nil {
		return nil, ErrNotLoaded
	}
	now := p.cfg.Now()
	out := make(types.ServiceSet, 0, len(s.services))
	for _, e := range s.services {
		out = append(out, stampAge(e, now))
	}
	return out, nil
}

// LoadedAt returns the time of the last successful poll.
func (p *DIRProvider) LoadedAt() time.Time {
	if s := p.snapshot.Load(); s != nil {
		return s.loadedAt
	}
	return time.Time{}
}

// StaleServices returns the snapshot entries whose heartbeat is older than
// timeout.
func (p *DIRProvider) StaleServices(timeout time.Duration) types.ServiceSet {
	s := p.snapshot.Load()
	if s == nil {
		return nil
	}
	now := p.cfg.Now()
	var out types.ServiceSet
	for _, e := range s.services {
		if Stale(e, timeout, now) {
			out = append(out, e)
		}
	}
	return out
}
