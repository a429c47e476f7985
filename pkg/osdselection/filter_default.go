// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

const (
	attrOfflineTimeSecs   = "offline_time_secs"
	attrFreeCapacityBytes = "free_capacity_bytes"
	attrHealthCheck       = "osd_health_check"
	denyPrefix            = "not."

	defaultOfflineTimeSecs   = 300
	defaultFreeCapacityBytes = 2 * 1024 * 1024 * 1024
)

// FilterDefault removes OSDs that are offline, full, not available or
// unhealthy, then applies the configured custom property allow and deny
// lists.
type FilterDefault struct {
	now func() time.Time

	mu              sync.RWMutex
	offlineTimeSecs int64
	minFreeBytes    uint64
	healthThreshold types.HealthResult
	allow           map[string][]string
	deny            map[string][]string
}

func NewFilterDefault(now func() time.Time) *FilterDefault {
	if now == nil {
		now = time.Now
	}
	return &FilterDefault{
		now:             now,
		offlineTimeSecs: defaultOfflineTimeSecs,
		minFreeBytes:    defaultFreeCapacityBytes,
		healthThreshold: types.HealthWarning,
		allow:           make(map[string][]string),
		deny:            make(map[string][]string),
	}
}

func (p *FilterDefault) SelectWithContext(all types.ServiceSet, sc *SelectionContext) types.ServiceSet {
	if sc != nil {
		all = RemoveUsed(all, sc.XLocs)
	}
	return p.Select(all)
}

func (p *FilterDefault) Select(all types.ServiceSet) types.ServiceSet {
	if all == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	now := p.now().Unix()
	out := make(types.ServiceSet, 0, len(all))
	for _, e := range all {
		if reason := p.reject(e, now); reason != "" {
			logger.Trace().Str("osd", e.UUID).Str("reason", reason).Msg("osd filtered")
			continue
		}
		out = append(out, e)
	}
	return out
}

// reject returns the reason e is excluded, or "" if it passes.
func (p *FilterDefault) reject(e *types.ServiceEntry, now int64) string {
	if p.timedOut(e, now) {
		return "offline"
	}
	if !p.hasFreeCapacity(e) {
		return "free capacity"
	}
	if raw, ok := e.Attr(types.AttrStatus); ok {
		status, err := types.ParseServiceStatus(raw)
		if err != nil || status != types.ServiceStatusAvailable {
			return "status"
		}
	}
	if raw, ok := e.Attr(types.AttrHealthCheck); ok {
		if health, err := types.ParseHealthResult(raw); err == nil &&
			health.Severity() > 0 && health.Severity() >= p.healthThreshold.Severity() {
			return "health check"
		}
	}
	for key, denied := range p.deny {
		if v, ok := e.Attr(types.CustomPropertyPrefix + key); ok && slices.Contains(denied, v) {
			return "denied " + key
		}
	}
	for key, allowed := range p.allow {
		v, ok := e.Attr(types.CustomPropertyPrefix + key)
		if !ok || !slices.Contains(allowed, v) {
			return "not allowed " + key
		}
	}
	return ""
}

// timedOut measures the heartbeat age against the clock. The stamped age
// attribute is only consulted for entries without a heartbeat timestamp.
func (p *FilterDefault) timedOut(e *types.ServiceEntry, now int64) bool {
	if e.LastUpdatedS != 0 {
		return now-e.LastUpdatedS > p.offlineTimeSecs
	}
	if secs, ok := e.Int64Attr(types.AttrSecondsSinceLastUpdate); ok {
		return secs > p.offlineTimeSecs
	}
	return true
}

func (p *FilterDefault) hasFreeCapacity(e *types.ServiceEntry) bool {
	raw, ok := e.Attr(types.AttrFree)
	if !ok {
		return false
	}
	free, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return false
	}
	return free >= p.minFreeBytes
}

func (p *FilterDefault) Configure(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch key {
	case attrOfflineTimeSecs:
		if value == "" {
			p.offlineTimeSecs = defaultOfflineTimeSecs
			return
		}
		secs, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || secs < 0 {
			logger.Warn().Str("key", key).Str("value", value).Msg("invalid policy attribute")
			return
		}
		p.offlineTimeSecs = secs
	case attrFreeCapacityBytes:
		if value == "" {
			p.minFreeBytes = defaultFreeCapacityBytes
			return
		}
		n, err := humanize.ParseBytes(strings.TrimSpace(value))
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Str("value", value).Msg("invalid policy attribute")
			return
		}
		p.minFreeBytes = n
	case attrHealthCheck:
		switch strings.ToUpper(strings.TrimSpace(value)) {
		case "", "WARNING":
			p.healthThreshold = types.HealthWarning
		case "FAILED":
			p.healthThreshold = types.HealthFailed
		default:
			logger.Warn().Str("key", key).Str("value", value).Msg("invalid policy attribute")
		}
	default:
		target, name := p.allow, key
		if strings.HasPrefix(key, denyPrefix) {
			target, name = p.deny, strings.TrimPrefix(key, denyPrefix)
		}
		values := strings.Fields(value)
		if len(values) == 0 {
			delete(target, name)
			return
		}
		target[name] = values
	}
}
