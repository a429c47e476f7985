// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/uuidresolver"
)

const lookupTimeout = 2 * time.Second

// hostLookup resolves OSDs and clients to host names and IPv4 addresses.
type hostLookup struct {
	uuids uuidresolver.Resolver
	dns   DNSResolver
}

func newHostLookup(env Environment) hostLookup {
	return hostLookup{uuids: env.UUIDs, dns: env.DNS}
}

func (h hostLookup) osdHost(uuid string) (string, bool) {
	if h.uuids == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	addr, err := h.uuids.Resolve(ctx, uuid)
	if err != nil {
		logger.Debug().Err(err).Str("osd", uuid).Msg("cannot resolve osd uuid")
		return "", false
	}
	return addr.Host, true
}

// hostName returns the lower-case host name of an OSD, reverse resolving IP
// literals.
func (h hostLookup) hostName(uuid string) (string, bool) {
	host, ok := h.osdHost(uuid)
	if !ok {
		return "", false
	}
	return h.canonicalName(host), true
}

// ipv4 returns the IPv4 address of an OSD.
func (h hostLookup) ipv4(uuid string) (netip.Addr, bool) {
	host, ok := h.osdHost(uuid)
	if !ok {
		return netip.Addr{}, false
	}
	return h.toIPv4(host)
}

// canonicalName turns an IP literal or host name into a lower-case host name.
// IP literals that cannot be reverse resolved are returned as is.
func (h hostLookup) canonicalName(host string) string {
	host = strings.TrimSpace(host)
	if _, err := netip.ParseAddr(host); err == nil && h.dns != nil {
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		defer cancel()
		names, err := h.dns.LookupAddr(ctx, host)
		if err == nil && len(names) > 0 {
			host = names[0]
		}
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

func (h hostLookup) toIPv4(host string) (netip.Addr, bool) {
	host = strings.TrimSpace(host)
	if ip, err := netip.ParseAddr(host); err == nil {
		ip = ip.Unmap()
		return ip, ip.Is4()
	}
	if h.dns == nil || host == "" {
		return netip.Addr{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	addrs, err := h.dns.LookupHost(ctx, host)
	if err != nil {
		logger.Debug().Err(err).Str("host", host).Msg("cannot resolve host")
		return netip.Addr{}, false
	}
	for _, a := range addrs {
		if ip, err := netip.ParseAddr(a); err == nil && ip.Unmap().Is4() {
			return ip.Unmap(), true
		}
	}
	return netip.Addr{}, false
}
