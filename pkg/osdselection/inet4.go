// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Inet4Matcher matches IPv4 addresses against a network prefix.
type Inet4Matcher struct {
	prefix netip.Prefix
}

// NewInet4Matcher builds a matcher for the network of addr with the given
// prefix length. A length of 32 matches addr only.
func NewInet4Matcher(addr netip.Addr, prefixLen int) (Inet4Matcher, error) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return Inet4Matcher{}, fmt.Errorf("not an IPv4 address: %s", addr)
	}
	if prefixLen < 0 || prefixLen > 32 {
		return Inet4Matcher{}, fmt.Errorf("invalid prefix length %d", prefixLen)
	}
	p, err := addr.Prefix(prefixLen)
	if err != nil {
		return Inet4Matcher{}, err
	}
	return Inet4Matcher{prefix: p}, nil
}

// ParseInet4Matcher parses "a.b.c.d" or "a.b.c.d/len".
func ParseInet4Matcher(s string) (Inet4Matcher, error) {
	s = strings.TrimSpace(s)
	addrPart, lenPart, hasLen := strings.Cut(s, "/")
	addr, err := netip.ParseAddr(addrPart)
	if err != nil {
		return Inet4Matcher{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	prefixLen := 32
	if hasLen {
		prefixLen, err = strconv.Atoi(lenPart)
		if err != nil {
			return Inet4Matcher{}, fmt.Errorf("invalid prefix length in %q", s)
		}
	}
	return NewInet4Matcher(addr, prefixLen)
}

// Matches reports whether ip lies within the matcher's network.
func (m Inet4Matcher) Matches(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.Is4() && m.prefix.IsValid() && m.prefix.Contains(ip)
}

func (m Inet4Matcher) String() string {
	return m.prefix.String()
}
