// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package dirclient

import (
	"sync/atomic"
)

// serverList is the ordered set of directory replicas and the index of the
// one currently in use. current is always in [0, len(servers)).
type serverList struct {
	servers []string
	current atomic.Int32
}

func newServerList(servers []string) (*serverList, error) {
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	l := &serverList{servers: make([]string, len(servers))}
	copy(l.servers, servers)
	return l, nil
}

// Current returns the index and address of the active server.
func (l *serverList) Current() (int, string) {
	i := int(l.current.Load())
	return i, l.servers[i]
}

func (l *serverList) Addr(i int) string { return l.servers[i] }

func (l *serverList) Len() int { return len(l.servers) }

// AdvanceFrom moves to the server after old, but only if old is still
// current. It returns the index in use afterwards and whether this call moved
// it.
func (l *serverList) AdvanceFrom(old int) (int, bool) {
	next := (old + 1) % len(l.servers)
	if l.current.CompareAndSwap(int32(old), int32(next)) {
		return next, true
	}
	return int(l.current.Load()), false
}

// RedirectTo makes addr current if it is one of the configured servers.
func (l *serverList) RedirectTo(addr string) (int, bool) {
	for i, s := range l.servers {
		if s == addr {
			l.current.Store(int32(i))
			return i, true
		}
	}
	return int(l.current.Load()), false
}

// Servers returns a copy of the configured addresses.
func (l *serverList) Servers() []string {
	out := make([]string, len(l.servers))
	copy(out, l.servers)
	return out
}
