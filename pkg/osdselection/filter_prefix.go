// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"path"
	"strings"
	"sync"

	"github.com/google/btree"

	"github.com/LeeDigitalWorks/placefs/pkg/logger"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

const attrPrefix = "prefix"

type prefixRule struct {
	prefix string
	osd    string
}

func prefixLess(a, b prefixRule) bool { return a.prefix < b.prefix }

// FilterNamePrefix pins files below a configured directory prefix to one OSD.
//
// Rules are managed with the commands "add <prefix> <uuid>",
// "remove <prefix>" and "clear" sent as the "prefix" attribute.
type FilterNamePrefix struct {
	mu    sync.RWMutex
	rules *btree.BTreeG[prefixRule]
}

func NewFilterNamePrefix() *FilterNamePrefix {
	return &FilterNamePrefix{rules: btree.NewG(8, prefixLess)}
}

func (p *FilterNamePrefix) SelectWithContext(all types.ServiceSet, sc *SelectionContext) types.ServiceSet {
	if all == nil {
		return nil
	}
	if sc == nil || sc.Path == "" {
		return all.Clone()
	}
	osd, ok := p.lookup(sc.Path)
	if !ok {
		return all.Clone()
	}
	for _, e := range all {
		if e.UUID == osd {
			return types.ServiceSet{e}
		}
	}
	return all.Clone()
}

func (p *FilterNamePrefix) Select(all types.ServiceSet) types.ServiceSet {
	return all.Clone()
}

// lookup returns the OSD of the longest prefix that contains the directory of
// file on a path component boundary.
func (p *FilterNamePrefix) lookup(file string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.rules.Len() == 0 {
		return "", false
	}
	dir := path.Dir(normalizePrefix(file))
	for {
		if r, ok := p.rules.Get(prefixRule{prefix: dir}); ok {
			return r.osd, true
		}
		if dir == "/" {
			return "", false
		}
		dir = path.Dir(dir)
	}
}

// Rules returns the configured prefix to OSD mappings in prefix order.
func (p *FilterNamePrefix) Rules() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]string, p.rules.Len())
	p.rules.Ascend(func(r prefixRule) bool {
		out[r.prefix] = r.osd
		return true
	})
	return out
}

func (p *FilterNamePrefix) Configure(key, value string) {
	if key != attrPrefix {
		return
	}
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case fields[0] == "add" && len(fields) == 3:
		p.rules.ReplaceOrInsert(prefixRule{prefix: normalizePrefix(fields[1]), osd: fields[2]})
	case fields[0] == "remove" && len(fields) == 2:
		p.rules.Delete(prefixRule{prefix: normalizePrefix(fields[1])})
	case fields[0] == "clear" && len(fields) == 1:
		p.rules.Clear(false)
	default:
		logger.Warn().Str("command", value).Msg("invalid name prefix command")
	}
}

func normalizePrefix(s string) string {
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return path.Clean(s)
}
