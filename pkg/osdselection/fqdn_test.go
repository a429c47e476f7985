// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var fqdnHosts = map[string]string{
	"osd1": "bla.xtreemfs.zib.de",
	"osd2": "www.berlin.de",
	"osd3": "blub.xtreemfs.zib.de",
	"osd4": "csr-pc29.zib.de",
	"osd5": "download.xtreemfs.com",
}

func TestMatchingLabels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, matchingLabels("xtreemfs1.zib.de", "xtreem.zib.de"))
	assert.Equal(t, 0, matchingLabels("download.xtreemfs.com", "xtreem.zib.de"))
	assert.Equal(t, 3, matchingLabels("www.berlin.de", "www.berlin.de"))
	assert.Equal(t, "xtreemfs.zib.de", domainOf("bla.xtreemfs.zib.de"))
	assert.Equal(t, "localhost", domainOf("localhost"))
}

func TestSortFQDN(t *testing.T) {
	t.Parallel()

	p := NewSortFQDN(staticHosts(map[string]string{
		"osd1": "xtreemfs1.zib.de",
		"osd2": "www.berlin.de",
		"osd3": "xtreemfs.zib.de",
		"osd4": "csr-pc29.zib.de",
		"osd5": "download.xtreemfs.com",
	}))
	all := osds("osd1", "osd2", "osd3", "osd4", "osd5")

	got := p.SelectWithContext(all, &SelectionContext{ClientAddr: "xtreem.zib.de"})
	assertOrder(t, []string{"osd1", "osd3", "osd4", "osd2", "osd5"}, got)

	got = p.SelectWithContext(all, &SelectionContext{ClientAddr: "www.berlin.de"})
	assert.Equal(t, "osd2", got[0].UUID)

	assertOrder(t, all.UUIDs(), p.Select(all))
}

func TestGroupFQDN(t *testing.T) {
	t.Parallel()

	p := NewGroupFQDN(staticHosts(fqdnHosts))
	all := osds("osd1", "osd2", "osd3", "osd4", "osd5")
	sc := func(client string, n int) *SelectionContext {
		return &SelectionContext{ClientAddr: client, NumOSDs: n}
	}

	assertOrder(t, []string{"osd1"}, p.SelectWithContext(all, sc("xtreem.zib.de", 1)))
	assertOrder(t, []string{"osd1", "osd3"}, p.SelectWithContext(all, sc("xtreem.zib.de", 2)))
	assert.Empty(t, p.SelectWithContext(all, sc("xtreem.zib.de", 4)))
	assertOrder(t, []string{"osd2"}, p.SelectWithContext(all, sc("www.berlin.de", 1)))
}
