// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

var dcProps = map[string]string{
	"datacenters":  "A,B,C",
	"distance.A-B": "10",
	"distance.A-C": "100",
	"distance.B-C": "50",
	"A.addresses":  "192.168.1.1,192.168.2.0/24",
	"B.addresses":  "192.168.1.2,192.168.3.0/24",
	"C.addresses":  "192.168.1.3,192.168.4.0/24,192.168.10.10",
}

var dcHosts = map[string]string{
	"osd1": "192.168.2.10",
	"osd2": "192.168.3.11",
	"osd3": "192.168.4.100",
	"osd4": "192.168.1.1",
}

func configureAll(p Policy, props map[string]string) {
	for k, v := range props {
		p.Configure(k, v)
	}
}

func TestInet4Matcher(t *testing.T) {
	t.Parallel()

	ifa1 := netip.MustParseAddr("192.168.1.125")
	ifa2 := netip.MustParseAddr("192.168.1.126")
	ifa3 := netip.MustParseAddr("192.168.1.254")
	ifa4 := netip.MustParseAddr("192.168.10.125")
	ifa5 := netip.MustParseAddr("10.0.1.125")
	addrs := []netip.Addr{ifa1, ifa2, ifa3, ifa4, ifa5}

	tests := []struct {
		prefixLen int
		want      []bool
	}{
		{32, []bool{true, false, false, false, false}},
		{25, []bool{true, true, false, false, false}},
		{24, []bool{true, true, true, false, false}},
		{16, []bool{true, true, true, true, false}},
		{1, []bool{true, true, true, true, false}},
	}
	for _, tt := range tests {
		m, err := NewInet4Matcher(ifa1, tt.prefixLen)
		require.NoError(t, err)
		for i, a := range addrs {
			assert.Equal(t, tt.want[i], m.Matches(a), "/%d matches %s", tt.prefixLen, a)
		}
	}

	m, err := ParseInet4Matcher("192.168.2.0/24")
	require.NoError(t, err)
	assert.True(t, m.Matches(netip.MustParseAddr("192.168.2.100")))
	assert.False(t, m.Matches(netip.MustParseAddr("::1")))

	for _, bad := range []string{"", "::1", "192.168.1.1/33", "192.168.1.1/x", "host"} {
		_, err := ParseInet4Matcher(bad)
		assert.Error(t, err, bad)
	}
}

func TestDCMapRejectsInvalidNames(t *testing.T) {
	t.Parallel()

	_, err := DCMapConfigFromProperties(map[string]string{"datacenters": "A,B,yagg-blupp"}).Build()
	assert.Error(t, err)

	m, err := DCMapConfigFromProperties(dcProps).Build()
	require.NoError(t, err)
	a := m.Datacenter(netip.MustParseAddr("192.168.2.5"))
	c := m.Datacenter(netip.MustParseAddr("192.168.10.10"))
	assert.Equal(t, "A", m.Name(a))
	assert.Equal(t, "C", m.Name(c))
	assert.Equal(t, 100, m.Distance(a, c))
	assert.Equal(t, 0, m.Distance(a, a))
	assert.Equal(t, -1, m.Datacenter(netip.MustParseAddr("10.0.0.1")))
	assert.Equal(t, MaxDistance, m.Distance(a, -1))
}

func TestSortDCMap(t *testing.T) {
	t.Parallel()

	p := NewSortDCMap(nil, staticHosts(dcHosts))
	configureAll(p, dcProps)
	all := osds("osd1", "osd2", "osd3", "osd4")

	got := p.SelectWithContext(all, &SelectionContext{ClientAddr: "192.168.2.100", NumOSDs: 4})
	assertOrder(t, []string{"osd1", "osd4", "osd2", "osd3"}, got)

	got = p.SelectWithContext(all, &SelectionContext{ClientAddr: "192.168.3.100", NumOSDs: 4})
	assertOrder(t, []string{"osd2", "osd1", "osd4", "osd3"}, got)

	assertOrder(t, all.UUIDs(), p.Select(all))
}

func TestSortDCMapInvalidAttributeKeepsMap(t *testing.T) {
	t.Parallel()

	p := NewSortDCMap(nil, staticHosts(dcHosts))
	configureAll(p, dcProps)
	p.Configure("datacenters", "A,B,bad-name")
	require.NotNil(t, p.dcMap())

	got := p.SelectWithContext(osds("osd3", "osd2", "osd1"), &SelectionContext{ClientAddr: "192.168.2.100"})
	assertOrder(t, []string{"osd1", "osd2", "osd3"}, got)

	p.Configure("datacenters", "")
	assert.Nil(t, p.dcMap())
}

func TestGroupDCMap(t *testing.T) {
	t.Parallel()

	p := NewGroupDCMap(nil, staticHosts(dcHosts))
	configureAll(p, dcProps)
	all := osds("osd1", "osd2", "osd3", "osd4")

	got := p.SelectWithContext(all, &SelectionContext{ClientAddr: "192.168.2.100", NumOSDs: 2})
	assertOrder(t, []string{"osd1", "osd4"}, got)

	got = p.SelectWithContext(all, &SelectionContext{ClientAddr: "192.168.2.100", NumOSDs: 3})
	assert.Empty(t, got)

	got = p.SelectWithContext(all, &SelectionContext{ClientAddr: "192.168.3.100", NumOSDs: 1})
	assertOrder(t, []string{"osd2"}, got)

	// Members of a datacenter need not be adjacent; their input order is kept.
	got = p.SelectWithContext(osds("osd4", "osd2", "osd3", "osd1"), &SelectionContext{ClientAddr: "192.168.2.100", NumOSDs: 2})
	assertOrder(t, []string{"osd4", "osd1"}, got)
}

func TestGroupLengthIsZeroOrNumOSDs(t *testing.T) {
	t.Parallel()

	dc := NewGroupDCMap(nil, staticHosts(dcHosts))
	configureAll(dc, dcProps)
	fqdn := NewGroupFQDN(staticHosts(fqdnHosts))
	all := osds("osd1", "osd2", "osd3", "osd4", "osd5")

	for _, p := range []Policy{dc, fqdn} {
		for _, client := range []string{"", "192.168.2.100", "xtreem.zib.de"} {
			for n := 0; n <= 6; n++ {
				got := p.SelectWithContext(all, &SelectionContext{ClientAddr: client, NumOSDs: n})
				assert.True(t, len(got) == 0 || len(got) == n, "%T client=%q n=%d got %d", p, client, n, len(got))
			}
		}
	}
}

func TestDCMapFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dcmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
datacenters:
  - name: A
    addresses: [192.168.1.1, 192.168.2.0/24]
  - name: B
    addresses: [192.168.1.2, 192.168.3.0/24]
  - name: C
    addresses: [192.168.1.3, 192.168.4.0/24]
distances:
  A-B: 10
  A-C: 100
  B-C: 50
`), 0o644))

	r := staticHosts(dcHosts)
	f := NewFactory(Environment{UUIDs: r.uuids, DCMapFile: path})
	p, err := f.New(SortDCMapID)
	require.NoError(t, err)

	all := osds("osd1", "osd2", "osd3", "osd4")
	got := p.SelectWithContext(all, &SelectionContext{ClientAddr: "192.168.3.100"})
	assertOrder(t, []string{"osd2", "osd1", "osd4", "osd3"}, got)

	bad := NewFactory(Environment{DCMapFile: filepath.Join(t.TempDir(), "missing.yaml")})
	_, err = bad.New(GroupDCMapID)
	assert.Error(t, err)
}

func TestDCMapUnknownOSDsSortLast(t *testing.T) {
	t.Parallel()

	hosts := map[string]string{"osd1": "10.1.1.1", "osd2": "192.168.3.5"}
	p := NewSortDCMap(nil, staticHosts(hosts))
	configureAll(p, dcProps)

	all := types.ServiceSet{osd("osd1"), osd("unresolved"), osd("osd2")}
	got := p.SelectWithContext(all, &SelectionContext{ClientAddr: "192.168.2.1"})
	assertOrder(t, []string{"osd2", "osd1", "unresolved"}, got)
}
