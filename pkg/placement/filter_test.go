// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placement

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/placefs/pkg/osdselection"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
	"github.com/LeeDigitalWorks/placefs/pkg/uuidresolver"
	"github.com/LeeDigitalWorks/placefs/pkg/vivaldi"
)

func healthyOSD(uuid string, kv ...string) *types.ServiceEntry {
	e := &types.ServiceEntry{UUID: uuid, Name: uuid, Type: types.ServiceTypeOSD, Version: 1}
	e.Data = types.ServiceData{
		{Key: types.AttrFree, Value: "10000000000"},
		{Key: types.AttrSecondsSinceLastUpdate, Value: "0"},
		{Key: types.AttrStatus, Value: "0"},
	}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Data = e.Data.With(kv[i], kv[i+1])
	}
	return e
}

func fiveOSDs() types.ServiceSet {
	return types.ServiceSet{
		healthyOSD("osd5"), healthyOSD("osd2"), healthyOSD("osd4"), healthyOSD("osd1"), healthyOSD("osd3"),
	}
}

func newFilter(osdPolicy, replicaPolicy []osdselection.PolicyID, attrs map[string]string) *VolumeOSDFilter {
	f := NewVolumeOSDFilter(osdselection.NewFactory(osdselection.Environment{UUIDs: uuidresolver.NewStatic()}))
	f.Init(VolumeInfo{ID: "vol", OSDPolicy: osdPolicy, ReplicaPolicy: replicaPolicy}, attrs)
	return f
}

func TestEndToEndFilterChain(t *testing.T) {
	t.Parallel()

	f := newFilter([]osdselection.PolicyID{
		osdselection.FilterDefaultID,
		osdselection.FilterUUIDID,
		osdselection.SortUUIDID,
	}, nil, nil)

	sc := &osdselection.SelectionContext{
		ClientAddr: "10.0.0.1",
		XLocs:      types.NewXLocList([]string{"osd2"}, []string{"osd4"}),
		NumOSDs:    2,
	}
	got := f.ApplyOSDSelection(fiveOSDs(), sc)
	assert.Equal(t, []string{"osd1", "osd3", "osd5"}, got.UUIDs(), "a pure sort chain never truncates")

	simple := f.ApplyOSDSelectionSimple(fiveOSDs())
	assert.Equal(t, []string{"osd1", "osd2", "osd3", "osd4", "osd5"}, simple.UUIDs())
}

func TestChainSkipsUnknownPolicy(t *testing.T) {
	t.Parallel()

	valid := newFilter([]osdselection.PolicyID{osdselection.SortUUIDID}, nil, nil)
	withUnknown := newFilter([]osdselection.PolicyID{4242, osdselection.SortUUIDID}, nil, nil)

	before := testutil.ToFloat64(policySkippedTotal.WithLabelValues("4242"))
	assert.Equal(t, valid.ApplyOSDSelection(fiveOSDs(), nil).UUIDs(), withUnknown.ApplyOSDSelection(fiveOSDs(), nil).UUIDs())
	assert.Equal(t, valid.ApplyOSDSelectionSimple(fiveOSDs()).UUIDs(), withUnknown.ApplyOSDSelectionSimple(fiveOSDs()).UUIDs())
	assert.Equal(t, before+2, testutil.ToFloat64(policySkippedTotal.WithLabelValues("4242")), "skipped with a warning on every run")
}

func TestInitReplaysAttributes(t *testing.T) {
	t.Parallel()

	f := newFilter(
		[]osdselection.PolicyID{osdselection.FilterDefaultID, osdselection.FilterUUIDID, osdselection.SortReverseID},
		nil,
		map[string]string{
			"1000.free_capacity_bytes": "20GB",
			"1002.uuids":               "osd1 osd3 osd4",
			"free_capacity_bytes":      "1",
			"4711.foo":                 "bar",
		},
	)
	all := fiveOSDs()
	all[4] = healthyOSD("osd3", types.AttrFree, "30000000000")
	all[2] = healthyOSD("osd4", types.AttrFree, "25000000000")

	got := f.ApplyOSDSelectionSimple(all)
	assert.Equal(t, []string{"osd3", "osd4"}, got.UUIDs())
}

func TestConfigureRequiresPolicyID(t *testing.T) {
	t.Parallel()

	f := newFilter([]osdselection.PolicyID{osdselection.FilterUUIDID}, nil, nil)

	err := f.Configure("uuids", "osd1")
	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, EPERM, ue.Errno)
	assert.Contains(t, ue.Message, "policy ID required")
	assert.Contains(t, ue.Message, "1000.uuids")

	for _, bad := range []string{"1002.", ".uuids", "abc.uuids"} {
		assert.True(t, IsUserError(f.Configure(bad, "x")), bad)
	}
	assert.True(t, IsUserError(f.Configure("4711.uuids", "x")))

	require.NoError(t, f.Configure("1002.uuids", "osd1"))
	assert.Equal(t, []string{"osd1"}, f.ApplyOSDSelectionSimple(fiveOSDs()).UUIDs())
}

func TestVolumesDoNotShareConfiguration(t *testing.T) {
	t.Parallel()

	factory := osdselection.NewFactory(osdselection.Environment{})
	a := NewVolumeOSDFilter(factory)
	b := NewVolumeOSDFilter(factory)
	chain := []osdselection.PolicyID{osdselection.FilterUUIDID}
	a.Init(VolumeInfo{ID: "a", OSDPolicy: chain}, map[string]string{"1002.uuids": "osd1"})
	b.Init(VolumeInfo{ID: "b", OSDPolicy: chain}, nil)

	assert.Len(t, a.ApplyOSDSelectionSimple(fiveOSDs()), 1)
	assert.Len(t, b.ApplyOSDSelectionSimple(fiveOSDs()), 5)
}

func TestSortReplicasByPolicy(t *testing.T) {
	t.Parallel()

	coords := func(x, y float64) string { return vivaldi.Coordinates{X: x, Y: y}.String() }
	known := types.ServiceSet{
		healthyOSD("osdA", types.AttrVivaldiCoordinates, coords(50, 50)),
		healthyOSD("osdB", types.AttrVivaldiCoordinates, coords(1, 1)),
		healthyOSD("osdC", types.AttrVivaldiCoordinates, coords(10, 10)),
	}
	xlocs := types.NewXLocList(
		[]string{"osdA", "osdA2"},
		[]string{"osdGone", "osdX"},
		[]string{"osdB", "osdB2"},
		[]string{"osdC"},
	)
	f := newFilter(nil, []osdselection.PolicyID{osdselection.SortVivaldiID}, nil)

	client := &vivaldi.Coordinates{}
	sorted, err := f.SortReplicasByPolicy(known, "10.0.0.1", client, xlocs.Replicas)
	require.NoError(t, err)

	heads := make([]string, len(sorted))
	for i, r := range sorted {
		heads[i] = r.Head()
	}
	assert.Equal(t, []string{"osdB", "osdC", "osdA", "osdGone"}, heads)
	assert.Equal(t, []string{"osdB", "osdB2"}, sorted[0].OSDs, "replicas are re-expanded in full")

	unsorted, err := newFilter(nil, nil, nil).SortReplicasByPolicy(known, "", nil, xlocs.Replicas)
	require.NoError(t, err)
	assert.Equal(t, xlocs.Replicas, unsorted)
}

func TestSortReplicasRejectsSharedHead(t *testing.T) {
	t.Parallel()

	f := newFilter(nil, []osdselection.PolicyID{osdselection.SortReverseID}, nil)
	_, err := f.SortReplicasByPolicy(nil, "", nil, types.NewXLocList([]string{"osd1"}, []string{"osd1", "osd2"}).Replicas)
	assert.ErrorIs(t, err, ErrReplicaInvariant)
}

func TestSetChains(t *testing.T) {
	t.Parallel()

	f := newFilter([]osdselection.PolicyID{osdselection.SortUUIDID}, nil, nil)
	f.SetChains([]osdselection.PolicyID{osdselection.SortReverseID}, nil)
	assert.Equal(t, []string{"osd3", "osd1", "osd4", "osd2", "osd5"}, f.ApplyOSDSelectionSimple(fiveOSDs()).UUIDs())
	assert.Equal(t, []osdselection.PolicyID{osdselection.SortReverseID}, f.Info().OSDPolicy)
	assert.Empty(t, f.Info().ReplicaPolicy)
}
