// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceDataWith(t *testing.T) {
	t.Parallel()

	d := ServiceData{{Key: "free", Value: "1"}, {Key: "status", Value: "0"}}
	d2 := d.With("free", "2").With("total", "9")

	v, ok := d.Get("free")
	require.True(t, ok)
	assert.Equal(t, "1", v, "original must not change")

	assert.Equal(t, ServiceData{
		{Key: "free", Value: "2"},
		{Key: "status", Value: "0"},
		{Key: "total", Value: "9"},
	}, d2)
}

func TestServiceDataFromMapSortsKeys(t *testing.T) {
	t.Parallel()

	d := ServiceDataFromMap(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, ServiceData{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}, d)
}

func TestParseServiceStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    ServiceStatus
		wantErr bool
	}{
		{"0", ServiceStatusAvailable, false},
		{"1", ServiceStatusToBeRemoved, false},
		{"removed", ServiceStatusRemoved, false},
		{"7", 0, true},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseServiceStatus(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestHealthSeverity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, HealthPassed.Severity())
	assert.Equal(t, 0, HealthNotAvailable.Severity())
	assert.Less(t, HealthPassed.Severity(), HealthWarning.Severity())
	assert.Less(t, HealthWarning.Severity(), HealthFailed.Severity())

	h, err := ParseHealthResult("WARNING")
	require.NoError(t, err)
	assert.Equal(t, HealthWarning, h)
}

func TestXLocList(t *testing.T) {
	t.Parallel()

	x := NewXLocList([]string{"osd1", "osd2"}, []string{"osd3"})
	assert.Equal(t, "osd1", x.Replicas[0].Head())
	assert.Len(t, x.UsedOSDs(), 3)
	assert.True(t, x.IsConsistent())

	x.Replicas = append(x.Replicas, Replica{OSDs: []string{"osd2"}})
	assert.False(t, x.IsConsistent())

	var nilList *XLocList
	assert.Nil(t, nilList.UsedOSDs())
	assert.Equal(t, "", Replica{}.Head())
}

func TestServiceSetHelpers(t *testing.T) {
	t.Parallel()

	s := ServiceSet{
		{UUID: "a", Type: ServiceTypeOSD},
		{UUID: "b", Type: ServiceTypeMRC},
		{UUID: "a", Type: ServiceTypeOSD, Name: "dup"},
	}
	assert.Equal(t, []string{"a", "b", "a"}, s.UUIDs())
	assert.Equal(t, "", s.Index()["a"].Name)
	assert.Len(t, s.OfType(ServiceTypeOSD), 2)
	assert.True(t, s.Contains("b"))

	var empty ServiceSet
	assert.Nil(t, empty.UUIDs())
	assert.Nil(t, empty.Clone())

	n, ok := (&ServiceEntry{Data: ServiceData{{Key: "free", Value: " 42 "}}}).Int64Attr("free")
	require.True(t, ok)
	assert.Equal(t, int64(42), n)
}
