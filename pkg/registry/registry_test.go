// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/placefs/pkg/osdselection"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

type fakeLister struct {
	mu       sync.Mutex
	calls    int
	services types.ServiceSet
	err      error
}

func (f *fakeLister) ServiceGetByType(_ context.Context, t types.ServiceType) (types.ServiceSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.services.OfType(t), nil
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLister) set(services types.ServiceSet, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.services, f.err = services, err
}

func TestStale(t *testing.T) {
	t.Parallel()

	now := time.Unix(10_000, 0)
	assert.False(t, Stale(&types.ServiceEntry{LastUpdatedS: 9_700}, 300*time.Second, now))
	assert.True(t, Stale(&types.ServiceEntry{LastUpdatedS: 9_699}, 300*time.Second, now))
	assert.False(t, Stale(&types.ServiceEntry{LastUpdatedS: 10_050}, 300*time.Second, now), "clock skew is not staleness")
}

func TestStaticProvider(t *testing.T) {
	t.Parallel()

	s := NewStatic(types.ServiceSet{{UUID: "osd1"}})
	got, err := s.KnownServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"osd1"}, got.UUIDs())

	s.Update(types.ServiceSet{{UUID: "osd2"}, {UUID: "osd3"}})
	got, err = s.KnownServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"osd2", "osd3"}, got.UUIDs())
}

func TestDIRProviderStampsAge(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_000, 0)
	lister := &fakeLister{services: types.ServiceSet{
		{UUID: "osd1", Type: types.ServiceTypeOSD, LastUpdatedS: 990},
		{UUID: "mrc1", Type: types.ServiceTypeMRC, LastUpdatedS: 990},
		{UUID: "osd2", Type: types.ServiceTypeOSD, LastUpdatedS: 400},
		{UUID: "osd3", Type: types.ServiceTypeOSD},
	}}
	p := NewDIRProvider(lister, DIRProviderConfig{Now: func() time.Time { return now }})

	_, err := p.KnownServices(context.Background())
	require.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, p.Refresh(context.Background()))
	got, err := p.KnownServices(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"osd1", "osd2", "osd3"}, got.UUIDs())

	age, ok := got[0].Int64Attr(types.AttrSecondsSinceLastUpdate)
	require.True(t, ok)
	assert.Equal(t, int64(10), age)
	age, _ = got[1].Int64Attr(types.AttrSecondsSinceLastUpdate)
	assert.Equal(t, int64(600), age)
	_, ok = got[2].Attr(types.AttrSecondsSinceLastUpdate)
	assert.False(t, ok)
	_, ok = lister.services[0].Attr(types.AttrSecondsSinceLastUpdate)
	assert.False(t, ok, "source entries are not modified")

	assert.Equal(t, []string{"osd2", "osd3"}, p.StaleServices(300*time.Second).UUIDs())
	assert.Equal(t, now, p.LoadedAt())
}

func TestDIRProviderRefreshIsRateLimited(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		lister := &fakeLister{}
		p := NewDIRProvider(lister, DIRProviderConfig{MinRefreshInterval: 5 * time.Second})
		ctx := context.Background()

		require.NoError(t, p.Refresh(ctx))
		require.NoError(t, p.Refresh(ctx))
		assert.Equal(t, 1, lister.callCount())

		time.Sleep(5 * time.Second)
		require.NoError(t, p.Refresh(ctx))
		assert.Equal(t, 2, lister.callCount())
	})
}

func TestDIRProviderBackgroundPoll(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		lister := &fakeLister{services: types.ServiceSet{{UUID: "osd1", Type: types.ServiceTypeOSD}}}
		p := NewDIRProvider(lister, DIRProviderConfig{Interval: 10 * time.Second})

		require.NoError(t, p.Start(context.Background()))
		defer p.Stop()
		assert.Equal(t, 1, lister.callCount())

		lister.set(types.ServiceSet{
			{UUID: "osd1", Type: types.ServiceTypeOSD},
			{UUID: "osd2", Type: types.ServiceTypeOSD},
		}, nil)
		time.Sleep(12 * time.Second)
		synctest.Wait()

		got, err := p.KnownServices(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"osd1", "osd2"}, got.UUIDs())

		lister.set(nil, errors.New("dir down"))
		time.Sleep(12 * time.Second)
		synctest.Wait()

		got, err = p.KnownServices(context.Background())
		require.NoError(t, err)
		assert.Len(t, got, 2, "failed polls keep the previous snapshot")
	})
}

func TestDIRProviderAgesEntriesBetweenPolls(t *testing.T) {
	t.Parallel()

	var clock atomic.Int64
	clock.Store(1_000)
	now := func() time.Time { return time.Unix(clock.Load(), 0) }

	lister := &fakeLister{services: types.ServiceSet{{
		UUID:         "osd1",
		Type:         types.ServiceTypeOSD,
		LastUpdatedS: 1_000,
		Data:         types.ServiceData{{Key: types.AttrFree, Value: "100000000000"}},
	}}}
	p := NewDIRProvider(lister, DIRProviderConfig{Now: now, MinRefreshInterval: time.Nanosecond})
	filter := osdselection.NewFilterDefault(now)
	ctx := context.Background()

	require.NoError(t, p.Refresh(ctx))
	known, err := p.KnownServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"osd1"}, filter.Select(known).UUIDs())

	// The directory goes away and the heartbeat is never renewed.
	lister.set(nil, errors.New("directory unreachable"))
	clock.Add(3_600)
	time.Sleep(time.Millisecond)
	require.Error(t, p.Refresh(ctx))

	known, err = p.KnownServices(ctx)
	require.NoError(t, err)
	require.Len(t, known, 1)
	age, ok := known[0].Int64Attr(types.AttrSecondsSinceLastUpdate)
	require.True(t, ok)
	assert.Equal(t, int64(3_600), age)
	assert.Empty(t, filter.Select(known))
}
