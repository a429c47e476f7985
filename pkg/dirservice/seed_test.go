// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package dirservice_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/placefs/pkg/dirclient"
	"github.com/LeeDigitalWorks/placefs/pkg/dirservice"
	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

func TestSeed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	srv := dirservice.New(dirservice.WithClock(fixedNow))

	services := types.ServiceSet{
		{UUID: "osd1", Type: types.ServiceTypeOSD, Version: 7},
		{UUID: "osd2", Type: types.ServiceTypeOSD},
	}
	mappings := []types.AddressMapping{
		{UUID: "osd1", Protocol: "grpc", Address: "10.0.0.1", Port: 32640},
		{UUID: "osd1", Protocol: "grpc", Address: "192.168.0.1", Port: 32640, MatchNetwork: "192.168.0.0/16"},
		{UUID: "osd2", Protocol: "grpc", Address: "10.0.0.2", Port: 32640},
	}
	require.NoError(t, srv.Seed(ctx, services, mappings))

	resp, err := srv.ServiceGetByType(ctx, &dirclient.TypeRequest{Type: types.ServiceTypeOSD})
	require.NoError(t, err)
	require.Len(t, resp.Services, 2)
	assert.Equal(t, uint64(1), resp.Services[0].Version)
	assert.Equal(t, fixedNow().Unix(), resp.Services[0].LastUpdatedS)

	got, err := srv.AddressMappingsGet(ctx, &dirclient.UUIDRequest{UUID: "osd1"})
	require.NoError(t, err)
	require.Len(t, got.Mappings, 2)
	assert.Equal(t, types.MatchNetworkAny, got.Mappings[0].MatchNetwork)

	assert.Equal(t, dirservice.Stats{Services: 2, AddressEntries: 3}, srv.Stats())

	err = srv.Seed(ctx, services[:1], nil)
	var appErr *dirclient.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, dirclient.EAGAIN, appErr.Errno)

	srv.SetRedirect("dir1:32638")
	assert.Equal(t, "dir1:32638", srv.Stats().RedirectTo)
}
