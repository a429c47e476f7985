// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

func testCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	addStoreFlags(c.Flags())
	c.Flags().String("dcmap_file", "", "")
	c.Flags().String("coords", "", "")
	require.NoError(t, c.ParseFlags(args))
	return c
}

func TestFlagLoaderPrefersExplicitFlags(t *testing.T) {
	viper.Set("redis_prefix", "from-config")
	t.Cleanup(func() { viper.Set("redis_prefix", nil) })

	fl := NewFlagLoader(testCommand(t))
	assert.Equal(t, "from-config", fl.String("redis_prefix"))

	fl = NewFlagLoader(testCommand(t, "--redis_prefix", "from-flag"))
	assert.Equal(t, "from-flag", fl.String("redis_prefix"))
}

func TestOpenStoreRedisKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := openStore(NewFlagLoader(testCommand(t, "--xattr_kind", "redis", "--redis_addr", mr.Addr())))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(context.Background(), "vol1", "xtreemfs.osel_policy", "1000,3000"))
	assert.Equal(t, "1000,3000", mr.HGet("placefs:xattr:vol1", "xtreemfs.osel_policy"))
	assert.False(t, mr.Exists("placefsvol1"))
}

func TestParseReplicas(t *testing.T) {
	t.Parallel()

	assert.Nil(t, parseReplicas(nil))

	x := parseReplicas([]string{"osd1, osd2", "osd3", " , "})
	require.Len(t, x.Replicas, 2)
	assert.Equal(t, []string{"osd1", "osd2"}, x.Replicas[0].OSDs)
	assert.Equal(t, "osd3", x.Replicas[1].Head())
}

func TestClientCoords(t *testing.T) {
	t.Parallel()

	c, err := clientCoords(NewFlagLoader(testCommand(t, "--coords", "10,20,0.5")))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 10.0, c.X)
	assert.Equal(t, 20.0, c.Y)

	_, err = clientCoords(NewFlagLoader(testCommand(t, "--coords", "1 2")))
	assert.Error(t, err)
}

func TestPolicyStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	c := testCommand(t, "--xattr_kind", "leveldb", "--xattr_dir", dir)

	manager, store, err := openPolicyStore(c)
	require.NoError(t, err)
	require.NoError(t, manager.SetXAttr(ctx, "vol", "xtreemfs.osel_policy", "1000,1002,3998"))
	require.NoError(t, manager.SetXAttr(ctx, "vol", "xtreemfs.policies.1002.uuids", "osd1"))
	require.NoError(t, store.Close())

	manager, store, err = openPolicyStore(c)
	require.NoError(t, err)
	defer store.Close()
	v, ok, err := manager.GetXAttr(ctx, "vol", "xtreemfs.osel_policy")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1000,1002,3998", v)

	info, err := manager.VolumeInfo(ctx, "vol")
	require.NoError(t, err)
	attrs, err := manager.ListPolicyAttrs(ctx, "vol")
	require.NoError(t, err)

	var out bytes.Buffer
	printVolumePolicy(&out, info, attrs)
	assert.Contains(t, out.String(), "xtreemfs.osel_policy = 1000,1002,3998  [FilterDefault FilterUUID SortUUID]")
	assert.Contains(t, out.String(), "xtreemfs.policies.1002.uuids = osd1")
}

func TestPrintOSDs(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	osds := types.ServiceSet{
		{UUID: "osd1", LastUpdatedS: now.Unix() - 30, Data: types.ServiceData{
			{Key: types.AttrFree, Value: "2000000000"},
			{Key: types.AttrStatus, Value: "1"},
		}},
		{UUID: "osd2"},
	}

	var out bytes.Buffer
	printOSDs(&out, osds, now)
	assert.Contains(t, out.String(), "2.0 GB")
	assert.Contains(t, out.String(), "30 seconds ago")
	assert.Contains(t, out.String(), "to_be_removed")
	assert.Contains(t, out.String(), "never")

	out.Reset()
	printOSDs(&out, nil, now)
	assert.Contains(t, out.String(), "no usable OSDs")
}

func TestPrintPolicyIDs(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	printPolicyIDs(&out)
	assert.Contains(t, out.String(), "1000  FilterDefault")
	assert.Contains(t, out.String(), "3999  SortReverse")
}
