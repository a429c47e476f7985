// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReusesConnection(t *testing.T) {
	t.Parallel()
	p := New()
	defer p.Close()

	a, err := p.Get("127.0.0.1:32638")
	require.NoError(t, err)
	b, err := p.Get("127.0.0.1:32638")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := p.Get("127.0.0.1:32639")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.ElementsMatch(t, []string{"127.0.0.1:32638", "127.0.0.1:32639"}, p.Addresses())
}

func TestConnsPerHost(t *testing.T) {
	t.Parallel()
	p := New(WithConnsPerHost(2))
	defer p.Close()

	a, err := p.Get("127.0.0.1:32638")
	require.NoError(t, err)
	b, err := p.Get("127.0.0.1:32638")
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	seen := map[any]bool{}
	for range 4 {
		c, err := p.Get("127.0.0.1:32638")
		require.NoError(t, err)
		seen[c] = true
	}
	assert.Len(t, seen, 2)
}

func TestRemoveAndClose(t *testing.T) {
	t.Parallel()
	p := New()

	a, err := p.Get("127.0.0.1:32638")
	require.NoError(t, err)
	p.Remove("127.0.0.1:32638")
	assert.Empty(t, p.Addresses())

	b, err := p.Get("127.0.0.1:32638")
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	_, err = p.Get("127.0.0.1:32638")
	assert.ErrorIs(t, err, ErrClosed)
}
