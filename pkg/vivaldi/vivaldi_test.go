// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package vivaldi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

func TestParseRoundTrip(t *testing.T) {
	t.Parallel()

	c, err := Parse(" 1.5  -2 0.25")
	require.NoError(t, err)
	assert.Equal(t, Coordinates{X: 1.5, Y: -2, LocalError: 0.25}, c)
	assert.Equal(t, "1.5 -2 0.25", c.String())
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "1 2", "1 2 3 4", "a b c", "NaN 0 0"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}

func TestDistance(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 5.0, Distance(Coordinates{X: 0, Y: 0}, Coordinates{X: 3, Y: 4, LocalError: 9}), 1e-9)
	assert.Equal(t, 0.0, Distance(Coordinates{X: 2, Y: 2}, Coordinates{X: 2, Y: 2}))
}

func TestFromService(t *testing.T) {
	t.Parallel()

	e := &types.ServiceEntry{UUID: "osd1", Data: types.ServiceData{{Key: types.AttrVivaldiCoordinates, Value: "3 4 0"}}}
	c, ok := FromService(e)
	require.True(t, ok)
	assert.Equal(t, 3.0, c.X)

	_, ok = FromService(&types.ServiceEntry{UUID: "osd2"})
	assert.False(t, ok)

	_, ok = FromService(e.WithAttr(types.AttrVivaldiCoordinates, "garbage"))
	assert.False(t, ok)
}
