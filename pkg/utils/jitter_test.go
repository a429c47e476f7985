// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJitterBounds(t *testing.T) {
	t.Parallel()

	for i := 0; i < 1000; i++ {
		d := Jitter(time.Minute, 0.1)
		assert.GreaterOrEqual(t, d, 54*time.Second)
		assert.LessOrEqual(t, d, 66*time.Second)
	}
	assert.Equal(t, time.Second, Jitter(time.Second, 0))
	assert.Equal(t, time.Duration(0), Jitter(0, 0.5))
}

func TestJitteredTickerStopsWithContext(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ticks := JitteredTicker(ctx, 10*time.Second, 0.2)

		start := time.Now()
		<-ticks
		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, 8*time.Second)
		assert.LessOrEqual(t, elapsed, 12*time.Second)

		cancel()
		synctest.Wait()
		for range ticks {
		}
	})
}
