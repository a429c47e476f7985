// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"context"
	"math/rand/v2"
	"time"
)

// Jitter spreads base by up to ±fraction so that periodic work started at
// the same time on many servers drifts apart.
//
// Example: Jitter(time.Minute, 0.1) returns 54s-66s
func Jitter(base time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || base <= 0 {
		return base
	}
	fraction = min(fraction, 1)
	spread := float64(base) * fraction
	return base + time.Duration((rand.Float64()*2-1)*spread)
}

// JitteredTicker sends on the returned channel at jittered intervals until
// ctx is done, then closes it. Ticks are dropped while the receiver is busy.
func JitteredTicker(ctx context.Context, base time.Duration, fraction float64) <-chan time.Time {
	ch := make(chan time.Time, 1)
	go func() {
		defer close(ch)
		for {
			timer := time.NewTimer(Jitter(base, fraction))
			select {
			case t := <-timer.C:
				select {
				case ch <- t:
				default:
				}
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()
	return ch
}
