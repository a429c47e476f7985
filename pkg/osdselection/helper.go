// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package osdselection

import (
	"math/rand/v2"
	"slices"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

// RemoveUsed returns the entries of all that are not referenced by any
// replica in xlocs. A nil or empty placement returns all unchanged.
func RemoveUsed(all types.ServiceSet, xlocs *types.XLocList) types.ServiceSet {
	if all == nil {
		return nil
	}
	if xlocs == nil || len(xlocs.Replicas) == 0 {
		return all
	}
	used := xlocs.UsedOSDs()
	out := make(types.ServiceSet, 0, len(all))
	for _, e := range all {
		if _, ok := used[e.UUID]; ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SortStable returns a sorted copy of set. Entries comparing equal keep their
// relative order.
func SortStable(set types.ServiceSet, cmp func(a, b *types.ServiceEntry) int) types.ServiceSet {
	if set == nil {
		return nil
	}
	out := set.Clone()
	slices.SortStableFunc(out, cmp)
	return out
}

// Shuffle returns a uniformly permuted copy of set. A nil rng uses the
// process-wide source.
func Shuffle(set types.ServiceSet, rng *rand.Rand) types.ServiceSet {
	if set == nil {
		return nil
	}
	out := set.Clone()
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if rng == nil {
		rand.Shuffle(len(out), swap)
	} else {
		rng.Shuffle(len(out), swap)
	}
	return out
}

// Reverse returns a reversed copy of set.
func Reverse(set types.ServiceSet) types.ServiceSet {
	if set == nil {
		return nil
	}
	out := set.Clone()
	slices.Reverse(out)
	return out
}
