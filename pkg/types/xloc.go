// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package types

// StripingPolicy describes how a replica's data is spread over its OSDs.
type StripingPolicy struct {
	Type         string `json:"type"`
	StripeSizeKB uint32 `json:"stripe_size_kb"`
	Width        uint32 `json:"width"`
}

// Replica is one copy of a file, stored on an ordered list of OSDs.
type Replica struct {
	OSDs     []string       `json:"osds"`
	Striping StripingPolicy `json:"striping"`
	Flags    uint32         `json:"flags"`
}

// Head returns the UUID of the replica's first OSD, or "" for an empty replica.
func (r Replica) Head() string {
	if len(r.OSDs) == 0 {
		return ""
	}
	return r.OSDs[0]
}

// XLocList is the current replica placement of a file.
type XLocList struct {
	Version      int64     `json:"version"`
	Replicas     []Replica `json:"replicas"`
	UpdatePolicy string    `json:"update_policy,omitempty"`
}

// UsedOSDs returns the set of every OSD referenced by any replica.
func (x *XLocList) UsedOSDs() map[string]struct{} {
	if x == nil {
		return nil
	}
	used := make(map[string]struct{})
	for _, r := range x.Replicas {
		for _, osd := range r.OSDs {
			used[osd] = struct{}{}
		}
	}
	return used
}

// IsConsistent reports whether no OSD is referenced twice.
func (x *XLocList) IsConsistent() bool {
	if x == nil {
		return true
	}
	seen := make(map[string]struct{})
	for _, r := range x.Replicas {
		for _, osd := range r.OSDs {
			if _, ok := seen[osd]; ok {
				return false
			}
			seen[osd] = struct{}{}
		}
	}
	return true
}

// NewXLocList builds a placement where each argument is a replica's OSD list.
func NewXLocList(replicas ...[]string) *XLocList {
	x := &XLocList{Replicas: make([]Replica, 0, len(replicas))}
	for _, osds := range replicas {
		x.Replicas = append(x.Replicas, Replica{
			OSDs:     osds,
			Striping: StripingPolicy{Type: "RAID0", StripeSizeKB: 128, Width: uint32(len(osds))},
		})
	}
	return x
}
