// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Well-known service data keys published by OSDs in their heartbeats.
const (
	AttrFree                   = "free"
	AttrUsed                   = "used"
	AttrTotal                  = "total"
	AttrSecondsSinceLastUpdate = "seconds_since_last_update"
	AttrVivaldiCoordinates     = "vivaldi_coordinates"
	AttrStatus                 = "status"
	AttrHealthCheck            = "osd_health_check"

	// CustomPropertyPrefix prefixes administrator-defined OSD properties
	// (e.g. "config.country").
	CustomPropertyPrefix = "config."
)

// ServiceType identifies the kind of service registered with the directory.
type ServiceType int

const (
	ServiceTypeMixed ServiceType = iota
	ServiceTypeMRC
	ServiceTypeOSD
	ServiceTypeVolume
	ServiceTypeDIR
)

func (t ServiceType) String() string {
	switch t {
	case ServiceTypeMixed:
		return "MIXED"
	case ServiceTypeMRC:
		return "MRC"
	case ServiceTypeOSD:
		return "OSD"
	case ServiceTypeVolume:
		return "VOLUME"
	case ServiceTypeDIR:
		return "DIR"
	default:
		return fmt.Sprintf("ServiceType(%d)", int(t))
	}
}

// ParseServiceType parses a service type name (case insensitive).
func ParseServiceType(s string) (ServiceType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MIXED", "":
		return ServiceTypeMixed, nil
	case "MRC":
		return ServiceTypeMRC, nil
	case "OSD":
		return ServiceTypeOSD, nil
	case "VOLUME":
		return ServiceTypeVolume, nil
	case "DIR":
		return ServiceTypeDIR, nil
	}
	return ServiceTypeMixed, fmt.Errorf("unknown service type %q", s)
}

// ServiceStatus is the administrative status an OSD reports.
type ServiceStatus int

const (
	ServiceStatusAvailable ServiceStatus = iota
	ServiceStatusToBeRemoved
	ServiceStatusRemoved
)

func (s ServiceStatus) String() string {
	switch s {
	case ServiceStatusAvailable:
		return "available"
	case ServiceStatusToBeRemoved:
		return "to_be_removed"
	case ServiceStatusRemoved:
		return "removed"
	default:
		return fmt.Sprintf("ServiceStatus(%d)", int(s))
	}
}

// ParseServiceStatus accepts the numeric wire value or the symbolic name.
func ParseServiceStatus(s string) (ServiceStatus, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < int(ServiceStatusAvailable) || n > int(ServiceStatusRemoved) {
			return 0, fmt.Errorf("invalid service status %d", n)
		}
		return ServiceStatus(n), nil
	}
	switch strings.ToLower(s) {
	case "available", "avail":
		return ServiceStatusAvailable, nil
	case "to_be_removed":
		return ServiceStatusToBeRemoved, nil
	case "removed":
		return ServiceStatusRemoved, nil
	}
	return 0, fmt.Errorf("invalid service status %q", s)
}

// HealthResult is the outcome of an OSD's local health check.
type HealthResult int

const (
	HealthPassed HealthResult = iota
	HealthWarning
	HealthFailed
	HealthNotAvailable
)

func (h HealthResult) String() string {
	switch h {
	case HealthPassed:
		return "PASSED"
	case HealthWarning:
		return "WARNING"
	case HealthFailed:
		return "FAILED"
	case HealthNotAvailable:
		return "NOT_AVAIL"
	default:
		return fmt.Sprintf("HealthResult(%d)", int(h))
	}
}

// Severity orders results for threshold comparisons. A missing check counts
// as passed.
func (h HealthResult) Severity() int {
	switch h {
	case HealthWarning:
		return 1
	case HealthFailed:
		return 2
	default:
		return 0
	}
}

// ParseHealthResult accepts the numeric wire value or the symbolic name.
func ParseHealthResult(s string) (HealthResult, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < int(HealthPassed) || n > int(HealthNotAvailable) {
			return 0, fmt.Errorf("invalid health result %d", n)
		}
		return HealthResult(n), nil
	}
	switch strings.ToUpper(s) {
	case "PASSED":
		return HealthPassed, nil
	case "WARNING":
		return HealthWarning, nil
	case "FAILED":
		return HealthFailed, nil
	case "NOT_AVAIL", "NOT_AVAILABLE":
		return HealthNotAvailable, nil
	}
	return 0, fmt.Errorf("invalid health result %q", s)
}

// KeyValuePair is a single service data entry.
type KeyValuePair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ServiceData is an ordered list of attributes. Lookups return the first
// matching key.
type ServiceData []KeyValuePair

// Get returns the value stored under key.
func (d ServiceData) Get(key string) (string, bool) {
	for _, kv := range d {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// With returns a copy of d with key set to value. An existing key keeps its
// position.
func (d ServiceData) With(key, value string) ServiceData {
	out := make(ServiceData, 0, len(d)+1)
	replaced := false
	for _, kv := range d {
		if kv.Key == key {
			if !replaced {
				out = append(out, KeyValuePair{Key: key, Value: value})
				replaced = true
			}
			continue
		}
		out = append(out, kv)
	}
	if !replaced {
		out = append(out, KeyValuePair{Key: key, Value: value})
	}
	return out
}

// Map returns the attributes as a map. Later duplicates are ignored.
func (d ServiceData) Map() map[string]string {
	m := make(map[string]string, len(d))
	for _, kv := range d {
		if _, ok := m[kv.Key]; !ok {
			m[kv.Key] = kv.Value
		}
	}
	return m
}

// ServiceDataFromMap builds ServiceData with keys in the given order, or in
// sorted order if keys is nil.
func ServiceDataFromMap(m map[string]string, keys ...string) ServiceData {
	if len(keys) == 0 {
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
	}
	d := make(ServiceData, 0, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			d = append(d, KeyValuePair{Key: k, Value: v})
		}
	}
	return d
}

// ServiceEntry is an immutable snapshot of a registered service.
type ServiceEntry struct {
	UUID         string      `json:"uuid"`
	Type         ServiceType `json:"type"`
	Version      uint64      `json:"version"`
	Name         string      `json:"name"`
	LastUpdatedS int64       `json:"last_updated_s"`
	Data         ServiceData `json:"data,omitempty"`
}

// Attr returns a service data attribute.
func (e *ServiceEntry) Attr(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	return e.Data.Get(key)
}

// Int64Attr parses a numeric attribute.
func (e *ServiceEntry) Int64Attr(key string) (int64, bool) {
	v, ok := e.Attr(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// WithAttr returns a copy of the entry with one attribute replaced.
func (e *ServiceEntry) WithAttr(key, value string) *ServiceEntry {
	c := *e
	c.Data = e.Data.With(key, value)
	return &c
}

// ServiceSet is an ordered list of services. Order is significant for
// tie breaking in every selection policy.
type ServiceSet []*ServiceEntry

// UUIDs returns the UUIDs in order.
func (s ServiceSet) UUIDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	for i, e := range s {
		out[i] = e.UUID
	}
	return out
}

// Clone returns a shallow copy; entries are shared since they are immutable.
func (s ServiceSet) Clone() ServiceSet {
	if s == nil {
		return nil
	}
	out := make(ServiceSet, len(s))
	copy(out, s)
	return out
}

// Index maps UUID to entry. The first entry wins on duplicates.
func (s ServiceSet) Index() map[string]*ServiceEntry {
	m := make(map[string]*ServiceEntry, len(s))
	for _, e := range s {
		if _, ok := m[e.UUID]; !ok {
			m[e.UUID] = e
		}
	}
	return m
}

// Contains reports whether an entry with uuid is present.
func (s ServiceSet) Contains(uuid string) bool {
	for _, e := range s {
		if e.UUID == uuid {
			return true
		}
	}
	return false
}

// OfType returns the entries of the given type, preserving order.
func (s ServiceSet) OfType(t ServiceType) ServiceSet {
	out := make(ServiceSet, 0, len(s))
	for _, e := range s {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
