// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package vivaldi holds the network coordinates OSDs publish for
// latency-aware sorting.
package vivaldi

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

// Coordinates is a point in the two-dimensional Vivaldi space.
type Coordinates struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	LocalError float64 `json:"local_error"`
}

// Parse reads the "<x> <y> <localError>" wire format.
func Parse(s string) (Coordinates, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return Coordinates{}, fmt.Errorf("vivaldi: expected 3 fields, got %d in %q", len(fields), s)
	}
	var vals [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Coordinates{}, fmt.Errorf("vivaldi: parse %q: %w", f, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Coordinates{}, fmt.Errorf("vivaldi: non-finite value %q", f)
		}
		vals[i] = v
	}
	return Coordinates{X: vals[0], Y: vals[1], LocalError: vals[2]}, nil
}

func (c Coordinates) String() string {
	return strconv.FormatFloat(c.X, 'f', -1, 64) + " " +
		strconv.FormatFloat(c.Y, 'f', -1, 64) + " " +
		strconv.FormatFloat(c.LocalError, 'f', -1, 64)
}

// Distance is the Euclidean distance between a and b. The error term is ignored.
func Distance(a, b Coordinates) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// FromService reads the coordinates published by a service.
func FromService(e *types.ServiceEntry) (Coordinates, bool) {
	raw, ok := e.Attr(types.AttrVivaldiCoordinates)
	if !ok {
		return Coordinates{}, false
	}
	c, err := Parse(raw)
	if err != nil {
		return Coordinates{}, false
	}
	return c, true
}
