// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placement

import (
	"github.com/LeeDigitalWorks/placefs/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// selectionDuration tracks chain execution time by operation
	selectionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "placefs",
		Subsystem: "placement",
		Name:      "selection_duration_seconds",
		Help:      "Time spent running selection chains",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"operation"}) // operation: "select", "usable", "replicas"

	// selectedOSDs tracks the number of OSDs returned per selection
	selectedOSDs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "placefs",
		Subsystem: "placement",
		Name:      "selected_osds",
		Help:      "Number of OSDs returned by a selection chain",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 50},
	}, []string{"operation"})

	// policySkippedTotal counts chain steps skipped because the policy is unknown
	policySkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placefs",
		Subsystem: "placement",
		Name:      "policy_skipped_total",
		Help:      "Total number of chain steps skipped for unresolvable policies",
	}, []string{"policy"})

	// attributeWritesTotal counts policy attribute writes by result
	attributeWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placefs",
		Subsystem: "placement",
		Name:      "attribute_writes_total",
		Help:      "Total number of policy attribute writes",
	}, []string{"status"}) // status: "ok", "rejected", "error"
)

func init() {
	debug.Registry().MustRegister(
		selectionDuration,
		selectedOSDs,
		policySkippedTotal,
		attributeWritesTotal,
	)
}
