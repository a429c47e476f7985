// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package dirclient

import (
	"github.com/LeeDigitalWorks/placefs/pkg/debug"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// attemptsTotal counts dispatched attempts per directory server
	attemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placefs",
		Subsystem: "dirclient",
		Name:      "attempts_total",
		Help:      "Total number of request attempts sent to directory servers",
	}, []string{"server"})

	// failoversTotal counts switches to the next server after transport errors
	failoversTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "placefs",
		Subsystem: "dirclient",
		Name:      "failovers_total",
		Help:      "Total number of failovers to the next directory server",
	})

	// redirectsTotal counts redirects by whether the target was configured
	redirectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placefs",
		Subsystem: "dirclient",
		Name:      "redirects_total",
		Help:      "Total number of redirects received from directory servers",
	}, []string{"target"}) // target: "known", "unknown"

	// requestsTotal counts finished logical requests by result
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placefs",
		Subsystem: "dirclient",
		Name:      "requests_total",
		Help:      "Total number of finished directory requests",
	}, []string{"result"}) // result: "success", "application_error", "retries_exhausted", "closed"

	requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "placefs",
		Subsystem: "dirclient",
		Name:      "request_duration_seconds",
		Help:      "End-to-end duration of directory requests including retries",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

func init() {
	debug.Registry().MustRegister(
		attemptsTotal,
		failoversTotal,
		redirectsTotal,
		requestsTotal,
		requestDuration,
	)
}
