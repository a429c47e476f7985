// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package debug serves metrics, profiling, health and status endpoints.
package debug

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ready atomic.Bool

	// Custom readiness check function (optional)
	readyCheckMu sync.RWMutex
	readyCheck   func() bool

	// Status sections rendered on /status
	statusMu       sync.RWMutex
	statusSections = make(map[string]func() any)

	// Global registry for custom metrics
	globalRegistry = prometheus.NewRegistry()
)

func init() {
	globalRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

func SetReady() {
	ready.Store(true)
}

func SetNotReady() {
	ready.Store(false)
}

// SetReadyCheck registers an additional readiness condition. IsReady
// reports true only after SetReady and while check returns true.
func SetReadyCheck(check func() bool) {
	readyCheckMu.Lock()
	defer readyCheckMu.Unlock()
	readyCheck = check
}

func IsReady() bool {
	if !ready.Load() {
		return false
	}
	readyCheckMu.RLock()
	check := readyCheck
	readyCheckMu.RUnlock()
	return check == nil || check()
}

// RegisterStatus adds a named section to /status. fn is called on every
// request and its result is encoded as JSON.
func RegisterStatus(name string, fn func() any) {
	statusMu.Lock()
	defer statusMu.Unlock()
	statusSections[name] = fn
}

// Registry returns the Prometheus registry for registering custom metrics.
func Registry() prometheus.Registerer {
	return globalRegistry
}

// Gatherer returns the registry for tests and custom exporters.
func Gatherer() prometheus.Gatherer {
	return globalRegistry
}

func GetMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(globalRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	mux.HandleFunc("/status", serveStatus)
	return mux
}

func serveStatus(w http.ResponseWriter, r *http.Request) {
	statusMu.RLock()
	names := make([]string, 0, len(statusSections))
	for name := range statusSections {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make(map[string]any, len(names))
	for _, name := range names {
		out[name] = statusSections[name]()
	}
	statusMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
