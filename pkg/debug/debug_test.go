// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package debug

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	GetMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadiness(t *testing.T) {
	SetNotReady()
	assert.Equal(t, http.StatusServiceUnavailable, get(t, "/readyz").Code)

	SetReady()
	assert.Equal(t, http.StatusOK, get(t, "/readyz").Code)

	healthy := false
	SetReadyCheck(func() bool { return healthy })
	assert.Equal(t, http.StatusServiceUnavailable, get(t, "/readyz").Code)
	healthy = true
	assert.Equal(t, http.StatusOK, get(t, "/readyz").Code)

	SetReadyCheck(nil)
	SetNotReady()
	assert.Equal(t, http.StatusOK, get(t, "/healthz").Code)
}

func TestStatus(t *testing.T) {
	RegisterStatus("dir", func() any { return map[string]string{"current": "dir0:32638"} })

	rec := get(t, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "dir0:32638", body["dir"]["current"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
