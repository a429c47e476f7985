// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinHostPort(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "10.0.0.1:32638", JoinHostPort("10.0.0.1", 32638))
	assert.Equal(t, "[::1]:32638", JoinHostPort("::1", 32638))
	assert.Equal(t, "[::1]:32638", JoinHostPort("[::1]", 32638))
}

func TestNewListener(t *testing.T) {
	t.Parallel()
	lis, err := NewListener("127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	assert.Contains(t, lis.Addr().String(), "127.0.0.1:")
}

func TestResolvePath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/etc/placefs", ResolvePath("/etc/placefs"))
	assert.NotContains(t, ResolvePath("~/conf"), "~")
	assert.Empty(t, ResolvePath(""))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "conf"), ResolvePath("~/conf"))
}

func TestEnsureWritableDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureWritableDir(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "the write check leaves nothing behind")

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, EnsureWritableDir(file))
}
