// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package placement

import (
	"errors"
	"fmt"
)

// ErrReplicaInvariant means a replica's head OSD was lost while sorting
// replicas. It indicates a bug in a replica selection policy.
var ErrReplicaInvariant = errors.New("replica head osd missing after sort")

// Errno is a POSIX error number reported to users.
type Errno int

const (
	EPERM  Errno = 1
	EINVAL Errno = 22
)

func (e Errno) String() string {
	switch e {
	case EPERM:
		return "EPERM"
	case EINVAL:
		return "EINVAL"
	default:
		return fmt.Sprintf("errno(%d)", int(e))
	}
}

// UserError is an invalid request that must be reported to the user rather
// than logged and skipped.
type UserError struct {
	Errno   Errno
	Message string
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s: %s", e.Errno, e.Message)
}

func userErrorf(errno Errno, format string, args ...any) *UserError {
	return &UserError{Errno: errno, Message: fmt.Sprintf(format, args...)}
}

// IsUserError reports whether err carries a *UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}
