// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package dirclient

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is reported for requests that were pending when the caller
	// was closed, and for submissions after Close.
	ErrClosed = errors.New("dirclient: caller closed")
	// ErrNoServers is returned when a caller is built without addresses.
	ErrNoServers = errors.New("dirclient: no directory servers configured")
	// ErrQueueFull is returned by Submit when the request queue is full.
	ErrQueueFull = errors.New("dirclient: request queue full")
)

// POSIX error numbers carried by application errors.
const (
	EPERM  = 1
	ENOENT = 2
	EIO    = 5
	EAGAIN = 11
	EEXIST = 17
	EINVAL = 22
)

// RedirectError asks the client to resend the request to Target
// ("host:port").
type RedirectError struct {
	Target string
}

func (e *RedirectError) Error() string {
	return "redirect to " + e.Target
}

// ApplicationError is a definitive answer from the directory service. It is
// never retried.
type ApplicationError struct {
	Errno   int
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("directory service error (errno %d): %s", e.Errno, e.Message)
}

// RetriesExhaustedError is the terminal error of a request that failed on
// every attempt.
type RetriesExhaustedError struct {
	Tries int
	Last  error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("request finally failed after %d tries: %v", e.Tries, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Last }

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeRedirect
	outcomeTransport
	outcomeApplication
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeSuccess:
		return "success"
	case outcomeRedirect:
		return "redirect"
	case outcomeTransport:
		return "transport"
	case outcomeApplication:
		return "application"
	}
	return "unknown"
}

// outcome is the classified result of one attempt.
type outcome struct {
	kind   outcomeKind
	target string
	err    error
}

func classify(err error) outcome {
	if err == nil {
		return outcome{kind: outcomeSuccess}
	}
	var redirect *RedirectError
	if errors.As(err, &redirect) {
		return outcome{kind: outcomeRedirect, target: redirect.Target, err: err}
	}
	var app *ApplicationError
	if errors.As(err, &app) {
		return outcome{kind: outcomeApplication, err: err}
	}
	return outcome{kind: outcomeTransport, err: err}
}
