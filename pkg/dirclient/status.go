// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package dirclient

import (
	"errors"
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorInfo reasons attached to directory service statuses.
const (
	ReasonRedirect = "REDIRECT"
	ReasonErrno    = "ERRNO"

	errorDomain = "placefs.dir"
)

var errnoCodes = map[int]codes.Code{
	EPERM:  codes.PermissionDenied,
	ENOENT: codes.NotFound,
	EAGAIN: codes.FailedPrecondition,
	EEXIST: codes.AlreadyExists,
	EINVAL: codes.InvalidArgument,
}

// transportCodes are retried on the next server.
var transportCodes = map[codes.Code]bool{
	codes.Unavailable:       true,
	codes.DeadlineExceeded:  true,
	codes.Canceled:          true,
	codes.Aborted:           true,
	codes.Internal:          true,
	codes.Unknown:           true,
	codes.ResourceExhausted: true,
}

func withInfo(code codes.Code, msg, reason string, md map[string]string) error {
	st := status.New(code, msg)
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   errorDomain,
		Metadata: md,
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

// StatusError converts *RedirectError and *ApplicationError into gRPC
// status errors. Other errors are returned as Internal.
func StatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var redirect *RedirectError
	if errors.As(err, &redirect) {
		return withInfo(codes.FailedPrecondition, err.Error(), ReasonRedirect, map[string]string{"target": redirect.Target})
	}
	var app *ApplicationError
	if errors.As(err, &app) {
		code, ok := errnoCodes[app.Errno]
		if !ok {
			code = codes.FailedPrecondition
		}
		return withInfo(code, app.Message, ReasonErrno, map[string]string{"errno": strconv.Itoa(app.Errno)})
	}
	return status.Error(codes.Internal, err.Error())
}

// FromStatusError classifies an error returned by a gRPC call.
func FromStatusError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		switch info.GetReason() {
		case ReasonRedirect:
			return &RedirectError{Target: info.GetMetadata()["target"]}
		case ReasonErrno:
			errno, perr := strconv.Atoi(info.GetMetadata()["errno"])
			if perr != nil {
				errno = EIO
			}
			return &ApplicationError{Errno: errno, Message: st.Message()}
		}
	}
	if transportCodes[st.Code()] {
		return err
	}
	return &ApplicationError{Errno: errnoFromCode(st.Code()), Message: st.Message()}
}

func errnoFromCode(code codes.Code) int {
	switch code {
	case codes.PermissionDenied, codes.Unauthenticated:
		return EPERM
	case codes.NotFound:
		return ENOENT
	case codes.FailedPrecondition:
		return EAGAIN
	case codes.AlreadyExists:
		return EEXIST
	case codes.InvalidArgument, codes.OutOfRange:
		return EINVAL
	}
	return EIO
}
