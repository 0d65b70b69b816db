// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrStreamNotOpen is returned by Stream.Send when the stream is not in
// the open state. Callers fall back to SendMessage.
var ErrStreamNotOpen = errors.New("stream not open")

// =============================================================================
// ERROR TYPES
// =============================================================================

// TransportError reports a failed request/response call or a failed
// stream write. Status is zero when no HTTP response was received.
type TransportError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error { return e.Err }

// NotFound reports whether the backend answered 404.
func (e *TransportError) NotFound() bool { return e.Status == 404 }

// ParseError reports a payload that could not be decoded. Payload holds a
// truncated copy of the offending bytes for logging.
type ParseError struct {
	Op      string
	Payload string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed payload: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Err }

// ConnectivityError reports that the backend is unreachable: a failed
// health check, a failed stream dial, or a stream that dropped.
type ConnectivityError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConnectivityError) Unwrap() error { return e.Err }

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsParse reports whether err is or wraps a *ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsConnectivity reports whether err is or wraps a *ConnectivityError.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

func truncatePayload(b []byte) string {
	const max = 256
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
