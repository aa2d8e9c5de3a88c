/*
DESCRIPTION
  Typed errors raised by the series manager.

AUTHORS
  Rodrigo Gan <rodrigo@neutro.app>

LICENSE
  Copyright (C) 2025-2026 the Neutro Impacto Verde project.

  This is free software: you can redistribute it and/or modify it
  under the terms of the GNU General Public License as published by
  the Free Software Foundation, either version 3 of the License, or
  (at your option) any later version.

  It is distributed in the hope that it will be useful,
  but WITHOUT ANY WARRANTY; without even the implied warranty of
  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
  GNU General Public License for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt. If not, see http://www.gnu.org/licenses/.
*/

package series

import (
	"fmt"

	"github.com/neutroapp/coleta/datastore"
)

// ValidationError reports a violated precondition, such as a
// transition attempted from the wrong state or a missing required
// reason. It is not retryable; the caller must correct the request.
type ValidationError struct {
	Op     string // Operation that was attempted.
	Reason string // Why the request was rejected.
}

// Error returns an error string for errors of type ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// NotFoundError reports an absent series or occurrence, or the
// absence of any eligible scheduled occurrence to act on. It is not
// retryable as-is.
type NotFoundError struct {
	Op   string // Operation that was attempted.
	What string // What was not found.
	Err  error  // Underlying store error, if any.
}

// Error returns an error string for errors of type NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found", e.Op, e.What)
}

// Unwrap returns the underlying store error, so that
// errors.Is(err, datastore.ErrNoSuchEntity) holds where the store
// reported the absence.
func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return datastore.ErrNoSuchEntity
}

// ConflictError reports that the optimistic concurrency check failed
// on an occurrence write: the occurrence list changed between read
// and write. The caller retries the whole operation, re-reading and
// recomputing; partial merges are never attempted.
type ConflictError struct {
	Op       string // Operation that was attempted.
	SeriesID string // Series whose occurrence list changed.
}

// Error returns an error string for errors of type ConflictError.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: occurrence list for series %s changed since read", e.Op, e.SeriesID)
}

// Unwrap returns datastore.ErrConflict so the conflict remains
// visible through errors.Is.
func (e *ConflictError) Unwrap() error {
	return datastore.ErrConflict
}

// UpstreamError reports a failure talking to the store, such as a
// timeout or an unavailable backend. It is retryable with backoff;
// the request itself was well formed.
type UpstreamError struct {
	Op  string // Operation that was attempted.
	Err error  // Underlying store error.
}

// Error returns an error string for errors of type UpstreamError.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying store error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// PartialFailureError reports that the primary state transition
// succeeded but a dependent side effect failed, most notably the
// notification dispatch triggered by an acceptance. The caller can
// retry the side effect without re-running the primary transition.
type PartialFailureError struct {
	Op   string // Operation whose side effect failed.
	Sent int    // Notifications sent before the failure.
	Err  error  // The side effect's error.
}

// Error returns an error string for errors of type PartialFailureError.
func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s succeeded but notification dispatch failed after %d notifications: %v", e.Op, e.Sent, e.Err)
}

// Unwrap returns the side effect's error.
func (e *PartialFailureError) Unwrap() error {
	return e.Err
}
