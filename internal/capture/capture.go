// Package capture owns the recording resource lifecycle: acquire the
// capture device, record, stop, release. Device, stream and recorder are
// capability interfaces so the controller can run against a real camera, a
// synthetic source, or a test fake.
package capture

import (
	"context"
	"fmt"
)

// DenialReason names why device acquisition failed.
type DenialReason string

const (
	DeniedPermission DenialReason = "permission-denied"
	DeniedNotFound   DenialReason = "not-found"
	DeniedBusy       DenialReason = "device-busy"
)

// DeniedError is a user-facing device acquisition failure. It is never
// retried internally; recovery is a user-initiated restart.
type DeniedError struct {
	Reason DenialReason
	Err    error
}

func (e *DeniedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture device denied (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("capture device denied (%s)", e.Reason)
}

func (e *DeniedError) Unwrap() error { return e.Err }

// Constraints are the minimum requirements passed to device acquisition.
type Constraints struct {
	MinWidth  int
	MinHeight int
}

// Track is one media track of an acquired stream. Every track must be
// stopped on release so the camera indicator does not stay lit.
type Track interface {
	Kind() string
	Stop()
}

// Stream is an acquired capture stream. It doubles as the sampler's frame
// source.
type Stream interface {
	Tracks() []Track
	Frame(ctx context.Context) ([]byte, error)
}

// Device acquires capture streams.
type Device interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// Recording is an in-progress recording. Stop flushes and returns the
// recorded payload.
type Recording interface {
	Stop(ctx context.Context) ([]byte, error)
}

// Recorder begins recordings on an acquired stream.
type Recorder interface {
	Begin(stream Stream) (Recording, error)
}
