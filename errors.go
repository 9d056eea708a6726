package gbasave

import "errors"

var (
	// ErrOperationTimedOut is returned when a device does not report
	// completion of a write or erase within its bounded poll window.
	ErrOperationTimedOut = errors.New("the operation on the backup device timed out")

	// ErrWriteFailure is returned when post-write verification disagrees
	// with the data that was written. Writes are never retried: retrying a
	// misaligned or corrupted sector could compound the damage.
	ErrWriteFailure = errors.New("unable to verify that data was written correctly")

	// ErrEndOfWriter is returned when a writer whose range is exhausted is
	// asked to write more data.
	ErrEndOfWriter = errors.New("the writer has reached the end of its range")
)
