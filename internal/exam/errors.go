package exam

import "errors"

var (
	// ErrBatchUnavailable means a batch kept failing with transient errors
	// until the retry budget ran out.
	ErrBatchUnavailable = errors.New("question batch unavailable")
	// ErrGeneration means the generator returned something unusable.
	ErrGeneration = errors.New("question generation failed")
	// ErrEmptyFirstBatch means the first batch held no questions.
	ErrEmptyFirstBatch = errors.New("first question batch is empty")
	// ErrStreamCancelled is returned by a stream cancelled before its
	// first batch was merged.
	ErrStreamCancelled = errors.New("question stream cancelled")
	// ErrInvalidTransition means the operation is not allowed in the
	// current step.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrUnknownExamType means the exam type id is not in the catalog.
	ErrUnknownExamType = errors.New("unknown exam type")
	// ErrInvalidOption means the selected key is not one of A..E.
	ErrInvalidOption = errors.New("invalid option")
	// ErrSuperseded is returned by a Start whose session was restarted or
	// closed before the first batch arrived.
	ErrSuperseded = errors.New("exam start superseded")
)
