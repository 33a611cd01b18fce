package transcriber

import (
	"context"
	"errors"
	"net"

	"ayashare/internal/services"
)

// TimeoutDetail is the error text recorded for a segment whose request ran
// past the timeout.
const TimeoutDetail = "timeout"

// RequestError is a per-segment upload failure. It is recorded on the
// segment's transcript instead of aborting the batch.
type RequestError struct {
	Timeout bool
	Detail  string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Timeout {
		return TimeoutDetail
	}
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "transcription request failed"
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is lets services.Kind classify request failures.
func (e *RequestError) Is(target error) bool {
	if e.Timeout {
		return target == services.ErrTranscriptionTimeout
	}
	return target == services.ErrTranscriptionRequest
}

// newRequestError classifies a transport failure.
func newRequestError(err error) *RequestError {
	return &RequestError{Timeout: isTimeout(err), Detail: err.Error(), Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
