package transport

import (
	"time"

	"github.com/pkg/errors"
)

// Error taxonomy of stream operations.
// Orderly close is not part of it: it is reported as an unwrapped io.EOF.
var (
	ErrTimeout     = errors.New("operation timed out")
	ErrCancelled   = errors.New("operation cancelled")
	ErrConnAborted = errors.New("connection aborted")
	ErrPlatform    = errors.New("platform error")
	ErrNoProgress  = errors.New("no bytes transferred")
)

// Stream is a connected byte stream with per-operation deadlines and
// external cancellation.
//
// Partial operations transfer at most one chunk. Byte operations loop over
// partial ones and return the full length, or a shorter length only on an
// orderly close (receive) or when the peer stops accepting data after some
// progress (send).
type Stream interface {
	RecvPartial(p []byte) (int, error)
	SendPartial(p []byte) (int, error)
	ReceiveBytes(p []byte) (int, error)
	SendBytes(p []byte) (int, error)

	// ArmRecvTimer and ArmSendTimer start a new logical operation: the next
	// partial call computes a fresh deadline.
	ArmRecvTimer()
	ArmSendTimer()
	SetTimeoutSeconds(n int)

	Shutdown(how ShutdownHow) error
	Disconnect() error
	LastError() error

	Close() error
}

// OpError describes a failed stream operation. Err is one of the taxonomy
// sentinels above; Cause, if any, is what the connection reported.
type OpError struct {
	Op    string
	Err   error
	Cause error
}

func (e *OpError) Error() string {
	if e.Cause == nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error() + ": " + e.Cause.Error()
}

func (e *OpError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Timeout reports whether the operation hit its deadline.
func (e *OpError) Timeout() bool { return e.Err == ErrTimeout }

// Deadline returns the deadline that expired, if the error is a timeout.
// Zero otherwise.
func (e *OpError) Deadline() time.Time {
	var d *deadlineCause
	if errors.As(e.Cause, &d) {
		return d.at
	}
	return time.Time{}
}

type deadlineCause struct{ at time.Time }

func (d *deadlineCause) Error() string { return "deadline " + d.at.Format(time.RFC3339Nano) }

// DeadlineCause wraps the expired deadline so callers can recover it from an
// OpError.
func DeadlineCause(at time.Time) error { return &deadlineCause{at: at} }
