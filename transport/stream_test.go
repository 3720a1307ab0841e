package transport

import (
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpError(t *testing.T) {
	t.Run("matches sentinel and cause", func(t *testing.T) {
		err := error(&OpError{Op: "recv", Err: ErrConnAborted, Cause: syscall.ECONNRESET})

		assert.ErrorIs(t, err, ErrConnAborted)
		assert.ErrorIs(t, err, syscall.ECONNRESET)
		assert.NotErrorIs(t, err, ErrTimeout)
		assert.NotErrorIs(t, err, io.EOF)
		assert.Equal(t, "recv: connection aborted: connection reset by peer", err.Error())

		var errno syscall.Errno
		require.ErrorAs(t, err, &errno)
		assert.Equal(t, syscall.ECONNRESET, errno)
	})

	t.Run("without cause", func(t *testing.T) {
		err := &OpError{Op: "send", Err: ErrCancelled}

		assert.ErrorIs(t, err, ErrCancelled)
		assert.Equal(t, "send: operation cancelled", err.Error())
		assert.False(t, err.Timeout())
		assert.True(t, err.Deadline().IsZero())
	})

	t.Run("timeout keeps deadline", func(t *testing.T) {
		at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		err := error(&OpError{Op: "recv", Err: ErrTimeout, Cause: DeadlineCause(at)})

		var opErr *OpError
		require.ErrorAs(t, errors.Wrap(err, "reading header"), &opErr)
		assert.True(t, opErr.Timeout())
		assert.True(t, at.Equal(opErr.Deadline()))
		assert.ErrorIs(t, err, ErrTimeout)
	})
}

func TestShutdownHowString(t *testing.T) {
	tests := []struct {
		how  ShutdownHow
		want string
	}{
		{ShutdownRead, "read"},
		{ShutdownWrite, "write"},
		{ShutdownBoth, "both"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.how.String())
	}
}
