package server

import (
	"context"
	"io"

	"stream-server/transport"

	"github.com/pkg/errors"
)

// Echo returns a handler that writes back everything it receives.
// An idle connection keeps waiting on the same outstanding receive until the
// peer sends, closes, or the server shuts down.
func Echo(bufSize int) HandleFunc {
	return func(ctx context.Context, stream transport.Stream) error {
		buf := make([]byte, bufSize)
		for {
			stream.ArmRecvTimer()
			n, err := stream.RecvPartial(buf)
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case errors.Is(err, transport.ErrTimeout):
				continue
			case err != nil:
				return err
			}

			if _, err := stream.SendBytes(buf[:n]); err != nil {
				return err
			}
		}
	}
}
