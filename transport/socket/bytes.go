package socket

import (
	"io"
	"log/slog"

	"stream-server/transport"

	"github.com/pkg/errors"
)

// ReceiveBytes receives exactly len(p) bytes under one deadline.
// If the peer closes the connection first, the bytes received so far are
// returned with a nil error. A timeout or failure returns 0 and the error,
// even though part of p may already have been filled.
func (s *Socket) ReceiveBytes(p []byte) (int, error) {
	s.ArmRecvTimer()

	total := 0
	for total < len(p) {
		n, err := s.RecvPartial(p[total:])
		if errors.Is(err, io.EOF) {
			s.logger.Debug("short receive",
				slog.Int("received", total),
				slog.Int("expected", len(p)))
			break
		}
		if err != nil {
			return 0, err
		}
		total += n
	}

	return total, nil
}

// SendBytes sends all of p under one deadline.
// Once some bytes went out, a send that makes no progress ends the loop with
// the short count and a nil error. No progress at all is an error.
func (s *Socket) SendBytes(p []byte) (int, error) {
	s.ArmSendTimer()

	total := 0
	for total < len(p) {
		n, err := s.SendPartial(p[total:])
		if err != nil {
			return 0, err
		}
		if n == 0 {
			if total == 0 {
				return 0, s.fail(&transport.OpError{Op: s.send.name, Err: transport.ErrNoProgress})
			}
			s.logger.Debug("short send",
				slog.Int("sent", total),
				slog.Int("expected", len(p)))
			break
		}
		total += n
	}

	return total, nil
}
