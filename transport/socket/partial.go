package socket

import (
	"io"
	"log/slog"

	"stream-server/transport"

	"github.com/pkg/errors"
)

// RecvPartial receives up to len(p) bytes.
//
// A receive that timed out earlier is still outstanding; it is waited on
// again instead of being submitted a second time. An orderly close by the
// peer is reported as io.EOF.
func (s *Socket) RecvPartial(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, transport.ErrConnClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	d := &s.recv
	if len(d.carry) > 0 {
		n := copy(p, d.carry)
		d.carry = d.carry[n:]
		return n, nil
	}

	d.deadLine.arm(s.Timeout())

	if d.state == stateIdle {
		d.pending(submit(&s.inflight, d.stage(len(p)), s.conn.Read))
	}

	if err := s.wait(d); err != nil {
		return 0, err
	}

	op := d.reap()
	if op.n > 0 {
		n := copy(p, op.buf[:op.n])
		if n < op.n {
			d.carry = append(d.carry[:0], op.buf[n:op.n]...)
		}
		return n, nil
	}

	if errors.Is(op.err, io.EOF) {
		s.logger.Debug("peer closed connection")
		return 0, io.EOF
	}
	return 0, s.fail(&transport.OpError{Op: d.name, Err: transport.ErrConnAborted, Cause: op.err})
}

// SendPartial sends up to len(p) bytes.
//
// Unlike RecvPartial, every call submits a new send. A send left outstanding
// by an earlier timeout or cancellation is not waited on again.
func (s *Socket) SendPartial(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, transport.ErrConnClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	d := &s.send
	d.deadLine.arm(s.Timeout())

	if d.state == statePending {
		s.logger.Warn("submitting send while previous send is outstanding",
			slog.Int("outstanding", len(d.op.buf)),
			slog.Int("size", len(p)))
		// The abandoned send still owns its buffer.
		d.staging = nil
	}

	buf := d.stage(len(p))
	copy(buf, p)
	d.pending(submit(&s.inflight, buf, s.conn.Write))

	if err := s.wait(d); err != nil {
		return 0, err
	}

	op := d.reap()
	if op.n > 0 || op.err == nil {
		return op.n, nil
	}
	return 0, s.fail(&transport.OpError{Op: d.name, Err: transport.ErrConnAborted, Cause: op.err})
}

// wait blocks until the direction's operation completes, the deadline passes
// or the stop signal fires. The operation stays pending unless it completed.
// Stop is checked first, so it wins over a completion that is also ready.
func (s *Socket) wait(d *direction) error {
	if d.deadLine.remaining() <= 0 {
		return s.timedOut(d)
	}

	if isClosed(s.stop) {
		return s.cancelled(d)
	}

	if s.onWait != nil {
		s.onWait(d.name)
	}

	select {
	case <-s.stop:
		return s.cancelled(d)
	case <-d.op.done:
		if isClosed(s.stop) {
			return s.cancelled(d)
		}
		return nil
	case <-d.deadLine.wait():
		return s.timedOut(d)
	}
}

func (s *Socket) timedOut(d *direction) error {
	at := d.deadLine.expiry()
	s.logger.Debug("operation timed out", slog.String("op", d.name), slog.Time("deadline", at))
	return s.fail(&transport.OpError{Op: d.name, Err: transport.ErrTimeout, Cause: transport.DeadlineCause(at)})
}

func (s *Socket) cancelled(d *direction) error {
	s.logger.Debug("operation cancelled", slog.String("op", d.name))
	return s.fail(&transport.OpError{Op: d.name, Err: transport.ErrCancelled})
}
