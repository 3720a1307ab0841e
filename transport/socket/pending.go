package socket

import "sync"

type opState uint8

const (
	stateIdle opState = iota
	statePending
)

func (s opState) String() string {
	if s == statePending {
		return "pending"
	}
	return "idle"
}

// operation is one asynchronous transfer. done is closed once n and err are
// set; it is the readiness signal of the direction that submitted it.
type operation struct {
	buf  []byte
	done chan struct{}

	n   int
	err error
}

func (op *operation) completed() bool { return isClosed(op.done) }

// submit starts fn on its own goroutine and returns immediately.
// wg tracks the goroutine so teardown can wait for it.
func submit(wg *sync.WaitGroup, buf []byte, fn func([]byte) (int, error)) *operation {
	op := &operation{buf: buf, done: make(chan struct{})}

	wg.Add(1)
	go func() {
		defer wg.Done()
		op.n, op.err = fn(buf)
		close(op.done)
	}()

	return op
}

// direction is the per-direction state of a socket. Send and receive never
// share one, which is what makes concurrent send+receive safe.
type direction struct {
	name string

	state opState
	op    *operation

	deadLine *deadLine

	// staging is reused for the next submission once op is reaped.
	staging []byte
	// carry holds completed bytes that did not fit the reaping buffer.
	carry []byte
}

func (d *direction) pending(op *operation) {
	d.op = op
	d.state = statePending
}

// reap clears the pending state and returns the completed operation.
func (d *direction) reap() *operation {
	op := d.op
	d.op = nil
	d.state = stateIdle
	return op
}

// stage returns an adapter-owned buffer of length n.
func (d *direction) stage(n int) []byte {
	if cap(d.staging) < n {
		d.staging = make([]byte, n)
	}
	return d.staging[:n]
}
