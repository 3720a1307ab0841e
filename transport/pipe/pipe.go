// Wow this so much looks like the one in stdlib!
// Because I borrowed the idea from there..
package pipe

import (
	"io"
	"net"
	"sync"

	"stream-server/transport"
)

type pipe struct {
	stream chan []byte // stream that this pipe reads from.
	nc     chan int    // counterpart's respond will be sent here.

	writeMu sync.Mutex

	closed chan struct{}
	once   sync.Once // making sure not to close closed channel.

	// half-close state.
	rdone, wdone chan struct{}
	ronce, wonce sync.Once

	// the opposite pipe.
	counterpart *pipe

	addr Addr
}

type Addr struct {
	Name string
}

func (p Addr) Network() string { return "pipe" }
func (p Addr) String() string  { return p.Name }

var _ net.Addr = Addr{}
var _ transport.Conn = (*pipe)(nil)
var _ transport.Shutdowner = (*pipe)(nil)

// Pipe creates a pair of pipes. each of pipes will be synchronouse, unbuffered.
func Pipe(name1, name2 string) (c1, c2 *pipe) {
	c1, c2 = newPipe(name1), newPipe(name2)
	c1.counterpart, c2.counterpart = c2, c1
	return
}

func newPipe(name string) *pipe {
	return &pipe{
		stream: make(chan []byte),
		nc:     make(chan int),
		closed: make(chan struct{}),
		rdone:  make(chan struct{}),
		wdone:  make(chan struct{}),
		addr:   Addr{Name: name},
	}
}

func (p *pipe) LocalAddr() net.Addr  { return p.addr }
func (p *pipe) RemoteAddr() net.Addr { return p.counterpart.addr }

func (p *pipe) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// Shutdown half-closes the pipe. After ShutdownWrite the counterpart reads
// io.EOF; after ShutdownRead this end does.
func (p *pipe) Shutdown(how transport.ShutdownHow) error {
	if isClosed(p.closed) {
		return transport.ErrConnClosed
	}

	if how == transport.ShutdownRead || how == transport.ShutdownBoth {
		p.ronce.Do(func() { close(p.rdone) })
	}
	if how == transport.ShutdownWrite || how == transport.ShutdownBoth {
		p.wonce.Do(func() { close(p.wdone) })
	}
	return nil
}

func (p *pipe) Read(b []byte) (n int, err error) {
	switch {
	case isClosed(p.closed):
		return 0, transport.ErrConnClosed
	case isClosed(p.rdone), p.peerDone():
		return 0, io.EOF
	}

	if len(b) == 0 {
		return 0, nil
	}

	select {
	case received := <-p.stream:
		n := copy(b, received)
		p.counterpart.nc <- n
		return n, nil
	case <-p.closed:
		return 0, transport.ErrConnClosed
	case <-p.rdone:
		return 0, io.EOF
	case <-p.counterpart.closed:
		return 0, io.EOF
	case <-p.counterpart.wdone:
		return 0, io.EOF
	}
}

func (p *pipe) Write(b []byte) (n int, err error) {
	if err := p.checkWriteOK(); err != nil {
		return 0, err
	}

	if len(b) == 0 {
		return 0, nil
	}

	// Serialize write operations to prevent interleaving write.
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	// Ensure all the bytes are sent.
	nn := 0
	for len(b) > 0 {
		select {
		case p.counterpart.stream <- b:
			n := <-p.nc
			b = b[n:]
			nn += n
		case <-p.closed:
			return nn, transport.ErrConnClosed
		case <-p.wdone:
			return nn, transport.ErrConnClosed
		case <-p.counterpart.closed:
			return nn, transport.ErrConnClosed
		case <-p.counterpart.rdone:
			return nn, transport.ErrConnClosed
		}
	}

	return nn, nil
}

func (p *pipe) peerDone() bool {
	return isClosed(p.counterpart.closed) || isClosed(p.counterpart.wdone)
}

func (p *pipe) checkWriteOK() error {
	switch {
	case isClosed(p.closed), isClosed(p.wdone):
		return transport.ErrConnClosed
	case isClosed(p.counterpart.closed), isClosed(p.counterpart.rdone):
		return transport.ErrConnClosed
	}
	return nil
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c: // c will only fire at closed state.
		return true
	default:
		return false
	}
}
