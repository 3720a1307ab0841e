//go:build unix

package tcp

import (
	"os"

	"stream-server/transport"

	"golang.org/x/sys/unix"
)

func (c *Conn) SetNoDelay(noDelay bool) error {
	v := 0
	if noDelay {
		v = 1
	}
	return c.control(func(fd int) error {
		return os.NewSyscallError("setsockopt", unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v))
	})
}

func (c *Conn) noDelay() (bool, error) {
	var v int
	err := c.control(func(fd int) error {
		var err error
		v, err = unix.GetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY)
		return os.NewSyscallError("getsockopt", err)
	})
	return v != 0, err
}

func (c *Conn) Shutdown(how transport.ShutdownHow) error {
	var sh int
	switch how {
	case transport.ShutdownRead:
		sh = unix.SHUT_RD
	case transport.ShutdownWrite:
		sh = unix.SHUT_WR
	case transport.ShutdownBoth:
		sh = unix.SHUT_RDWR
	default:
		return transport.ErrNotSupported
	}
	return c.control(func(fd int) error {
		return os.NewSyscallError("shutdown", unix.Shutdown(fd, sh))
	})
}
