//go:build !unix

package tcp

import "stream-server/transport"

func (c *Conn) SetNoDelay(noDelay bool) error { return mapErr(c.c.SetNoDelay(noDelay)) }

func (c *Conn) Shutdown(how transport.ShutdownHow) error {
	switch how {
	case transport.ShutdownRead:
		return mapErr(c.c.CloseRead())
	case transport.ShutdownWrite:
		return mapErr(c.c.CloseWrite())
	case transport.ShutdownBoth:
		if err := c.c.CloseRead(); err != nil {
			return mapErr(err)
		}
		return mapErr(c.c.CloseWrite())
	default:
		return transport.ErrNotSupported
	}
}
