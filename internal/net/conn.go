package net

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/inmosttrail/server/internal/net/packet"
)

// BufferSize bounds both the inbound and the outbound buffer of a Conn.
const BufferSize = 516

// Conn is the per-connection step machine shared by server and client.
// ReadStep and WriteStep never block and may be called again next tick to
// resume a partial frame or a partial write. Game loop only.
type Conn struct {
	sock  Socket
	state packet.SessionState

	in     [BufferSize]byte
	inUsed int

	out     [BufferSize]byte
	outUsed int
	outSent int

	log *zap.Logger
}

func NewConn(sock Socket, log *zap.Logger) *Conn {
	return &Conn{
		sock:  sock,
		state: packet.StateJustConnected,
		log:   log,
	}
}

func (c *Conn) State() packet.SessionState { return c.state }

// SetState moves the connection to st. A closed connection stays closed.
func (c *Conn) SetState(st packet.SessionState) {
	if c.state == packet.StateClosed {
		return
	}
	c.state = st
}

func (c *Conn) Closed() bool { return c.state == packet.StateClosed }

func (c *Conn) RemoteAddr() string { return c.sock.RemoteAddr() }

// Close releases the socket once and marks the connection closed.
func (c *Conn) Close(reason string) {
	if c.Closed() {
		return
	}
	c.state = packet.StateClosed
	if err := c.sock.Close(); err != nil {
		c.log.Debug("socket close", zap.Error(err))
	}
	c.log.Info("connection closed", zap.String("reason", reason))
}

// need is how many bytes the frame being assembled occupies so far known.
func (c *Conn) need() int {
	if c.inUsed < packet.HeaderSize {
		return packet.HeaderSize
	}
	return packet.ParseHeader(c.in[:packet.HeaderSize]).FrameSize()
}

// ReadStep performs up to maxReads socket reads, handing every completed
// frame to onMessage. It stops early when a read would block or the
// connection closes. Returns the number of bytes read.
func (c *Conn) ReadStep(maxReads int, onMessage func(packet.Message)) int {
	total := 0
	for i := 0; i < maxReads && !c.Closed(); i++ {
		n, err := c.sock.TryRead(c.in[c.inUsed:c.need()])
		if err != nil {
			c.readFailed(err)
			return total
		}
		if n == 0 {
			return total
		}
		total += n
		c.inUsed += n
		if c.inUsed >= packet.HeaderSize && c.inUsed == c.need() {
			c.deliver(onMessage)
			c.inUsed = 0
		}
	}
	return total
}

func (c *Conn) readFailed(err error) {
	switch {
	case errors.Is(err, io.EOF):
		c.Close("peer closed")
	case errors.Is(err, ErrConnReset):
		c.Close("connection reset")
	default:
		c.log.Warn("socket read failed", zap.Error(err))
		c.Close("read error")
	}
}

func (c *Conn) deliver(onMessage func(packet.Message)) {
	h := packet.ParseHeader(c.in[:packet.HeaderSize])
	m, err := packet.Decode(h, c.in[packet.HeaderSize:c.inUsed])
	if err != nil {
		c.log.Warn("dropping malformed frame",
			zap.Uint8("size", h.Size),
			zap.Uint8("type", uint8(h.Type)),
			zap.Error(err))
		return
	}
	onMessage(m)
}

// Pending reports whether encoded bytes are still waiting to be written.
func (c *Conn) Pending() bool { return c.outUsed > 0 }

// Free is the outbound space left for new frames.
func (c *Conn) Free() int { return BufferSize - c.outUsed }

// Append encodes m into the outbound buffer. It returns false, leaving the
// buffer untouched, when the frame does not fit.
func (c *Conn) Append(m packet.Message) bool {
	if c.Closed() || packet.FrameSize(m) > c.Free() {
		return false
	}
	c.outUsed = len(packet.Append(c.out[:c.outUsed], m))
	return true
}

// WriteStep writes as much of the outbound buffer as the socket accepts.
// Offsets reset once everything has been sent.
func (c *Conn) WriteStep() {
	for !c.Closed() && c.outSent < c.outUsed {
		n, err := c.sock.TryWrite(c.out[c.outSent:c.outUsed])
		if err != nil {
			if errors.Is(err, ErrConnReset) {
				c.Close("connection reset")
			} else {
				c.log.Warn("socket write failed", zap.Error(err))
				c.Close("write error")
			}
			return
		}
		if n == 0 {
			return
		}
		c.outSent += n
	}
	if c.outSent == c.outUsed {
		c.outSent, c.outUsed = 0, 0
	}
}
