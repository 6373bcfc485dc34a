//go:build unix

package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// tcpSocket performs single non-waiting syscalls on the descriptor owned by
// a *net.TCPConn. The runtime keeps the descriptor in non-blocking mode.
type tcpSocket struct {
	conn *net.TCPConn
	raw  syscall.RawConn
	addr string
}

func newTCPSocket(c *net.TCPConn) (*tcpSocket, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("syscall conn: %w", err)
	}
	_ = c.SetNoDelay(true)
	return &tcpSocket{conn: c, raw: raw, addr: c.RemoteAddr().String()}, nil
}

func (s *tcpSocket) TryRead(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var n int
	var opErr error
	if err := s.raw.Read(func(fd uintptr) bool {
		n, opErr = unix.Read(int(fd), p)
		return true
	}); err != nil {
		return 0, err
	}
	if opErr != nil {
		return 0, classify("read", opErr)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (s *tcpSocket) TryWrite(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var n int
	var opErr error
	if err := s.raw.Write(func(fd uintptr) bool {
		n, opErr = unix.Write(int(fd), p)
		return true
	}); err != nil {
		return 0, err
	}
	if opErr != nil {
		return 0, classify("write", opErr)
	}
	return n, nil
}

func (s *tcpSocket) RemoteAddr() string { return s.addr }

func (s *tcpSocket) Close() error { return s.conn.Close() }

// classify maps errno values: would-block becomes (0, nil) at the call site.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
		return nil
	case errors.Is(err, unix.ECONNRESET), errors.Is(err, unix.EPIPE), errors.Is(err, unix.ECONNABORTED):
		return fmt.Errorf("%s: %w", op, ErrConnReset)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type tcpListener struct {
	ln  *net.TCPListener
	raw syscall.RawConn
}

// Listen opens a TCP listener with address reuse on and linger off.
func Listen(addr string) (Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var optErr error
			err := c.Control(func(fd uintptr) {
				if optErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); optErr != nil {
					return
				}
				optErr = unix.SetsockoptLinger(int(fd), unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 0})
			})
			if err != nil {
				return err
			}
			return optErr
		},
	}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, err
	}
	tln := ln.(*net.TCPListener)
	raw, err := tln.SyscallConn()
	if err != nil {
		tln.Close()
		return nil, fmt.Errorf("syscall conn: %w", err)
	}
	return &tcpListener{ln: tln, raw: raw}, nil
}

func (l *tcpListener) TryAccept() (Socket, error) {
	nfd := -1
	var opErr error
	// RawConn.Read is not supported on listeners; the runtime already keeps
	// the listening descriptor non-blocking, so Control is enough.
	if err := l.raw.Control(func(fd uintptr) {
		nfd, _, opErr = unix.Accept(int(fd))
	}); err != nil {
		return nil, err
	}
	if opErr != nil {
		if err := classify("accept", opErr); err != nil {
			return nil, err
		}
		return nil, nil
	}

	unix.CloseOnExec(nfd)
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return nil, fmt.Errorf("set nonblock: %w", err)
	}
	f := os.NewFile(uintptr(nfd), "tcp")
	c, err := net.FileConn(f) // dups the descriptor
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("file conn: %w", err)
	}
	tc, ok := c.(*net.TCPConn)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("accept: unexpected conn type %T", c)
	}
	return newTCPSocket(tc)
}

func (l *tcpListener) Addr() net.Addr { return l.ln.Addr() }

func (l *tcpListener) Close() error { return l.ln.Close() }

// Dial connects to a server. The handshake blocks for at most timeout; the
// returned socket never blocks.
func Dial(addr string, timeout time.Duration) (Socket, error) {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return newTCPSocket(c.(*net.TCPConn))
}
