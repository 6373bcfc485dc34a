package net

import (
	"errors"
	"net"
)

// ErrConnReset reports that the peer reset the connection or the pipe broke.
var ErrConnReset = errors.New("net: connection reset by peer")

// Socket is a non-blocking byte stream. TryRead and TryWrite never wait:
// (0, nil) means the call would block. TryRead returns io.EOF once the peer
// has closed its side.
type Socket interface {
	TryRead(p []byte) (int, error)
	TryWrite(p []byte) (int, error)
	RemoteAddr() string
	Close() error
}

// Listener accepts sockets without blocking. TryAccept returns (nil, nil)
// when no connection is pending.
type Listener interface {
	TryAccept() (Socket, error)
	Addr() net.Addr
	Close() error
}

// ListenFunc opens a Listener on addr.
type ListenFunc func(addr string) (Listener, error)
