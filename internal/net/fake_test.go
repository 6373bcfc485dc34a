package net

import (
	"errors"
	"io"
	"net"
	"testing"

	"github.com/inmosttrail/server/internal/net/packet"
)

// fakeSocket is an in-memory Socket. Bytes written are recorded and, when
// the socket has a peer, appended to the peer's inbox.
type fakeSocket struct {
	inbox     []byte
	readChunk int   // max bytes per TryRead; 0 = unlimited
	readErr   error // returned once the inbox is empty
	sent      []byte
	room      int // bytes TryWrite accepts before blocking; negative = unlimited
	peer      *fakeSocket
	closed    bool
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{room: -1}
}

// pipe returns two connected sockets.
func pipe() (*fakeSocket, *fakeSocket) {
	a, b := newFakeSocket(), newFakeSocket()
	a.peer, b.peer = b, a
	return a, b
}

func (s *fakeSocket) TryRead(p []byte) (int, error) {
	if s.closed {
		return 0, net.ErrClosed
	}
	if len(s.inbox) == 0 {
		return 0, s.readErr
	}
	n := len(p)
	if s.readChunk > 0 && n > s.readChunk {
		n = s.readChunk
	}
	n = copy(p[:n], s.inbox)
	s.inbox = s.inbox[n:]
	return n, nil
}

func (s *fakeSocket) TryWrite(p []byte) (int, error) {
	if s.closed {
		return 0, net.ErrClosed
	}
	if s.room == 0 {
		return 0, nil
	}
	n := len(p)
	if s.room > 0 {
		n = min(n, s.room)
		s.room -= n
	}
	s.sent = append(s.sent, p[:n]...)
	if s.peer != nil {
		s.peer.inbox = append(s.peer.inbox, p[:n]...)
	}
	return n, nil
}

func (s *fakeSocket) RemoteAddr() string { return "127.0.0.1:50000" }

func (s *fakeSocket) Close() error {
	if s.closed {
		return errors.New("already closed")
	}
	s.closed = true
	if s.peer != nil {
		s.peer.readErr = io.EOF
	}
	return nil
}

// send queues an encoded message for the socket's reader.
func (s *fakeSocket) send(m packet.Message) {
	s.inbox = packet.Append(s.inbox, m)
}

// takeSent returns and clears everything written so far.
func (s *fakeSocket) takeSent() []byte {
	b := s.sent
	s.sent = nil
	return b
}

type fakeListener struct {
	pending []Socket
	err     error
	closed  bool
}

func (l *fakeListener) TryAccept() (Socket, error) {
	if l.err != nil {
		return nil, l.err
	}
	if len(l.pending) == 0 {
		return nil, nil
	}
	s := l.pending[0]
	l.pending = l.pending[1:]
	return s, nil
}

func (l *fakeListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 27000}
}

func (l *fakeListener) Close() error {
	l.closed = true
	return nil
}

// frames decodes a byte stream into messages.
func frames(t *testing.T, b []byte) []packet.Message {
	t.Helper()
	var out []packet.Message
	for len(b) > 0 {
		if len(b) < packet.HeaderSize {
			t.Fatalf("trailing %d bytes", len(b))
		}
		h := packet.ParseHeader(b)
		if len(b) < h.FrameSize() {
			t.Fatalf("truncated frame: have %d, need %d", len(b), h.FrameSize())
		}
		m, err := packet.Decode(h, b[packet.HeaderSize:h.FrameSize()])
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, m)
		b = b[h.FrameSize():]
	}
	return out
}
