package net

import (
	"bytes"
	"io"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inmosttrail/server/internal/net/packet"
)

func collect(c *Conn, maxReads int) []packet.Message {
	var got []packet.Message
	c.ReadStep(maxReads, func(m packet.Message) { got = append(got, m) })
	return got
}

func TestReadStepOneByteAtATime(t *testing.T) {
	sock := newFakeSocket()
	sock.readChunk = 1
	sock.send(&packet.Ping{ClientTime: 3.25})
	c := NewConn(sock, zaptest.NewLogger(t))

	// 10-byte frame: nine single-byte reads leave it incomplete
	if got := collect(c, 9); len(got) != 0 {
		t.Fatalf("delivered %d messages from a partial frame", len(got))
	}
	got := collect(c, 1)
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
	if p, ok := got[0].(*packet.Ping); !ok || p.ClientTime != 3.25 {
		t.Fatalf("got %#v", got[0])
	}
}

func mixedStream() []byte {
	var b []byte
	b = append(b, 3, 99, 0xAA, 0xBB, 0xCC)            // unknown type
	b = append(b, 2, byte(packet.MsgPing), 0x01, 0x02) // undersized ping
	b = packet.Append(b, &packet.AvatarState{
		ID: 12, UnitType: 2, State: 1, BeginTick: 90, BeginX: 40, BeginY: 41,
		DurationTicks: 16, EndOffsetX: -3, EndOffsetY: -7, TargetID: 0xFFFFFFFF,
	})
	b = packet.Append(b, &packet.WalkToPoint{AvatarID: 12, X: 37, Y: 34})
	return b
}

func TestReadStepChunkingDoesNotChangeMessages(t *testing.T) {
	decode := func(chunk int) []packet.Message {
		sock := newFakeSocket()
		sock.readChunk = chunk
		sock.inbox = mixedStream()
		c := NewConn(sock, zaptest.NewLogger(t))
		var got []packet.Message
		for i := 0; i < len(mixedStream())+1; i++ {
			got = append(got, collect(c, 1)...)
		}
		if c.Closed() {
			t.Fatalf("chunk %d: connection closed", chunk)
		}
		return got
	}

	whole := decode(0)
	if len(whole) != 2 {
		t.Fatalf("decoded %d messages, want 2", len(whole))
	}
	if a := whole[0].(*packet.AvatarState); a.EndOffsetX != -3 || a.EndOffsetY != -7 {
		t.Fatalf("offsets = %d,%d", a.EndOffsetX, a.EndOffsetY)
	}
	if bytewise := decode(1); !reflect.DeepEqual(whole, bytewise) {
		t.Fatalf("byte-at-a-time decoded %v, all-at-once %v", bytewise, whole)
	}
}

func TestReadStepSeveralFramesAcrossCalls(t *testing.T) {
	sock := newFakeSocket()
	sock.send(&packet.RegistrationRequest{ProtocolVersion: 1})
	sock.send(&packet.WalkToPoint{AvatarID: 7, X: 1, Y: 2})
	sock.send(&packet.Attack{AvatarID: 7, TargetID: 9})
	c := NewConn(sock, zaptest.NewLogger(t))

	var types []packet.MsgType
	for i := 0; i < 4; i++ {
		for _, m := range collect(c, 3) {
			types = append(types, m.Type())
		}
	}
	want := []packet.MsgType{packet.MsgRegistrationRequest, packet.MsgPlayerCmdWalkToPoint, packet.MsgPlayerCmdAttack}
	if len(types) != len(want) {
		t.Fatalf("types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("types = %v, want %v", types, want)
		}
	}
	if c.Closed() {
		t.Fatal("connection closed on would-block")
	}
}

func TestReadStepDropsMalformedFrames(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sock := newFakeSocket()
	sock.inbox = append(sock.inbox, 3, 99, 0xAA, 0xBB, 0xCC)            // unknown type
	sock.inbox = append(sock.inbox, 2, byte(packet.MsgPing), 0x01, 0x02) // undersized ping
	sock.send(&packet.Ping{ClientTime: 1})
	c := NewConn(sock, zap.New(core))

	got := collect(c, 64)
	if len(got) != 1 || got[0].Type() != packet.MsgPing {
		t.Fatalf("got %v", got)
	}
	if n := logs.FilterMessage("dropping malformed frame").Len(); n != 2 {
		t.Fatalf("malformed warnings = %d, want 2", n)
	}
	if c.Closed() {
		t.Fatal("malformed frame closed the connection")
	}
}

func TestReadStepOversizedPayloadAccepted(t *testing.T) {
	sock := newFakeSocket()
	frame := packet.Append(nil, &packet.RegistrationRequest{ProtocolVersion: 5})
	frame[0] += 2
	frame = append(frame, 0xEE, 0xEE)
	sock.inbox = append(frame, packet.Append(nil, &packet.Ping{})...)
	c := NewConn(sock, zaptest.NewLogger(t))

	got := collect(c, 64)
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if r := got[0].(*packet.RegistrationRequest); r.ProtocolVersion != 5 {
		t.Fatalf("version = %d", r.ProtocolVersion)
	}
}

func TestReadStepClosesOnPeerErrors(t *testing.T) {
	for _, err := range []error{io.EOF, ErrConnReset, io.ErrUnexpectedEOF} {
		sock := newFakeSocket()
		sock.readErr = err
		c := NewConn(sock, zaptest.NewLogger(t))
		collect(c, 4)
		if !c.Closed() || !sock.closed {
			t.Errorf("%v: connection not closed", err)
		}
		if c.State() != packet.StateClosed {
			t.Errorf("%v: state = %s", err, c.State())
		}
	}
}

func TestWriteStepResumesShortWrites(t *testing.T) {
	sock := newFakeSocket()
	sock.room = 7
	c := NewConn(sock, zaptest.NewLogger(t))

	pong := &packet.Pong{ClientTime: 1.5, ServerTime: 42}
	if !c.Append(pong) {
		t.Fatal("Append failed on an empty buffer")
	}
	c.WriteStep()
	if !c.Pending() || len(sock.sent) != 7 {
		t.Fatalf("pending=%v sent=%d after short write", c.Pending(), len(sock.sent))
	}

	sock.room = 0
	c.WriteStep()
	if len(sock.sent) != 7 {
		t.Fatal("wrote while the socket was blocked")
	}

	sock.room = -1
	c.WriteStep()
	if c.Pending() {
		t.Fatal("buffer not reset after the write completed")
	}
	if want := packet.Append(nil, pong); !bytes.Equal(sock.sent, want) {
		t.Fatalf("sent % x, want % x", sock.sent, want)
	}
}

func TestAppendRespectsBufferSize(t *testing.T) {
	c := NewConn(newFakeSocket(), zaptest.NewLogger(t))
	n := 0
	for c.Append(&packet.AvatarState{ID: uint32(n)}) {
		n++
	}
	if want := BufferSize / avatarFrameSize; n != want {
		t.Fatalf("fit %d frames, want %d", n, want)
	}
	if c.Free() >= avatarFrameSize {
		t.Fatalf("Append refused with %d bytes free", c.Free())
	}
	if c.Append(&packet.Ping{}) {
		t.Fatalf("ping appended with only %d bytes free", c.Free())
	}
}

func TestClosedConnRefusesWork(t *testing.T) {
	sock := newFakeSocket()
	c := NewConn(sock, zaptest.NewLogger(t))
	c.Close("test")
	c.Close("again")
	if c.Append(&packet.Ping{}) {
		t.Fatal("Append succeeded on a closed connection")
	}
	c.SetState(packet.StateRegistered)
	if c.State() != packet.StateClosed {
		t.Fatal("closed connection reopened")
	}
}

func TestBucket(t *testing.T) {
	b := NewBucket(4, 250*time.Millisecond)
	t0 := time.Unix(1000, 0)
	for i := 0; i < 4; i++ {
		if !b.Take(t0) {
			t.Fatalf("take %d refused", i)
		}
	}
	if b.Take(t0) || b.Take(t0.Add(249*time.Millisecond)) {
		t.Fatal("bucket over-issued")
	}
	if !b.Take(t0.Add(250 * time.Millisecond)) {
		t.Fatal("token not refilled after 250ms")
	}
	if b.Take(t0.Add(400 * time.Millisecond)) {
		t.Fatal("refill ran early")
	}
	if got := b.Tokens(t0.Add(10 * time.Second)); got != 4 {
		t.Fatalf("tokens after long idle = %d, want capacity", got)
	}
}
