package packet

import (
	"errors"
	"testing"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	frame := Append(nil, m)
	if len(frame) != FrameSize(m) {
		t.Fatalf("%s frame is %d bytes, want %d", m.Type(), len(frame), FrameSize(m))
	}
	h := ParseHeader(frame)
	if h.Type != m.Type() || int(h.Size) != m.Type().PayloadSize() {
		t.Fatalf("header = %+v for %s", h, m.Type())
	}
	got, err := Decode(h, frame[HeaderSize:])
	if err != nil {
		t.Fatalf("Decode(%s): %v", m.Type(), err)
	}
	return got
}

func TestAvatarStateRoundTrip(t *testing.T) {
	in := &AvatarState{
		ID:            0xABC12345,
		UnitType:      3,
		State:         4,
		BeginTick:     987654,
		BeginX:        120,
		BeginY:        4000,
		DurationTicks: 65535,
		EndOffsetX:    -32768,
		EndOffsetY:    -7,
		TargetID:      0xFFFFFFFF,
	}
	out, ok := roundTrip(t, in).(*AvatarState)
	if !ok {
		t.Fatal("decoded message is not *AvatarState")
	}
	if *out != *in {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", *out, *in)
	}
}

func TestAllMessagesRoundTrip(t *testing.T) {
	msgs := []Message{
		&RegistrationRequest{ProtocolVersion: ProtocolVersion},
		&RegistrationResponse{ProtocolVersion: 1, Result: RegistrationVersionMismatch, AvatarID: 77},
		&Ping{ClientTime: 12.5},
		&Pong{ClientTime: 12.5, ServerTime: -3.25},
		&WalkToPoint{AvatarID: 1, X: 10, Y: 20},
		&InteractWithItem{AvatarID: 2, ItemID: 3},
		&Attack{AvatarID: 4, TargetID: 5},
	}
	for _, m := range msgs {
		got := roundTrip(t, m)
		if got.Type() != m.Type() {
			t.Errorf("%s decoded as %s", m.Type(), got.Type())
		}
	}
	pong := roundTrip(t, &Pong{ClientTime: 1.5, ServerTime: 99.75}).(*Pong)
	if pong.ClientTime != 1.5 || pong.ServerTime != 99.75 {
		t.Errorf("pong = %+v", *pong)
	}
}

func TestWireLayoutIsLittleEndian(t *testing.T) {
	frame := Append(nil, &WalkToPoint{AvatarID: 0x04030201, X: 5, Y: 0x100})
	want := []byte{
		12, byte(MsgPlayerCmdWalkToPoint),
		0x01, 0x02, 0x03, 0x04,
		0x05, 0x00, 0x00, 0x00,
		0x00, 0x01, 0x00, 0x00,
	}
	if string(frame) != string(want) {
		t.Fatalf("frame = % x\nwant    % x", frame, want)
	}
}

func TestAppendExtendsExistingBuffer(t *testing.T) {
	buf := make([]byte, 0, 64)
	buf = Append(buf, &Ping{ClientTime: 1})
	buf = Append(buf, &Attack{AvatarID: 1, TargetID: 2})
	if len(buf) != HeaderSize+8+HeaderSize+8 {
		t.Fatalf("len = %d", len(buf))
	}
	if ParseHeader(buf[10:]).Type != MsgPlayerCmdAttack {
		t.Fatal("second frame header not found after the first")
	}
}

func TestHeaderValidate(t *testing.T) {
	if err := (Header{Size: 4, Type: MsgTypeCount}).Validate(); !errors.Is(err, ErrUnknownType) {
		t.Errorf("unknown type: err = %v", err)
	}
	if err := (Header{Size: 27, Type: MsgAvatarState}).Validate(); !errors.Is(err, ErrUndersized) {
		t.Errorf("undersized: err = %v", err)
	}
	if err := (Header{Size: 40, Type: MsgAvatarState}).Validate(); err != nil {
		t.Errorf("oversized payload rejected: %v", err)
	}
}

func TestDecodeRejectsShortPayload(t *testing.T) {
	_, err := Decode(Header{Size: 8, Type: MsgPing}, []byte{1, 2, 3})
	if !errors.Is(err, ErrUndersized) {
		t.Fatalf("err = %v, want ErrUndersized", err)
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	payload := Append(nil, &Attack{AvatarID: 9, TargetID: 10})[HeaderSize:]
	payload = append(payload, 0xEE, 0xEE)
	m, err := Decode(Header{Size: uint8(len(payload)), Type: MsgPlayerCmdAttack}, payload)
	if err != nil {
		t.Fatal(err)
	}
	if a := m.(*Attack); a.AvatarID != 9 || a.TargetID != 10 {
		t.Fatalf("attack = %+v", *a)
	}
}
