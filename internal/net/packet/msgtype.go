package packet

import (
	"errors"
	"fmt"
)

// ProtocolVersion is exchanged in the registration handshake.
const ProtocolVersion uint32 = 1

// MsgType identifies a message payload layout.
type MsgType uint8

const (
	MsgRegistrationRequest MsgType = iota
	MsgRegistrationResponse
	MsgPing
	MsgPong
	MsgPlayerCmdWalkToPoint
	MsgPlayerCmdInteractWithItem
	MsgPlayerCmdAttack
	MsgAvatarState

	MsgTypeCount
)

// payloadSizes is the fixed payload length of every message type.
var payloadSizes = [MsgTypeCount]uint8{
	MsgRegistrationRequest:       4,
	MsgRegistrationResponse:      12,
	MsgPing:                      8,
	MsgPong:                      16,
	MsgPlayerCmdWalkToPoint:      12,
	MsgPlayerCmdInteractWithItem: 8,
	MsgPlayerCmdAttack:           8,
	MsgAvatarState:               28,
}

// HeaderSize is the size of the [size:u8][type:u8] prefix of every message.
const HeaderSize = 2

// MaxMessageSize is the largest frame a header can describe.
const MaxMessageSize = HeaderSize + 255

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrUndersized  = errors.New("payload smaller than message type requires")
	ErrNotAllowed  = errors.New("message not allowed in session state")
)

func (t MsgType) Valid() bool { return t < MsgTypeCount }

// PayloadSize returns the payload length required by t.
func (t MsgType) PayloadSize() int {
	if !t.Valid() {
		return 0
	}
	return int(payloadSizes[t])
}

func (t MsgType) String() string {
	switch t {
	case MsgRegistrationRequest:
		return "RegistrationRequest"
	case MsgRegistrationResponse:
		return "RegistrationResponse"
	case MsgPing:
		return "Ping"
	case MsgPong:
		return "Pong"
	case MsgPlayerCmdWalkToPoint:
		return "PlayerCmdWalkToPoint"
	case MsgPlayerCmdInteractWithItem:
		return "PlayerCmdInteractWithItem"
	case MsgPlayerCmdAttack:
		return "PlayerCmdAttack"
	case MsgAvatarState:
		return "AvatarState"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// Header precedes every payload on the wire.
type Header struct {
	Size uint8
	Type MsgType
}

// ParseHeader reads a header from the first HeaderSize bytes of b.
func ParseHeader(b []byte) Header {
	return Header{Size: b[0], Type: MsgType(b[1])}
}

// FrameSize is the header plus the declared payload length.
func (h Header) FrameSize() int {
	return HeaderSize + int(h.Size)
}

// Validate rejects unknown types and payloads shorter than the type needs.
// Longer payloads are accepted; the extra bytes are ignored.
func (h Header) Validate() error {
	if !h.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownType, uint8(h.Type))
	}
	if int(h.Size) < h.Type.PayloadSize() {
		return fmt.Errorf("%w: %s declares %d, needs %d", ErrUndersized, h.Type, h.Size, h.Type.PayloadSize())
	}
	return nil
}
