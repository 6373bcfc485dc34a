package packet

import "fmt"

// Message is one of the closed set of payloads. Identifiers are carried as
// the raw packed 32-bit value and must be treated opaquely by the peer.
type Message interface {
	Type() MsgType
	encode(w *Writer)
	decode(r *Reader)
}

// RegistrationResult is the outcome reported in RegistrationResponse.
type RegistrationResult uint32

const (
	RegistrationOK              RegistrationResult = 0
	RegistrationError           RegistrationResult = 1
	RegistrationVersionMismatch RegistrationResult = 2
)

type RegistrationRequest struct {
	ProtocolVersion uint32
}

type RegistrationResponse struct {
	ProtocolVersion uint32
	Result          RegistrationResult
	AvatarID        uint32
}

// Ping carries the client clock, in seconds, for latency measurement.
type Ping struct {
	ClientTime float64
}

type Pong struct {
	ClientTime float64
	ServerTime float64
}

type WalkToPoint struct {
	AvatarID uint32
	X, Y     uint32
}

type InteractWithItem struct {
	AvatarID uint32
	ItemID   uint32
}

type Attack struct {
	AvatarID uint32
	TargetID uint32
}

// AvatarState describes a motion segment: the avatar is at Begin at
// BeginTick and reaches Begin+EndOffset DurationTicks later.
type AvatarState struct {
	ID            uint32
	UnitType      uint8
	State         uint8
	BeginTick     uint32
	BeginX        uint32
	BeginY        uint32
	DurationTicks uint16
	EndOffsetX    int16
	EndOffsetY    int16
	TargetID      uint32
}

func (*RegistrationRequest) Type() MsgType  { return MsgRegistrationRequest }
func (*RegistrationResponse) Type() MsgType { return MsgRegistrationResponse }
func (*Ping) Type() MsgType                 { return MsgPing }
func (*Pong) Type() MsgType                 { return MsgPong }
func (*WalkToPoint) Type() MsgType          { return MsgPlayerCmdWalkToPoint }
func (*InteractWithItem) Type() MsgType     { return MsgPlayerCmdInteractWithItem }
func (*Attack) Type() MsgType               { return MsgPlayerCmdAttack }
func (*AvatarState) Type() MsgType          { return MsgAvatarState }

func (m *RegistrationRequest) encode(w *Writer) { w.WriteD(m.ProtocolVersion) }
func (m *RegistrationRequest) decode(r *Reader) { m.ProtocolVersion = r.ReadD() }

func (m *RegistrationResponse) encode(w *Writer) {
	w.WriteD(m.ProtocolVersion)
	w.WriteD(uint32(m.Result))
	w.WriteD(m.AvatarID)
}

func (m *RegistrationResponse) decode(r *Reader) {
	m.ProtocolVersion = r.ReadD()
	m.Result = RegistrationResult(r.ReadD())
	m.AvatarID = r.ReadD()
}

func (m *Ping) encode(w *Writer) { w.WriteF(m.ClientTime) }
func (m *Ping) decode(r *Reader) { m.ClientTime = r.ReadF() }

func (m *Pong) encode(w *Writer) {
	w.WriteF(m.ClientTime)
	w.WriteF(m.ServerTime)
}

func (m *Pong) decode(r *Reader) {
	m.ClientTime = r.ReadF()
	m.ServerTime = r.ReadF()
}

func (m *WalkToPoint) encode(w *Writer) {
	w.WriteD(m.AvatarID)
	w.WriteD(m.X)
	w.WriteD(m.Y)
}

func (m *WalkToPoint) decode(r *Reader) {
	m.AvatarID = r.ReadD()
	m.X = r.ReadD()
	m.Y = r.ReadD()
}

func (m *InteractWithItem) encode(w *Writer) {
	w.WriteD(m.AvatarID)
	w.WriteD(m.ItemID)
}

func (m *InteractWithItem) decode(r *Reader) {
	m.AvatarID = r.ReadD()
	m.ItemID = r.ReadD()
}

func (m *Attack) encode(w *Writer) {
	w.WriteD(m.AvatarID)
	w.WriteD(m.TargetID)
}

func (m *Attack) decode(r *Reader) {
	m.AvatarID = r.ReadD()
	m.TargetID = r.ReadD()
}

func (m *AvatarState) encode(w *Writer) {
	w.WriteD(m.ID)
	w.WriteC(m.UnitType)
	w.WriteC(m.State)
	w.WriteD(m.BeginTick)
	w.WriteD(m.BeginX)
	w.WriteD(m.BeginY)
	w.WriteH(m.DurationTicks)
	w.WriteSH(m.EndOffsetX)
	w.WriteSH(m.EndOffsetY)
	w.WriteD(m.TargetID)
}

func (m *AvatarState) decode(r *Reader) {
	m.ID = r.ReadD()
	m.UnitType = r.ReadC()
	m.State = r.ReadC()
	m.BeginTick = r.ReadD()
	m.BeginX = r.ReadD()
	m.BeginY = r.ReadD()
	m.DurationTicks = r.ReadH()
	m.EndOffsetX = r.ReadSH()
	m.EndOffsetY = r.ReadSH()
	m.TargetID = r.ReadD()
}

// FrameSize is the number of bytes Append writes for m.
func FrameSize(m Message) int {
	return HeaderSize + m.Type().PayloadSize()
}

// Append encodes m as [size][type][payload] onto dst.
func Append(dst []byte, m Message) []byte {
	t := m.Type()
	w := NewWriter(dst)
	w.WriteC(uint8(t.PayloadSize()))
	w.WriteC(uint8(t))
	m.encode(w)
	return w.Bytes()
}

func newMessage(t MsgType) Message {
	switch t {
	case MsgRegistrationRequest:
		return &RegistrationRequest{}
	case MsgRegistrationResponse:
		return &RegistrationResponse{}
	case MsgPing:
		return &Ping{}
	case MsgPong:
		return &Pong{}
	case MsgPlayerCmdWalkToPoint:
		return &WalkToPoint{}
	case MsgPlayerCmdInteractWithItem:
		return &InteractWithItem{}
	case MsgPlayerCmdAttack:
		return &Attack{}
	case MsgAvatarState:
		return &AvatarState{}
	}
	return nil
}

// Decode validates h and decodes the payload that followed it.
func Decode(h Header, payload []byte) (Message, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if len(payload) < h.Type.PayloadSize() {
		return nil, fmt.Errorf("%w: %s has %d bytes", ErrUndersized, h.Type, len(payload))
	}
	m := newMessage(h.Type)
	m.decode(NewReader(payload))
	return m, nil
}
