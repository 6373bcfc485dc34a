package net

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inmosttrail/server/internal/core/entity"
	"github.com/inmosttrail/server/internal/net/packet"
	"github.com/inmosttrail/server/internal/world"
)

// maxBacklog bounds the control responses waiting for outbound space. A peer
// that lets more pile up is not reading and gets disconnected.
const maxBacklog = 16

// avatarFrameSize is the outbound space one AvatarState needs.
var avatarFrameSize = packet.FrameSize(&packet.AvatarState{})

// Session is the server side of one client connection: the Conn step
// machine plus the delivery queue of avatars the client must hear about.
// Game loop only.
type Session struct {
	ID     uuid.UUID
	Index  int        // position in the server's session table
	Avatar entity.Uii // avatar controlled by this connection, or entity.Invalid

	conn     *Conn
	queue    *entity.Queue
	backlog  []packet.Message
	lastRead time.Time

	log *zap.Logger
}

func NewSession(sock Socket, index, queueCap int, now time.Time, log *zap.Logger) *Session {
	id := uuid.New()
	l := log.With(zap.String("conn", id.String()), zap.String("ip", sock.RemoteAddr()))
	return &Session{
		ID:       id,
		Index:    index,
		Avatar:   entity.Invalid,
		conn:     NewConn(sock, l),
		queue:    entity.NewQueue(queueCap),
		lastRead: now,
		log:      l,
	}
}

func (s *Session) State() packet.SessionState { return s.conn.State() }

func (s *Session) SetState(st packet.SessionState) { s.conn.SetState(st) }

func (s *Session) IsClosed() bool { return s.conn.Closed() }

func (s *Session) Close(reason string) { s.conn.Close(reason) }

func (s *Session) Conn() *Conn { return s.conn }

// Queued reports how many avatar updates wait for delivery.
func (s *Session) Queued() int { return s.queue.Len() }

// Notify schedules an avatar for delivery. Repeated notifications before the
// avatar is sent collapse into one.
func (s *Session) Notify(id entity.Uii) {
	s.queue.Push(id)
}

// Send queues a control response. Responses go out before avatar updates.
func (s *Session) Send(m packet.Message) {
	if s.IsClosed() {
		return
	}
	if len(s.backlog) >= maxBacklog {
		s.log.Warn("control backlog full, dropping slow consumer", zap.Int("backlog", len(s.backlog)))
		s.Close("slow consumer")
		return
	}
	s.backlog = append(s.backlog, m)
}

// fill encodes pending output once the previous batch has been written:
// control responses first, then queued avatars that still resolve.
func (s *Session) fill(w *world.State) {
	if s.IsClosed() || s.conn.Pending() {
		return
	}
	for len(s.backlog) > 0 && s.conn.Append(s.backlog[0]) {
		s.backlog[0] = nil
		s.backlog = s.backlog[1:]
	}
	if len(s.backlog) > 0 {
		return
	}
	s.backlog = s.backlog[:0]
	for s.queue.Len() > 0 && s.conn.Free() >= avatarFrameSize {
		id := s.queue.Pop()
		a, ok := w.Resolve(id)
		if !ok {
			continue
		}
		s.conn.Append(avatarState(id, a))
	}
}
