package net

import (
	"time"

	"go.uber.org/zap"

	"github.com/inmosttrail/server/internal/core/entity"
	"github.com/inmosttrail/server/internal/core/event"
	"github.com/inmosttrail/server/internal/net/packet"
	"github.com/inmosttrail/server/internal/world"
)

// ServerConfig holds the network and registration settings of a Server.
type ServerConfig struct {
	BindAddress     string
	ProtocolVersion uint32
	MaxReadsPerTick int
	MaxConnections  int           // 0 = unlimited
	IdleTimeout     time.Duration // 0 disables
	PlayerUnit      uint8
	Spawn           world.Point
}

// Server owns the listening socket and the session table. Every method is
// called from the game loop; nothing here blocks.
type Server struct {
	cfg      ServerConfig
	world    *world.State
	bus      *event.Bus
	registry *packet.Registry

	listen     ListenFunc
	listener   Listener
	listenWarn bool

	sessions []*Session
	start    time.Time
	now      time.Time

	log *zap.Logger
}

func NewServer(cfg ServerConfig, w *world.State, bus *event.Bus, log *zap.Logger) *Server {
	if cfg.MaxReadsPerTick <= 0 {
		cfg.MaxReadsPerTick = 128
	}
	now := time.Now()
	s := &Server{
		cfg:      cfg,
		world:    w,
		bus:      bus,
		registry: packet.NewRegistry(log),
		listen:   Listen,
		start:    now,
		now:      now,
		log:      log,
	}
	s.registerHandlers()
	event.Subscribe(bus, s.onAvatarChanged)
	return s
}

// SetListenFunc replaces the socket factory used for the listener.
func (s *Server) SetListenFunc(fn ListenFunc) { s.listen = fn }

func (s *Server) registerHandlers() {
	always := []packet.SessionState{packet.StateJustConnected, packet.StateRegistered}
	registered := []packet.SessionState{packet.StateRegistered}

	s.registry.Register(packet.MsgRegistrationRequest,
		[]packet.SessionState{packet.StateJustConnected}, s.handleRegistration)
	s.registry.Register(packet.MsgPing, always, s.handlePing)
	s.registry.Register(packet.MsgPlayerCmdWalkToPoint, registered, s.handleWalk)
	s.registry.Register(packet.MsgPlayerCmdInteractWithItem, registered, s.handleInteract)
	s.registry.Register(packet.MsgPlayerCmdAttack, registered, s.handleAttack)
}

// Sessions returns the number of connections in the table.
func (s *Server) Sessions() int { return len(s.sessions) }

// Session returns the session at table index i.
func (s *Server) Session(i int) *Session { return s.sessions[i] }

// Addr returns the bound listener address, or "" before the listener exists.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Accept (re)creates the listener if needed and accepts at most one
// pending connection.
func (s *Server) Accept(now time.Time) {
	s.now = now
	if s.listener == nil {
		ln, err := s.listen(s.cfg.BindAddress)
		if err != nil {
			if !s.listenWarn {
				s.log.Warn("listen failed, retrying every tick",
					zap.String("addr", s.cfg.BindAddress), zap.Error(err))
				s.listenWarn = true
			}
			return
		}
		s.listener = ln
		s.listenWarn = false
		s.log.Info("listening", zap.String("addr", ln.Addr().String()))
	}

	sock, err := s.listener.TryAccept()
	if err != nil {
		s.log.Warn("accept failed, rebinding", zap.Error(err))
		s.listener.Close()
		s.listener = nil
		return
	}
	if sock == nil {
		return
	}
	if s.cfg.MaxConnections > 0 && len(s.sessions) >= s.cfg.MaxConnections {
		s.log.Warn("connection limit reached, refusing",
			zap.String("ip", sock.RemoteAddr()), zap.Int("limit", s.cfg.MaxConnections))
		sock.Close()
		return
	}

	sess := NewSession(sock, len(s.sessions), s.world.Capacity(), now, s.log)
	s.sessions = append(s.sessions, sess)
	sess.log.Info("client connected", zap.Int("index", sess.Index))
}

// Read runs the read step of every session and enforces the idle timeout.
func (s *Server) Read(now time.Time) {
	s.now = now
	for _, sess := range s.sessions {
		if sess.IsClosed() {
			continue
		}
		if n := sess.conn.ReadStep(s.cfg.MaxReadsPerTick, func(m packet.Message) {
			// out-of-state messages are logged by the registry and dropped
			_ = s.registry.Dispatch(sess, sess.State(), m)
		}); n > 0 {
			sess.lastRead = now
		}
		if s.cfg.IdleTimeout > 0 && !sess.IsClosed() && now.Sub(sess.lastRead) > s.cfg.IdleTimeout {
			sess.Close("idle timeout")
		}
	}
}

// Flush fills and writes the outbound buffer of every session.
func (s *Server) Flush() {
	for _, sess := range s.sessions {
		sess.fill(s.world)
		sess.conn.WriteStep()
	}
}

// Reap removes closed sessions by swapping the last session into their
// slot. The avatar of a removed session loses its owner but stays in the
// world; the moved session's avatar is re-pointed at its new index.
func (s *Server) Reap() {
	for i := 0; i < len(s.sessions); {
		sess := s.sessions[i]
		if !sess.IsClosed() {
			i++
			continue
		}
		if sess.Avatar.Valid() {
			_ = s.world.SetOwner(sess.Avatar, world.NoOwner)
		}
		last := len(s.sessions) - 1
		if i != last {
			moved := s.sessions[last]
			s.sessions[i] = moved
			moved.Index = i
			if moved.Avatar.Valid() {
				_ = s.world.SetOwner(moved.Avatar, uint32(i))
			}
		}
		s.sessions[last] = nil
		s.sessions = s.sessions[:last]

		event.Emit(s.bus, event.SessionClosed{Avatar: sess.Avatar, Reason: "disconnected"})
		sess.log.Info("session removed", zap.Int("remaining", len(s.sessions)))
	}
}

// Shutdown closes every session and the listener.
func (s *Server) Shutdown() {
	for _, sess := range s.sessions {
		sess.Close("server shutdown")
	}
	s.Reap()
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
}

// ServerTime is the number of seconds since the server started.
func (s *Server) ServerTime() float64 {
	return s.now.Sub(s.start).Seconds()
}

func (s *Server) onAvatarChanged(ev event.AvatarChanged) {
	for _, sess := range s.sessions {
		if sess.State() == packet.StateRegistered {
			sess.Notify(ev.ID)
		}
	}
}

func (s *Server) handleRegistration(v any, m packet.Message) {
	sess := v.(*Session)
	req := m.(*packet.RegistrationRequest)

	resp := &packet.RegistrationResponse{
		ProtocolVersion: s.cfg.ProtocolVersion,
		AvatarID:        uint32(entity.Invalid),
	}
	if req.ProtocolVersion != s.cfg.ProtocolVersion {
		sess.log.Warn("protocol version mismatch",
			zap.Uint32("client", req.ProtocolVersion), zap.Uint32("server", s.cfg.ProtocolVersion))
		resp.Result = packet.RegistrationVersionMismatch
		sess.Send(resp)
		return
	}

	id, err := s.world.Spawn(s.cfg.PlayerUnit, s.cfg.Spawn, uint32(sess.Index))
	if err != nil {
		sess.log.Warn("registration refused", zap.Error(err))
		resp.Result = packet.RegistrationError
		sess.Send(resp)
		return
	}

	sess.Avatar = id
	sess.SetState(packet.StateRegistered)
	resp.Result = packet.RegistrationOK
	resp.AvatarID = uint32(id)
	sess.Send(resp)

	s.world.Each(func(id entity.Uii, _ *world.Avatar) {
		sess.Notify(id)
	})
	sess.log.Info("client registered", zap.Stringer("avatar", id))
}

func (s *Server) handlePing(v any, m packet.Message) {
	sess := v.(*Session)
	ping := m.(*packet.Ping)
	sess.Send(&packet.Pong{ClientTime: ping.ClientTime, ServerTime: s.ServerTime()})
}

// ownAvatar checks that a command names the sender's avatar.
func (s *Server) ownAvatar(sess *Session, raw uint32) bool {
	if entity.Uii(raw) != sess.Avatar {
		sess.log.Warn("command for foreign avatar ignored",
			zap.Stringer("avatar", entity.Uii(raw)), zap.Stringer("own", sess.Avatar))
		return false
	}
	return true
}

func (s *Server) handleWalk(v any, m packet.Message) {
	sess := v.(*Session)
	cmd := m.(*packet.WalkToPoint)
	if !s.ownAvatar(sess, cmd.AvatarID) {
		return
	}
	if err := s.world.Walk(sess.Avatar, world.Point{X: cmd.X, Y: cmd.Y}); err != nil {
		sess.log.Debug("walk rejected", zap.Error(err))
	}
}

func (s *Server) handleInteract(v any, m packet.Message) {
	sess := v.(*Session)
	cmd := m.(*packet.InteractWithItem)
	if !s.ownAvatar(sess, cmd.AvatarID) {
		return
	}
	if err := s.world.Interact(sess.Avatar, entity.Uii(cmd.ItemID)); err != nil {
		sess.log.Debug("interact rejected", zap.Error(err))
	}
}

func (s *Server) handleAttack(v any, m packet.Message) {
	sess := v.(*Session)
	cmd := m.(*packet.Attack)
	if !s.ownAvatar(sess, cmd.AvatarID) {
		return
	}
	if err := s.world.Attack(sess.Avatar, entity.Uii(cmd.TargetID)); err != nil {
		sess.log.Debug("attack rejected", zap.Error(err))
	}
}
