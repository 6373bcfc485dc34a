package net

import (
	"time"

	"go.uber.org/zap"

	"github.com/inmosttrail/server/internal/core/entity"
	"github.com/inmosttrail/server/internal/net/packet"
	"github.com/inmosttrail/server/internal/world"
)

// ClientConfig holds the client-side protocol and pacing settings.
type ClientConfig struct {
	ProtocolVersion uint32
	MaxReadsPerTick int
	PingInterval    time.Duration // 0 disables pings
	BucketSize      int
	BucketRefill    time.Duration
}

// DefaultClientConfig matches the pacing the server expects.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ProtocolVersion: packet.ProtocolVersion,
		MaxReadsPerTick: 128,
		PingInterval:    time.Second,
		BucketSize:      4,
		BucketRefill:    250 * time.Millisecond,
	}
}

// Client drives a single connection to one server. Update is called once
// per frame from the owning loop and never blocks.
type Client struct {
	cfg      ClientConfig
	conn     *Conn
	registry *packet.Registry
	bucket   *Bucket

	started   bool
	start     time.Time
	now       time.Time
	requested bool
	avatar    entity.Uii

	lastPing    time.Time
	pendingPing bool
	rtt         time.Duration
	clockOffset float64
	pongs       int

	command packet.Message // latest player command not yet sent
	mirror  map[entity.Uii]world.Avatar

	log *zap.Logger
}

func NewClient(sock Socket, cfg ClientConfig, log *zap.Logger) *Client {
	if cfg.MaxReadsPerTick <= 0 {
		cfg.MaxReadsPerTick = 128
	}
	if cfg.BucketSize <= 0 {
		cfg.BucketSize = 4
	}
	c := &Client{
		cfg:      cfg,
		conn:     NewConn(sock, log),
		registry: packet.NewRegistry(log),
		bucket:   NewBucket(cfg.BucketSize, cfg.BucketRefill),
		avatar:   entity.Invalid,
		mirror:   make(map[entity.Uii]world.Avatar),
		log:      log,
	}
	c.registry.Register(packet.MsgRegistrationResponse,
		[]packet.SessionState{packet.StateJustConnected}, c.handleRegistration)
	c.registry.Register(packet.MsgPong,
		[]packet.SessionState{packet.StateJustConnected, packet.StateRegistered}, c.handlePong)
	c.registry.Register(packet.MsgAvatarState,
		[]packet.SessionState{packet.StateRegistered}, c.handleAvatarState)
	return c
}

func (c *Client) State() packet.SessionState { return c.conn.State() }

func (c *Client) Closed() bool { return c.conn.Closed() }

func (c *Client) Close() { c.conn.Close("client shutdown") }

// Avatar is the identifier of the avatar this client controls, or
// entity.Invalid before registration completes.
func (c *Client) Avatar() entity.Uii { return c.avatar }

// RTT is the last measured round trip.
func (c *Client) RTT() time.Duration { return c.rtt }

// ClockOffset estimates server time minus client time, in seconds.
func (c *Client) ClockOffset() float64 { return c.clockOffset }

// Lookup returns the last known state of an avatar.
func (c *Client) Lookup(id entity.Uii) (world.Avatar, bool) {
	a, ok := c.mirror[id]
	return a, ok
}

// Each visits every mirrored avatar.
func (c *Client) Each(fn func(entity.Uii, world.Avatar)) {
	for id, a := range c.mirror {
		fn(id, a)
	}
}

func (c *Client) Known() int { return len(c.mirror) }

// Pongs counts the pongs received so far.
func (c *Client) Pongs() int { return c.pongs }

// WalkTo replaces any unsent command with a walk to (x, y).
func (c *Client) WalkTo(x, y uint32) {
	c.command = &packet.WalkToPoint{AvatarID: uint32(c.avatar), X: x, Y: y}
}

// Interact replaces any unsent command with an interaction with item.
func (c *Client) Interact(item entity.Uii) {
	c.command = &packet.InteractWithItem{AvatarID: uint32(c.avatar), ItemID: uint32(item)}
}

// Attack replaces any unsent command with an attack on target.
func (c *Client) Attack(target entity.Uii) {
	c.command = &packet.Attack{AvatarID: uint32(c.avatar), TargetID: uint32(target)}
}

// clock is the client time in seconds carried in pings.
func (c *Client) clock(now time.Time) float64 {
	return now.Sub(c.start).Seconds()
}

// Update runs one client step: read, queue due output, write.
func (c *Client) Update(now time.Time) {
	if c.Closed() {
		return
	}
	if !c.started {
		c.started = true
		c.start = now
	}
	c.now = now

	c.conn.ReadStep(c.cfg.MaxReadsPerTick, func(m packet.Message) {
		_ = c.registry.Dispatch(c, c.conn.State(), m)
	})
	if c.Closed() {
		return
	}

	if !c.requested {
		c.requested = c.conn.Append(&packet.RegistrationRequest{ProtocolVersion: c.cfg.ProtocolVersion})
	}
	if c.cfg.PingInterval > 0 && (c.lastPing.IsZero() || now.Sub(c.lastPing) >= c.cfg.PingInterval) {
		c.pendingPing = true
		c.lastPing = now
	}

	if !c.conn.Pending() {
		if c.pendingPing && c.conn.Append(&packet.Ping{ClientTime: c.clock(now)}) {
			c.pendingPing = false
		}
		if c.command != nil && c.conn.State() == packet.StateRegistered && c.bucket.Take(now) {
			c.conn.Append(c.command)
			c.command = nil
		}
	}

	c.conn.WriteStep()
}

func (c *Client) handleRegistration(_ any, m packet.Message) {
	resp := m.(*packet.RegistrationResponse)
	switch resp.Result {
	case packet.RegistrationOK:
		c.avatar = entity.Uii(resp.AvatarID)
		c.conn.SetState(packet.StateRegistered)
		c.log.Info("registered", zap.Stringer("avatar", c.avatar))
	case packet.RegistrationVersionMismatch:
		c.log.Error("server speaks a different protocol",
			zap.Uint32("server", resp.ProtocolVersion), zap.Uint32("client", c.cfg.ProtocolVersion))
		c.conn.Close("version mismatch")
	default:
		c.log.Error("registration refused", zap.Uint32("result", uint32(resp.Result)))
		c.conn.Close("registration refused")
	}
}

func (c *Client) handlePong(_ any, m packet.Message) {
	pong := m.(*packet.Pong)
	sent := pong.ClientTime
	now := c.clock(c.now)
	if now < sent {
		return
	}
	rtt := now - sent
	c.rtt = time.Duration(rtt * float64(time.Second))
	c.clockOffset = pong.ServerTime - (sent + rtt/2)
	c.pongs++
}

func (c *Client) handleAvatarState(_ any, m packet.Message) {
	st := m.(*packet.AvatarState)
	c.mirror[entity.Uii(st.ID)] = mirrorAvatar(st)
}
