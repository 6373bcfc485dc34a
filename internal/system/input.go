package system

import (
	"time"

	coresys "github.com/inmosttrail/server/internal/core/system"
	"github.com/inmosttrail/server/internal/net"
)

// InputSystem accepts at most one new connection and runs the read step of
// every session, dispatching complete messages. Phase 0 (Input).
type InputSystem struct {
	server *net.Server
	clock  func() time.Time
}

func NewInputSystem(server *net.Server, clock func() time.Time) *InputSystem {
	if clock == nil {
		clock = time.Now
	}
	return &InputSystem{server: server, clock: clock}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	now := s.clock()
	s.server.Accept(now)
	s.server.Read(now)
}
