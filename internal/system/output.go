package system

import (
	"time"

	coresys "github.com/inmosttrail/server/internal/core/system"
	"github.com/inmosttrail/server/internal/net"
)

// OutputSystem encodes queued responses and avatar states and writes what
// the sockets accept. Phase 3 (Output).
type OutputSystem struct {
	server *net.Server
}

func NewOutputSystem(server *net.Server) *OutputSystem {
	return &OutputSystem{server: server}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	s.server.Flush()
}
