package system

import (
	"time"

	coresys "github.com/inmosttrail/server/internal/core/system"
	"github.com/inmosttrail/server/internal/net"
)

// CleanupSystem removes closed sessions at tick end. Phase 5 (Cleanup).
type CleanupSystem struct {
	server *net.Server
}

func NewCleanupSystem(server *net.Server) *CleanupSystem {
	return &CleanupSystem{server: server}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.server.Reap()
}
