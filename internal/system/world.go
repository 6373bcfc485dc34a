package system

import (
	"time"

	coresys "github.com/inmosttrail/server/internal/core/system"
	"github.com/inmosttrail/server/internal/world"
)

// WorldSystem advances avatar motion, attacks and wandering by one tick.
// Phase 2 (Update).
type WorldSystem struct {
	world *world.State
}

func NewWorldSystem(ws *world.State) *WorldSystem {
	return &WorldSystem{world: ws}
}

func (s *WorldSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *WorldSystem) Update(_ time.Duration) {
	s.world.Update()
}
