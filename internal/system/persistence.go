package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/inmosttrail/server/internal/core/entity"
	coresys "github.com/inmosttrail/server/internal/core/system"
	"github.com/inmosttrail/server/internal/persist"
	"github.com/inmosttrail/server/internal/world"
)

// AvatarStore is the persistence backend used by PersistenceSystem.
type AvatarStore interface {
	SaveAll(ctx context.Context, rows []persist.AvatarRow) error
}

// PersistenceSystem periodically saves every server-controlled avatar.
// Avatars driven by a connection are not saved. Phase 4 (Persist).
type PersistenceSystem struct {
	world     *world.State
	store     AvatarStore
	log       *zap.Logger
	tickCount int
	interval  int // save every N ticks
}

func NewPersistenceSystem(ws *world.State, store AvatarStore, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	return &PersistenceSystem{
		world:    ws,
		store:    store,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.SaveAll()
}

// SaveAll persists the server-controlled population immediately.
// Called for graceful shutdown.
func (s *PersistenceSystem) SaveAll() {
	var rows []persist.AvatarRow
	s.world.Each(func(_ entity.Uii, a *world.Avatar) {
		if a.Owned() || a.State == world.Dead {
			return
		}
		p := a.CellAt(s.world.Tick())
		rows = append(rows, persist.AvatarRow{
			UnitType: int16(a.UnitType),
			X:        int32(p.X),
			Y:        int32(p.Y),
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.SaveAll(ctx, rows); err != nil {
		s.log.Error("avatar save failed", zap.Int("count", len(rows)), zap.Error(err))
		return
	}
	s.log.Debug("avatars saved", zap.Int("count", len(rows)))
}

// Restore spawns the stored population as server-controlled avatars.
// Rows outside the current world are skipped. Returns the number spawned.
func Restore(ws *world.State, rows []persist.AvatarRow, log *zap.Logger) int {
	n := 0
	for _, r := range rows {
		if r.X < 0 || r.Y < 0 || r.UnitType < 0 || r.UnitType > 255 {
			continue
		}
		if _, err := ws.Spawn(uint8(r.UnitType), world.Point{X: uint32(r.X), Y: uint32(r.Y)}, world.NoOwner); err != nil {
			log.Warn("stored avatar skipped", zap.Int32("x", r.X), zap.Int32("y", r.Y), zap.Error(err))
			continue
		}
		n++
	}
	return n
}
