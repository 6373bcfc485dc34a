package world

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/inmosttrail/server/internal/core/entity"
	"github.com/inmosttrail/server/internal/core/event"
	"github.com/inmosttrail/server/internal/data"
	"github.com/inmosttrail/server/internal/scripting"
)

var (
	ErrWorldFull   = errors.New("world: avatar capacity exhausted")
	ErrNoAvatar    = errors.New("world: avatar not found")
	ErrOutOfBounds = errors.New("world: point out of bounds")
	ErrBadTarget   = errors.New("world: invalid target")
	ErrBlocked     = errors.New("world: cell is blocked")
)

// Terrain types stored in the cell tag.
const (
	TerrainOpen    uint32 = 0
	TerrainBlocked uint32 = 1
)

// Segment limits imposed by the wire format: duration is u16, offsets are i16.
const (
	maxSegmentTicks = math.MaxUint16
	maxSegmentCells = math.MaxInt16
)

// Wanderer picks a destination for an idle server-controlled avatar.
type Wanderer interface {
	Wander(ctx scripting.WanderContext) (x, y uint32, ok bool)
}

// Options sizes the world.
type Options struct {
	Width          uint32
	Height         uint32
	Capacity       int
	WanderInterval uint32 // ticks between wander decisions; 0 disables wandering
}

// State owns every avatar and the grid they stand on. It is mutated only
// from the game loop; connections resolve avatars through it.
type State struct {
	avatars  *entity.Vector[Avatar]
	grid     *entity.Grid
	units    *data.UnitTable
	bus      *event.Bus
	wanderer Wanderer
	interval uint32
	tick     uint32
	log      *zap.Logger
}

func NewState(opts Options, units *data.UnitTable, bus *event.Bus, log *zap.Logger) *State {
	s := &State{
		avatars:  entity.NewVector[Avatar](opts.Capacity),
		grid:     entity.NewGrid(opts.Width, opts.Height),
		units:    units,
		bus:      bus,
		interval: opts.WanderInterval,
		log:      log,
	}
	event.Subscribe(bus, s.onSessionClosed)
	return s
}

// onSessionClosed stops the avatar a departed connection was driving. The
// avatar stays in the world under server control.
func (s *State) onSessionClosed(ev event.SessionClosed) {
	if !ev.Avatar.Valid() {
		return
	}
	if err := s.Halt(ev.Avatar); err == nil {
		s.log.Debug("avatar released", zap.Stringer("id", ev.Avatar), zap.String("reason", ev.Reason))
	}
}

// SetWanderer installs the wander policy for server-controlled avatars.
func (s *State) SetWanderer(w Wanderer) { s.wanderer = w }

func (s *State) Tick() uint32 { return s.tick }
func (s *State) Width() uint32 { return s.grid.Width() }
func (s *State) Height() uint32 { return s.grid.Height() }
func (s *State) Count() int { return s.avatars.Len() }
func (s *State) Capacity() int { return s.avatars.Cap() }
func (s *State) Units() *data.UnitTable { return s.units }

// Resolve returns the avatar for id if it is still alive.
func (s *State) Resolve(id entity.Uii) (*Avatar, bool) {
	return s.avatars.Resolve(id)
}

// Each visits every live avatar in slot order.
func (s *State) Each(fn func(entity.Uii, *Avatar)) {
	s.avatars.Each(fn)
}

// Occupants visits the avatars linked into the cell at p.
func (s *State) Occupants(p Point, fn func(entity.Uii, *Avatar)) {
	if !s.grid.Contains(p.X, p.Y) {
		return
	}
	s.avatars.EachInCell(s.grid.At(p.X, p.Y), fn)
}

// Paint tags the cells covered by rects, clipped to the map, and returns
// the number of cells written.
func (s *State) Paint(rects []data.TerrainRect) int {
	n := 0
	for _, r := range rects {
		for y := r.Y; y < r.Y+r.Height && y < s.grid.Height(); y++ {
			for x := r.X; x < r.X+r.Width && x < s.grid.Width(); x++ {
				s.grid.At(x, y).SetType(r.Type)
				n++
			}
		}
	}
	return n
}

// Terrain returns the terrain type at p, or TerrainBlocked off the map.
func (s *State) Terrain(p Point) uint32 {
	if !s.grid.Contains(p.X, p.Y) {
		return TerrainBlocked
	}
	return s.grid.At(p.X, p.Y).Type()
}

// Passable reports whether an avatar may stand at p.
func (s *State) Passable(p Point) bool {
	return s.Terrain(p) != TerrainBlocked
}

// Spawn creates an avatar at p.
func (s *State) Spawn(unitType uint8, p Point, owner uint32) (entity.Uii, error) {
	if !s.grid.Contains(p.X, p.Y) {
		return entity.Invalid, fmt.Errorf("spawn at (%d,%d): %w", p.X, p.Y, ErrOutOfBounds)
	}
	if !s.Passable(p) {
		return entity.Invalid, fmt.Errorf("spawn at (%d,%d): %w", p.X, p.Y, ErrBlocked)
	}
	id := s.avatars.Allocate()
	if !id.Valid() {
		return entity.Invalid, ErrWorldFull
	}
	a, _ := s.avatars.Resolve(id)
	a.Owner = owner
	a.UnitType = unitType
	a.State = Idle
	a.Target = entity.Invalid
	a.park(p, s.tick)
	s.avatars.AttachToCell(id, s.grid.At(p.X, p.Y))

	s.changed(id)
	s.log.Debug("avatar spawned",
		zap.Stringer("id", id),
		zap.Uint8("unit", unitType),
		zap.Uint32("x", p.X), zap.Uint32("y", p.Y))
	return id, nil
}

// Despawn removes an avatar from the grid and frees its slot. Outstanding
// identifiers stop resolving.
func (s *State) Despawn(id entity.Uii) error {
	if _, ok := s.avatars.Resolve(id); !ok {
		return ErrNoAvatar
	}
	s.avatars.DetachGetNext(id)
	s.avatars.Release(id)
	s.changed(id)
	return nil
}

// SetOwner reassigns the controlling connection of an avatar.
func (s *State) SetOwner(id entity.Uii, owner uint32) error {
	a, ok := s.avatars.Resolve(id)
	if !ok {
		return ErrNoAvatar
	}
	a.Owner = owner
	return nil
}

// Halt stops an avatar where it currently stands.
func (s *State) Halt(id entity.Uii) error {
	a, ok := s.avatars.Resolve(id)
	if !ok {
		return ErrNoAvatar
	}
	s.stop(id, a)
	return nil
}

// Walk starts walking an avatar to p.
func (s *State) Walk(id entity.Uii, p Point) error {
	a, err := s.commandable(id)
	if err != nil {
		return err
	}
	if !s.grid.Contains(p.X, p.Y) {
		return fmt.Errorf("walk to (%d,%d): %w", p.X, p.Y, ErrOutOfBounds)
	}
	if !s.Passable(p) {
		return fmt.Errorf("walk to (%d,%d): %w", p.X, p.Y, ErrBlocked)
	}
	a.Target = entity.Invalid
	s.startWalk(id, a, p, WalkToPoint)
	return nil
}

// Interact walks an avatar up to another entity.
func (s *State) Interact(id, item entity.Uii) error {
	a, err := s.commandable(id)
	if err != nil {
		return err
	}
	other, ok := s.avatars.Resolve(item)
	if !ok || item == id {
		return ErrBadTarget
	}
	a.Target = item
	s.startWalk(id, a, other.CellAt(s.tick), WalkToItem)
	return nil
}

// Attack walks an avatar into reach of target and plays an attack.
func (s *State) Attack(id, target entity.Uii) error {
	a, err := s.commandable(id)
	if err != nil {
		return err
	}
	other, ok := s.avatars.Resolve(target)
	if !ok || target == id || other.State == Dead {
		return ErrBadTarget
	}
	a.Target = target
	s.approach(id, a, other)
	return nil
}

func (s *State) commandable(id entity.Uii) (*Avatar, error) {
	a, ok := s.avatars.Resolve(id)
	if !ok {
		return nil, ErrNoAvatar
	}
	if a.State == Dead || a.State == PlayDying {
		return nil, fmt.Errorf("avatar %s is %s: %w", id, a.State, ErrBadTarget)
	}
	return a, nil
}

// Update advances the world by one tick.
func (s *State) Update() {
	s.tick++
	s.avatars.Each(func(id entity.Uii, a *Avatar) {
		switch {
		case a.State.Walking():
			s.updateWalk(id, a)
		case a.State == PlayAttack:
			if s.tick >= a.EndTick {
				a.State = Idle
				a.Target = entity.Invalid
				a.park(a.End, s.tick)
				s.changed(id)
			}
		case a.State == Idle && !a.Owned():
			s.wander(id, a)
		}
	})
}

func (s *State) updateWalk(id entity.Uii, a *Avatar) {
	var target *Avatar
	if a.State != WalkToPoint {
		t, ok := s.avatars.Resolve(a.Target)
		if !ok {
			// target despawned while we were walking to it
			s.stop(id, a)
			return
		}
		target = t
	}
	if s.tick < a.EndTick {
		return
	}

	s.relocate(id, a, a.End)
	if a.End != a.Goal {
		s.startWalk(id, a, a.Goal, a.State)
		return
	}

	switch a.State {
	case WalkToAttack:
		s.approach(id, a, target)
	case WalkToItem:
		s.log.Debug("avatar reached item", zap.Stringer("id", id), zap.Stringer("item", a.Target))
		a.State = Idle
		a.Target = entity.Invalid
		a.park(a.End, s.tick)
		s.changed(id)
	default:
		a.State = Idle
		a.park(a.End, s.tick)
		s.changed(id)
	}
}

// approach plays an attack when target is in reach, otherwise walks to the
// nearest point within reach of it.
func (s *State) approach(id entity.Uii, a *Avatar, target *Avatar) {
	unit := s.units.Get(a.UnitType)
	here := a.CellAt(s.tick)
	there := target.CellAt(s.tick)
	if here.Chebyshev(there) <= unit.Reach {
		s.relocate(id, a, here)
		a.park(here, s.tick)
		a.State = PlayAttack
		a.EndTick = s.tick + uint32(unit.AttackTicks)
		s.changed(id)
		return
	}
	goal := Point{
		X: offsetTowards(there.X, here.X, unit.Reach),
		Y: offsetTowards(there.Y, here.Y, unit.Reach),
	}
	if !s.Passable(goal) {
		goal = there
	}
	s.startWalk(id, a, goal, WalkToAttack)
}

// offsetTowards moves from by at most reach toward to.
func offsetTowards(from, to, reach uint32) uint32 {
	d := absDiff(from, to)
	if d > reach {
		d = reach
	}
	if to < from {
		return from - d
	}
	return from + d
}

// startWalk begins the next motion segment toward goal from the avatar's
// current position. Long walks are split into segments the wire can carry.
func (s *State) startWalk(id entity.Uii, a *Avatar, goal Point, state ChState) {
	here := a.CellAt(s.tick)
	s.relocate(id, a, here)

	walk := uint32(s.units.Get(a.UnitType).WalkTicks)
	limit := uint32(maxSegmentCells)
	if byTicks := maxSegmentTicks / walk; byTicks < limit {
		limit = byTicks
	}

	end := goal
	if d := here.Chebyshev(goal); d > limit {
		end = Point{
			X: scaleStep(here.X, goal.X, limit, d),
			Y: scaleStep(here.Y, goal.Y, limit, d),
		}
	}

	a.State = state
	a.Begin = here
	a.BeginTick = s.tick
	a.End = end
	a.EndTick = s.tick + here.Chebyshev(end)*walk
	a.Goal = goal
	s.changed(id)
}

func scaleStep(from, to, limit, dist uint32) uint32 {
	delta := uint64(absDiff(from, to)) * uint64(limit) / uint64(dist)
	if to < from {
		return from - uint32(delta)
	}
	return from + uint32(delta)
}

// stop freezes the avatar at its interpolated position.
func (s *State) stop(id entity.Uii, a *Avatar) {
	here := a.CellAt(s.tick)
	s.relocate(id, a, here)
	a.State = Idle
	a.Target = entity.Invalid
	a.park(here, s.tick)
	s.changed(id)
}

// relocate moves the avatar's cell membership to p.
func (s *State) relocate(id entity.Uii, a *Avatar, p Point) {
	cell := s.grid.At(p.X, p.Y)
	if s.avatars.CellOf(id) == cell {
		return
	}
	s.avatars.DetachGetNext(id)
	s.avatars.AttachToCell(id, cell)
}

func (s *State) wander(id entity.Uii, a *Avatar) {
	if s.wanderer == nil || s.interval == 0 {
		return
	}
	// stagger decisions so avatars do not all move on the same tick
	if (s.tick+id.Index())%s.interval != 0 {
		return
	}
	x, y, ok := s.wanderer.Wander(scripting.WanderContext{
		UnitType: a.UnitType,
		X:        a.End.X,
		Y:        a.End.Y,
		Tick:     s.tick,
		Width:    s.grid.Width(),
		Height:   s.grid.Height(),
	})
	if !ok || !s.Passable(Point{x, y}) || (Point{x, y}) == a.End {
		return
	}
	a.Target = entity.Invalid
	s.startWalk(id, a, Point{x, y}, WalkToPoint)
}

// Populate spawns the server-controlled avatars of a spawn list, scattered
// within each entry's spread. Returns the number spawned.
func (s *State) Populate(spawns []data.SpawnEntry, rng *rand.Rand) int {
	n := 0
	for _, sp := range spawns {
		for i := 0; i < sp.Count; i++ {
			p := Point{
				X: scatter(sp.X, sp.Spread, s.grid.Width(), rng),
				Y: scatter(sp.Y, sp.Spread, s.grid.Height(), rng),
			}
			if _, err := s.Spawn(sp.Unit, p, NoOwner); err != nil {
				s.log.Warn("spawn entry skipped",
					zap.Uint8("unit", sp.Unit), zap.Error(err))
				if errors.Is(err, ErrWorldFull) {
					return n
				}
				continue
			}
			n++
		}
	}
	return n
}

func scatter(center, spread, limit uint32, rng *rand.Rand) uint32 {
	if spread == 0 || limit == 0 {
		return center
	}
	lo := int64(center) - int64(spread)
	hi := int64(center) + int64(spread)
	if lo < 0 {
		lo = 0
	}
	if hi >= int64(limit) {
		hi = int64(limit) - 1
	}
	if hi < lo {
		return center
	}
	return uint32(lo + rng.Int63n(hi-lo+1))
}

func (s *State) changed(id entity.Uii) {
	event.Emit(s.bus, event.AvatarChanged{ID: id})
}
