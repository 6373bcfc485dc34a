package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/inmosttrail/server/internal/core/entity"
)

// NoOwner marks an avatar driven by the server rather than a connection.
const NoOwner = ^uint32(0)

// ChState is the behaviour state of an avatar.
type ChState uint8

const (
	Idle ChState = iota
	WalkToPoint
	WalkToItem
	WalkToAttack
	PlayAttack
	PlayDying
	Dead
	ChStateCount
)

var chStateNames = [ChStateCount]string{
	"idle", "walk_to_point", "walk_to_item", "walk_to_attack",
	"play_attack", "play_dying", "dead",
}

func (s ChState) String() string {
	if s < ChStateCount {
		return chStateNames[s]
	}
	return "unknown"
}

// Walking reports whether the state follows a motion segment.
func (s ChState) Walking() bool {
	return s == WalkToPoint || s == WalkToItem || s == WalkToAttack
}

// Point is a grid cell coordinate.
type Point struct {
	X, Y uint32
}

// Chebyshev returns the king-move distance between p and q.
func (p Point) Chebyshev(q Point) uint32 {
	dx := absDiff(p.X, q.X)
	dy := absDiff(p.Y, q.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// Avatar is one in-world character. Its motion is the straight segment
// Begin@BeginTick → End@EndTick; the avatar is linked into the cell of Begin.
// Accessed only from the game loop goroutine.
type Avatar struct {
	Owner     uint32 // connection table index, or NoOwner
	UnitType  uint8
	State     ChState
	Begin     Point
	BeginTick uint32
	End       Point
	EndTick   uint32
	Goal      Point // final destination; differs from End when a walk spans several segments
	Target    entity.Uii
}

// PositionAt interpolates the avatar position at tick.
func (a *Avatar) PositionAt(tick uint32) mgl64.Vec2 {
	begin := mgl64.Vec2{float64(a.Begin.X), float64(a.Begin.Y)}
	end := mgl64.Vec2{float64(a.End.X), float64(a.End.Y)}
	switch {
	case a.EndTick <= a.BeginTick, tick >= a.EndTick:
		return end
	case tick <= a.BeginTick:
		return begin
	}
	t := float64(tick-a.BeginTick) / float64(a.EndTick-a.BeginTick)
	return begin.Add(end.Sub(begin).Mul(t))
}

// CellAt returns the cell nearest to the interpolated position at tick.
func (a *Avatar) CellAt(tick uint32) Point {
	p := a.PositionAt(tick)
	return Point{X: uint32(math.Round(p.X())), Y: uint32(math.Round(p.Y()))}
}

// Owned reports whether a connection controls the avatar.
func (a *Avatar) Owned() bool {
	return a.Owner != NoOwner
}

// park places the avatar at p with no pending motion.
func (a *Avatar) park(p Point, tick uint32) {
	a.Begin, a.End, a.Goal = p, p, p
	a.BeginTick, a.EndTick = tick, tick
}
