package net

import (
	"github.com/inmosttrail/server/internal/core/entity"
	"github.com/inmosttrail/server/internal/net/packet"
	"github.com/inmosttrail/server/internal/world"
)

// avatarState encodes the current motion segment of a.
func avatarState(id entity.Uii, a *world.Avatar) *packet.AvatarState {
	return &packet.AvatarState{
		ID:            uint32(id),
		UnitType:      a.UnitType,
		State:         uint8(a.State),
		BeginTick:     a.BeginTick,
		BeginX:        a.Begin.X,
		BeginY:        a.Begin.Y,
		DurationTicks: uint16(a.EndTick - a.BeginTick),
		EndOffsetX:    int16(int64(a.End.X) - int64(a.Begin.X)),
		EndOffsetY:    int16(int64(a.End.Y) - int64(a.Begin.Y)),
		TargetID:      uint32(a.Target),
	}
}

// mirrorAvatar rebuilds the replicated fields of an avatar on the client.
func mirrorAvatar(m *packet.AvatarState) world.Avatar {
	begin := world.Point{X: m.BeginX, Y: m.BeginY}
	end := world.Point{
		X: uint32(int64(m.BeginX) + int64(m.EndOffsetX)),
		Y: uint32(int64(m.BeginY) + int64(m.EndOffsetY)),
	}
	return world.Avatar{
		Owner:     world.NoOwner,
		UnitType:  m.UnitType,
		State:     world.ChState(m.State),
		Begin:     begin,
		BeginTick: m.BeginTick,
		End:       end,
		EndTick:   m.BeginTick + uint32(m.DurationTicks),
		Goal:      end,
		Target:    entity.Uii(m.TargetID),
	}
}
