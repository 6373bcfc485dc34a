package event

import "github.com/inmosttrail/server/internal/core/entity"

// AvatarChanged is emitted whenever an avatar's replicated state changes:
// spawn, new motion segment, arrival, attack, despawn.
type AvatarChanged struct {
	ID entity.Uii
}

// SessionClosed is emitted after a server session has been removed from the
// connection table. Avatar is the avatar it owned, or entity.Invalid.
type SessionClosed struct {
	Avatar entity.Uii
	Reason string
}
