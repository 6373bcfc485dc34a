package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the connection's current protocol phase.
type SessionState int

const (
	StateInvalid       SessionState = iota
	StateJustConnected              // socket accepted, awaiting registration
	StateRegistered                 // registration accepted, commands allowed
	StateClosed                     // socket gone, waiting to be reclaimed
)

func (s SessionState) String() string {
	switch s {
	case StateInvalid:
		return "Invalid"
	case StateJustConnected:
		return "JustConnected"
	case StateRegistered:
		return "Registered"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for message handlers.
// The session pointer is passed as an opaque interface to avoid import cycles.
type HandlerFunc func(sess any, m Message)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps message types to handlers with state-based access control.
type Registry struct {
	handlers [MsgTypeCount]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log}
}

// Register maps a message type to a handler, restricted to the given states.
func (reg *Registry) Register(t MsgType, states []SessionState, fn HandlerFunc) {
	if !t.Valid() {
		panic(fmt.Sprintf("packet: register %s", t))
	}
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[t] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for m, validates the session state, and calls
// the handler. Messages without a handler on this side are ignored.
func (reg *Registry) Dispatch(sess any, state SessionState, m Message) error {
	t := m.Type()
	reg.log.Debug("message received",
		zap.Stringer("type", t),
		zap.Stringer("state", state),
	)

	entry := reg.handlers[t]
	if entry == nil {
		reg.log.Debug("no handler for message", zap.Stringer("type", t), zap.Stringer("state", state))
		return nil
	}

	if !entry.allowedStates[state] {
		reg.log.Warn("message not allowed in this state",
			zap.Stringer("type", t),
			zap.Stringer("state", state),
		)
		return fmt.Errorf("%w: %s in %s", ErrNotAllowed, t, state)
	}

	entry.fn(sess, m)
	return nil
}
