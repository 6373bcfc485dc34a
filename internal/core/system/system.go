package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput   Phase = iota // 0: accept connections, read and dispatch messages
	PhaseEvents               // 1: deliver last tick's events
	PhaseUpdate               // 2: world logic
	PhaseOutput               // 3: fill and flush outbound buffers
	PhasePersist              // 4: periodic avatar save
	PhaseCleanup              // 5: reap closed sessions
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
