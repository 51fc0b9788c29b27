package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseFirst      Phase = iota // 0: drain cross-goroutine progress messages
	PhasePreUpdate               // 1: host input
	PhaseUpdate                  // 2: progress producers
	PhasePostUpdate              // 3: entity and asset progress
	PhaseLast                    // 4: debug, metrics, readiness check
	PhaseCleanup                 // 5: flush despawned entities
)

var phaseNames = [...]string{"first", "pre_update", "update", "post_update", "last", "cleanup"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// System is the interface every system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Conditional systems are skipped for a tick when ShouldRun returns false.
type Conditional interface {
	ShouldRun() bool
}

// Concurrent systems may run in parallel with other concurrent systems of the
// same phase. They must only touch goroutine-safe state.
type Concurrent interface {
	Concurrent() bool
}

// Func adapts a plain function to a System.
type Func struct {
	P  Phase
	Fn func(dt time.Duration)
}

func (f Func) Phase() Phase            { return f.P }
func (f Func) Update(dt time.Duration) { f.Fn(dt) }
