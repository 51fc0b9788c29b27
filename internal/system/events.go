package system

import (
	"time"

	"github.com/l1jgo/progress/internal/core/event"
	coresys "github.com/l1jgo/progress/internal/core/system"
)

// EventDispatchSystem delivers last tick's events. Phase 0 (First).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseFirst }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
