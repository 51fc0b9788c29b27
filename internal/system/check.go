package system

import (
	"time"

	"github.com/l1jgo/progress/internal/core/event"
	coresys "github.com/l1jgo/progress/internal/core/system"
	"github.com/l1jgo/progress/internal/progress"
	"go.uber.org/zap"
)

// Transitioner queues a state change. *state.Machine satisfies it.
type Transitioner[S comparable] interface {
	RequestTransition(target S)
}

// CheckSystem asks for the configured transition once every tracked entry
// is done. Phase 4 (Last), after all producers of the tick have reported.
type CheckSystem[S comparable] struct {
	gate
	from, target S
	tracker      *progress.Tracker
	ch           *progress.Channel
	states       Transitioner[S]
	bus          *event.Bus
	log          *zap.Logger

	now      func() time.Time
	started  time.Time
	reported bool
}

// NewCheckSystem builds the check for one from->target pair. bus may be nil.
func NewCheckSystem[S comparable](from, target S, tracker *progress.Tracker, ch *progress.Channel,
	states Transitioner[S], bus *event.Bus, active func() bool, log *zap.Logger) *CheckSystem[S] {
	return &CheckSystem[S]{
		gate:    gate{active},
		from:    from,
		target:  target,
		tracker: tracker,
		ch:      ch,
		states:  states,
		bus:     bus,
		log:     log,
		now:     time.Now,
		started: time.Now(),
	}
}

func (s *CheckSystem[S]) Phase() coresys.Phase { return coresys.PhaseLast }

// Begin starts a new session. Called on entering the tracked state.
func (s *CheckSystem[S]) Begin() {
	s.started = s.now()
	s.reported = false
}

func (s *CheckSystem[S]) Update(_ time.Duration) {
	if !s.tracker.IsReady() {
		return
	}
	s.states.RequestTransition(s.target)
	if s.reported {
		return
	}
	s.reported = true

	finished := s.now()
	ev := event.ProgressComplete[S]{
		State:    s.from,
		Target:   s.target,
		Visible:  s.tracker.GlobalProgress(),
		Hidden:   s.tracker.GlobalHiddenProgress(),
		Entries:  s.tracker.Len(),
		Elapsed:  finished.Sub(s.started),
		Finished: finished,
	}
	if s.ch != nil {
		ev.Dropped = s.ch.Dropped()
	}
	s.log.Info("progress complete",
		zap.Stringer("visible", ev.Visible),
		zap.Stringer("hidden", ev.Hidden),
		zap.Int("entries", ev.Entries),
		zap.Duration("elapsed", ev.Elapsed),
	)
	if s.bus != nil {
		event.Emit(s.bus, ev)
	}
}
