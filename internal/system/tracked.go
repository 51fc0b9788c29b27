package system

import (
	"time"

	coresys "github.com/l1jgo/progress/internal/core/system"
	"github.com/l1jgo/progress/internal/progress"
)

// ProducerFunc does a slice of work and reports where it stands.
type ProducerFunc func(dt time.Duration) progress.Contribution

// TrackedSystem runs a producer in Phase 2 (Update) and stores whatever it
// returns under its own entry. Producers may run concurrently with each
// other; they only touch the tracker, which is goroutine-safe.
type TrackedSystem struct {
	gate
	name          string
	id            progress.EntryID
	fn            ProducerFunc
	tracker       *progress.Tracker
	stopWhenReady bool
}

// Track wraps fn with a fresh entry ID.
func Track(name string, tracker *progress.Tracker, fn ProducerFunc, active func() bool) *TrackedSystem {
	return &TrackedSystem{
		gate:    gate{active},
		name:    name,
		id:      progress.NewEntryID(),
		fn:      fn,
		tracker: tracker,
	}
}

// TrackAndStop is Track, but the producer is no longer called once its own
// entry is ready. The last reported value stays in the tracker.
func TrackAndStop(name string, tracker *progress.Tracker, fn ProducerFunc, active func() bool) *TrackedSystem {
	s := Track(name, tracker, fn, active)
	s.stopWhenReady = true
	return s
}

func (s *TrackedSystem) Name() string         { return s.name }
func (s *TrackedSystem) ID() progress.EntryID { return s.id }
func (s *TrackedSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }
func (s *TrackedSystem) Concurrent() bool     { return true }

func (s *TrackedSystem) ShouldRun() bool {
	if !s.gate.ShouldRun() {
		return false
	}
	return !(s.stopWhenReady && s.tracker.IsEntryReady(s.id))
}

func (s *TrackedSystem) Update(dt time.Duration) {
	if c := s.fn(dt); c != nil {
		c.Apply(s.tracker, s.id)
	}
}
