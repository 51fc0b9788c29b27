package system

import (
	"time"

	"github.com/l1jgo/progress/internal/core/ecs"
	coresys "github.com/l1jgo/progress/internal/core/system"
	"github.com/l1jgo/progress/internal/progress"
)

// ProgressEntity is a component that makes an entity a progress producer.
// Whatever owns the entity updates the fields; EntityProgressSystem copies
// them into the tracker.
type ProgressEntity struct {
	Visible progress.Progress
	Hidden  progress.HiddenProgress
}

// EntityProgressSystem mirrors ProgressEntity components into the tracker.
// Phase 3 (PostUpdate). Each entity gets its own EntryID the first time it
// is seen; despawned entities keep their last value until the next clear,
// but their mapping is dropped on the following update.
type EntityProgressSystem struct {
	gate
	store   *ecs.Store[ProgressEntity]
	tracker *progress.Tracker
	ids     map[ecs.EntityID]progress.EntryID
}

func NewEntityProgressSystem(store *ecs.Store[ProgressEntity], tracker *progress.Tracker, active func() bool) *EntityProgressSystem {
	return &EntityProgressSystem{
		gate:    gate{active},
		store:   store,
		tracker: tracker,
		ids:     make(map[ecs.EntityID]progress.EntryID),
	}
}

func (s *EntityProgressSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *EntityProgressSystem) ShouldRun() bool {
	return (s.store.Len() > 0 || len(s.ids) > 0) && s.gate.ShouldRun()
}

func (s *EntityProgressSystem) Update(_ time.Duration) {
	// Forget entities whose component is gone; their entry keeps its last
	// value in the tracker.
	for e := range s.ids {
		if _, ok := s.store.Get(e); !ok {
			delete(s.ids, e)
		}
	}
	s.store.Each(func(e ecs.EntityID, c ProgressEntity) {
		progress.Both{Visible: c.Visible, Hidden: c.Hidden}.Apply(s.tracker, s.EntryFor(e))
	})
}

// EntryFor returns the tracker entry used for entity e.
func (s *EntityProgressSystem) EntryFor(e ecs.EntityID) progress.EntryID {
	id, ok := s.ids[e]
	if !ok {
		id = progress.NewEntryID()
		s.ids[e] = id
	}
	return id
}
