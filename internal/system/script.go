package system

import (
	"time"

	coresys "github.com/l1jgo/progress/internal/core/system"
	"github.com/l1jgo/progress/internal/progress"
	"github.com/l1jgo/progress/internal/scripting"
	"go.uber.org/zap"
)

// ScriptSystem polls every Lua task once per tick. Phase 2 (Update).
// Not concurrent: the Lua VM is single-goroutine.
type ScriptSystem struct {
	gate
	engine  *scripting.Engine
	tracker *progress.Tracker
	ids     map[*scripting.Task]progress.EntryID
	log     *zap.Logger
}

func NewScriptSystem(engine *scripting.Engine, tracker *progress.Tracker, active func() bool, log *zap.Logger) *ScriptSystem {
	return &ScriptSystem{
		gate:    gate{active},
		engine:  engine,
		tracker: tracker,
		ids:     make(map[*scripting.Task]progress.EntryID),
		log:     log,
	}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ScriptSystem) Update(dt time.Duration) {
	for _, task := range s.engine.Tasks() {
		p, err := s.engine.Poll(task, dt)
		if err != nil {
			// Keep the last reported value; a broken script should stall
			// loading visibly rather than complete it.
			s.log.Warn("lua task failed", zap.String("task", task.Name), zap.Error(err))
			continue
		}
		id := s.entryFor(task)
		if task.Hidden {
			p.Hide().Apply(s.tracker, id)
		} else {
			p.Apply(s.tracker, id)
		}
	}
}

func (s *ScriptSystem) entryFor(t *scripting.Task) progress.EntryID {
	id, ok := s.ids[t]
	if !ok {
		id = progress.NewEntryID()
		s.ids[t] = id
	}
	return id
}
