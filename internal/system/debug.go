package system

import (
	"time"

	coresys "github.com/l1jgo/progress/internal/core/system"
	"github.com/l1jgo/progress/internal/progress"
	"go.uber.org/zap"
)

// DebugSystem logs the aggregate every tick at debug level. Phase 4 (Last),
// registered ahead of the readiness check.
type DebugSystem struct {
	gate
	tracker *progress.Tracker
	log     *zap.Logger
}

func NewDebugSystem(tracker *progress.Tracker, active func() bool, log *zap.Logger) *DebugSystem {
	return &DebugSystem{gate: gate{active}, tracker: tracker, log: log}
}

func (s *DebugSystem) Phase() coresys.Phase { return coresys.PhaseLast }

func (s *DebugSystem) Update(_ time.Duration) {
	snap := s.tracker.Snapshot()
	s.log.Debug("progress",
		zap.Stringer("visible", snap.Visible),
		zap.Stringer("hidden", snap.Hidden),
		zap.Stringer("full", snap.Combined),
		zap.Int("entries", len(snap.Entries)),
	)
}
