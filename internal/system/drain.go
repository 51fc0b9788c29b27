package system

import (
	"time"

	coresys "github.com/l1jgo/progress/internal/core/system"
	"github.com/l1jgo/progress/internal/progress"
	"go.uber.org/zap"
)

// DrainSystem applies progress messages sent from outside the tick loop.
// Phase 0 (First), so producers and the readiness check in this tick see
// everything queued before it started.
type DrainSystem struct {
	gate
	ch      *progress.Channel
	tracker *progress.Tracker
	log     *zap.Logger
}

func NewDrainSystem(ch *progress.Channel, tracker *progress.Tracker, active func() bool, log *zap.Logger) *DrainSystem {
	return &DrainSystem{gate: gate{active}, ch: ch, tracker: tracker, log: log}
}

func (s *DrainSystem) Phase() coresys.Phase { return coresys.PhaseFirst }

func (s *DrainSystem) Update(_ time.Duration) {
	if n := s.ch.Drain(s.tracker); n > 0 {
		s.log.Debug("applied progress messages", zap.Int("count", n))
	}
}
