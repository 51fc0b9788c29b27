package system

import (
	"time"

	coresys "github.com/l1jgo/progress/internal/core/system"
	"github.com/l1jgo/progress/internal/metrics"
	"github.com/l1jgo/progress/internal/progress"
)

// MetricsSystem publishes the aggregate to Prometheus. Phase 4 (Last).
// It runs in every state so gauges drop to zero after a clear.
type MetricsSystem struct {
	collector *metrics.Collector
	tracker   *progress.Tracker
	ch        *progress.Channel
}

func NewMetricsSystem(c *metrics.Collector, tracker *progress.Tracker, ch *progress.Channel) *MetricsSystem {
	return &MetricsSystem{collector: c, tracker: tracker, ch: ch}
}

func (s *MetricsSystem) Phase() coresys.Phase { return coresys.PhaseLast }

func (s *MetricsSystem) Update(_ time.Duration) {
	s.collector.Observe(s.tracker.Snapshot(), s.ch.Dropped())
}
