package metrics

import (
	"fmt"

	"github.com/l1jgo/progress/internal/progress"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the tracker aggregate to Prometheus.
type Collector struct {
	visibleDone  prometheus.Gauge
	visibleTotal prometheus.Gauge
	hiddenDone   prometheus.Gauge
	hiddenTotal  prometheus.Gauge
	ratio        prometheus.Gauge
	entries      prometheus.Gauge
	ready        prometheus.Gauge

	dropped     prometheus.Counter
	transitions *prometheus.CounterVec
	sessions    prometheus.Counter
	sessionTime prometheus.Histogram

	lastDropped uint64
}

// NewCollector registers the collectors against reg, or the default
// registerer when reg is nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		visibleDone: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_visible_done",
			Help: "Sum of done over visible entries.",
		}),
		visibleTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_visible_total",
			Help: "Sum of total over visible entries.",
		}),
		hiddenDone: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_hidden_done",
			Help: "Sum of done over hidden entries.",
		}),
		hiddenTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_hidden_total",
			Help: "Sum of total over hidden entries.",
		}),
		ratio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_ratio",
			Help: "Visible progress as a fraction in [0,1].",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_entries",
			Help: "Number of entries in the tracker.",
		}),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_ready",
			Help: "1 when all tracked work is complete.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progress_messages_dropped_total",
			Help: "Progress messages discarded because the channel was full.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progress_transitions_total",
			Help: "State transitions requested after progress completed.",
		}, []string{"from", "to"}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progress_sessions_completed_total",
			Help: "Sessions whose tracked work completed.",
		}),
		sessionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "progress_session_duration_seconds",
			Help:    "Wall time from session start to completion.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
	}
	for _, collector := range []prometheus.Collector{
		c.visibleDone, c.visibleTotal, c.hiddenDone, c.hiddenTotal,
		c.ratio, c.entries, c.ready,
		c.dropped, c.transitions, c.sessions, c.sessionTime,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return c, nil
}

// Observe copies a tracker snapshot into the gauges. dropped is the
// channel's running drop count; only the increase since the last call is
// added to the counter.
func (c *Collector) Observe(s progress.Snapshot, dropped uint64) {
	c.visibleDone.Set(float64(s.Visible.Done))
	c.visibleTotal.Set(float64(s.Visible.Total))
	c.hiddenDone.Set(float64(s.Hidden.Done))
	c.hiddenTotal.Set(float64(s.Hidden.Total))
	c.ratio.Set(s.Visible.Ratio())
	c.entries.Set(float64(len(s.Entries)))
	if s.Ready {
		c.ready.Set(1)
	} else {
		c.ready.Set(0)
	}
	if dropped > c.lastDropped {
		c.dropped.Add(float64(dropped - c.lastDropped))
	}
	c.lastDropped = dropped
}

// SessionCompleted records one finished session.
func (c *Collector) SessionCompleted(from, to string, seconds float64) {
	c.transitions.WithLabelValues(from, to).Inc()
	c.sessions.Inc()
	if seconds > 0 {
		c.sessionTime.Observe(seconds)
	}
}
