// Package plugin wires a progress tracker into a host's runner and state
// machine for one state type.
package plugin

import (
	"fmt"
	"time"

	"github.com/l1jgo/progress/internal/assets"
	"github.com/l1jgo/progress/internal/config"
	"github.com/l1jgo/progress/internal/core/ecs"
	"github.com/l1jgo/progress/internal/core/event"
	coresys "github.com/l1jgo/progress/internal/core/system"
	"github.com/l1jgo/progress/internal/metrics"
	"github.com/l1jgo/progress/internal/persist"
	"github.com/l1jgo/progress/internal/progress"
	"github.com/l1jgo/progress/internal/scripting"
	"github.com/l1jgo/progress/internal/state"
	"github.com/l1jgo/progress/internal/system"
	"go.uber.org/zap"
)

// Host is what the plugin attaches to. World and Bus are optional.
type Host[S comparable] struct {
	Runner  *coresys.Runner
	Machine *state.Machine[S]
	Bus     *event.Bus
	World   *ecs.World
}

// Plugin tracks progress while the host is in any state that has a
// transition configured, and moves on to that state's target once every
// entry is done.
type Plugin[S comparable] struct {
	transitions map[S]S

	AutoClearOnEnter bool
	AutoClearOnExit  bool
	Debug            bool

	tracker *progress.Tracker
	channel *progress.Channel
	log     *zap.Logger

	host     Host[S]
	built    bool
	entities *ecs.Store[system.ProgressEntity]
	checks   map[S]*system.CheckSystem[S]
	pending  []func(Host[S])
}

// New creates a plugin with the tracker settings from cfg.
func New[S comparable](cfg config.TrackerConfig, log *zap.Logger) *Plugin[S] {
	return &Plugin[S]{
		transitions:      make(map[S]S),
		AutoClearOnEnter: cfg.AutoClearOnEnter,
		AutoClearOnExit:  cfg.AutoClearOnExit,
		Debug:            cfg.Debug,
		tracker:          progress.NewTracker(),
		channel:          progress.NewChannel(cfg.ChannelCapacity),
		log:              log,
		checks:           make(map[S]*system.CheckSystem[S]),
	}
}

// WithTransition tracks progress in from and goes to target when done.
// Must be called before Build.
func (p *Plugin[S]) WithTransition(from, target S) *Plugin[S] {
	p.transitions[from] = target
	return p
}

func (p *Plugin[S]) Tracker() *progress.Tracker { return p.tracker }
func (p *Plugin[S]) Channel() *progress.Channel { return p.channel }

// Entities returns the ProgressEntity store, or nil if the host has no world.
func (p *Plugin[S]) Entities() *ecs.Store[system.ProgressEntity] { return p.entities }

// Active reports whether the host is currently in a tracked state.
func (p *Plugin[S]) Active() bool {
	if p.host.Machine == nil {
		return false
	}
	_, ok := p.transitions[p.host.Machine.Current()]
	return ok
}

// Build registers the plugin's systems and state hooks on h.
func (p *Plugin[S]) Build(h Host[S]) error {
	if p.built {
		return fmt.Errorf("progress plugin already built")
	}
	if h.Runner == nil || h.Machine == nil {
		return fmt.Errorf("progress plugin needs a runner and a state machine")
	}
	p.host = h
	p.built = true

	h.Runner.Register(system.NewDrainSystem(p.channel, p.tracker, p.Active, p.log))
	if h.World != nil {
		p.entities = ecs.Register[system.ProgressEntity](h.World)
		h.Runner.Register(system.NewEntityProgressSystem(p.entities, p.tracker, p.Active))
	}
	if p.Debug {
		h.Runner.Register(system.NewDebugSystem(p.tracker, p.Active, p.log))
	}

	for from, target := range p.transitions {
		from := from
		check := system.NewCheckSystem(from, target, p.tracker, p.channel, h.Machine, h.Bus,
			func() bool { return h.Machine.Current() == from }, p.log)
		p.checks[from] = check
		h.Runner.Register(check)

		h.Machine.OnEnter(from, func() {
			if p.AutoClearOnEnter {
				p.tracker.Clear()
			}
			check.Begin()
		})
		h.Machine.OnExit(from, func() {
			if p.AutoClearOnExit {
				p.tracker.Clear()
			}
		})
	}
	for _, fn := range p.pending {
		fn(h)
	}
	p.pending = nil
	p.log.Info("progress plugin built",
		zap.Int("transitions", len(p.transitions)),
		zap.Bool("clear_on_enter", p.AutoClearOnEnter),
		zap.Bool("clear_on_exit", p.AutoClearOnExit),
	)
	return nil
}

// whenBuilt runs fn against the host now, or during Build if the plugin
// is not built yet.
func (p *Plugin[S]) whenBuilt(fn func(h Host[S])) {
	if p.built {
		fn(p.host)
		return
	}
	p.pending = append(p.pending, fn)
}

// Track registers fn as a producer that runs every tick of a tracked state.
// May be called before or after Build.
func (p *Plugin[S]) Track(name string, fn system.ProducerFunc) *system.TrackedSystem {
	s := system.Track(name, p.tracker, fn, p.Active)
	p.whenBuilt(func(h Host[S]) { h.Runner.Register(s) })
	return s
}

// TrackAndStop is Track, but fn stops being called once its entry is ready.
func (p *Plugin[S]) TrackAndStop(name string, fn system.ProducerFunc) *system.TrackedSystem {
	s := system.TrackAndStop(name, p.tracker, fn, p.Active)
	p.whenBuilt(func(h Host[S]) { h.Runner.Register(s) })
	return s
}

// AddAssets tracks host assets in every tracked state, resetting the list
// per cfg.
func (p *Plugin[S]) AddAssets(src assets.LoadStateSource, cfg config.AssetsConfig) *assets.Loading {
	l := assets.NewLoading()
	l.AllowFailures = cfg.AllowFailures
	l.TrackDependencies = cfg.TrackDependencies
	p.whenBuilt(func(h Host[S]) {
		h.Runner.Register(system.NewAssetsSystem(l, src, p.tracker, p.Active))
		for from := range p.transitions {
			if cfg.AutoClearOnEnter {
				h.Machine.OnEnter(from, l.Reset)
			}
			if cfg.AutoClearOnExit {
				h.Machine.OnExit(from, l.Reset)
			}
		}
	})
	return l
}

// AddScripts polls every task of e while a tracked state is active.
func (p *Plugin[S]) AddScripts(e *scripting.Engine) {
	p.whenBuilt(func(h Host[S]) {
		h.Runner.Register(system.NewScriptSystem(e, p.tracker, p.Active, p.log))
	})
}

// AddMetrics exports the aggregate every tick and counts completed
// sessions. Needs a bus.
func (p *Plugin[S]) AddMetrics(c *metrics.Collector) {
	p.whenBuilt(func(h Host[S]) {
		h.Runner.Register(system.NewMetricsSystem(c, p.tracker, p.channel))
		if h.Bus == nil {
			return
		}
		event.Subscribe(h.Bus, func(ev event.ProgressComplete[S]) {
			c.SessionCompleted(fmt.Sprint(ev.State), fmt.Sprint(ev.Target), ev.Elapsed.Seconds())
		})
	})
}

// AddRecorder queues a LoadReport for every completed session. Needs a bus.
func (p *Plugin[S]) AddRecorder(r *persist.Recorder) {
	p.whenBuilt(func(h Host[S]) {
		if h.Bus == nil {
			return
		}
		event.Subscribe(h.Bus, func(ev event.ProgressComplete[S]) {
			r.Enqueue(Report(ev))
		})
	})
}

// Report converts a completion event into a row for the report store.
func Report[S comparable](ev event.ProgressComplete[S]) persist.LoadReport {
	return persist.LoadReport{
		State:        fmt.Sprint(ev.State),
		Target:       fmt.Sprint(ev.Target),
		VisibleDone:  ev.Visible.Done,
		VisibleTotal: ev.Visible.Total,
		HiddenDone:   ev.Hidden.Done,
		HiddenTotal:  ev.Hidden.Total,
		Entries:      ev.Entries,
		Dropped:      ev.Dropped,
		Duration:     ev.Elapsed.Round(time.Millisecond),
		CompletedAt:  ev.Finished,
	}
}
