package main

import (
	"context"
	"sync"
	"time"

	"github.com/l1jgo/progress/internal/assets"
	"github.com/l1jgo/progress/internal/core/ecs"
	coresys "github.com/l1jgo/progress/internal/core/system"
	"github.com/l1jgo/progress/internal/data"
	"github.com/l1jgo/progress/internal/plugin"
	"github.com/l1jgo/progress/internal/progress"
	"github.com/l1jgo/progress/internal/state"
	"github.com/l1jgo/progress/internal/system"
)

// simAssets pretends to be an asset server: each asset finishes a fixed
// time after its state is entered.
type simAssets struct {
	mu       sync.Mutex
	now      func() time.Time
	deadline map[assets.ID]time.Time
	fail     map[assets.ID]bool
}

func newSimAssets() *simAssets {
	return &simAssets{
		now:      time.Now,
		deadline: make(map[assets.ID]time.Time),
		fail:     make(map[assets.ID]bool),
	}
}

func (s *simAssets) start(list []data.Asset) []assets.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]assets.ID, 0, len(list))
	for _, a := range list {
		id := assets.ID(a.ID)
		s.deadline[id] = s.now().Add(a.LoadAfter)
		s.fail[id] = a.Fail
		ids = append(ids, id)
	}
	return ids
}

func (s *simAssets) LoadState(id assets.ID) assets.LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deadline[id]
	switch {
	case !ok:
		return assets.NotLoaded
	case s.now().Before(d):
		return assets.InProgress
	case s.fail[id]:
		return assets.Failed
	default:
		return assets.Loaded
	}
}

func (s *simAssets) DependencyState(assets.ID) assets.LoadState {
	return assets.Loaded
}

// simulation drives the tasks of a load plan.
type simulation struct {
	plan    *data.Plan
	plugin  *plugin.Plugin[string]
	machine *state.Machine[string]
	world   *ecs.World

	assets  *simAssets
	loading *assets.Loading

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	entities map[string][]ecs.EntityID
}

func newSimulation(ctx context.Context, plan *data.Plan, p *plugin.Plugin[string], m *state.Machine[string], w *ecs.World) *simulation {
	return &simulation{
		plan:     plan,
		plugin:   p,
		machine:  m,
		world:    w,
		base:     ctx,
		entities: make(map[string][]ecs.EntityID),
	}
}

// withAssets feeds planned assets into l on entering their state. Call
// before install.
func (s *simulation) withAssets(src *simAssets, l *assets.Loading) {
	s.assets = src
	s.loading = l
}

// install registers producers and state hooks for every planned task.
// Must run after the plugin is built and before the machine starts.
func (s *simulation) install(r *coresys.Runner) {
	for _, tr := range s.plan.Transitions {
		st := tr.From
		for _, task := range s.plan.TasksFor(st) {
			if task.Mode == data.ModeTick {
				s.trackTicks(st, task)
			}
		}
		s.machine.OnEnter(st, func() { s.enter(st) })
		s.machine.OnExit(st, func() { s.exit(st) })
	}
	r.Register(coresys.Func{P: coresys.PhaseUpdate, Fn: func(time.Duration) { s.stepEntities() }})
}

func (s *simulation) trackTicks(st string, task data.Task) {
	var step uint32
	s.machine.OnEnter(st, func() { step = 0 })
	fn := func(time.Duration) progress.Contribution {
		if s.machine.Current() != st {
			return nil
		}
		step = min(step+1, task.Steps)
		p := progress.Progress{Done: step, Total: task.Steps}
		if task.Hidden {
			return p.Hide()
		}
		return p
	}
	if task.StopWhenDone {
		s.plugin.TrackAndStop(task.Name, fn)
	} else {
		s.plugin.Track(task.Name, fn)
	}
}

func (s *simulation) enter(st string) {
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(s.base)
	if s.loading != nil {
		s.loading.Add(s.assets.start(s.plan.AssetsFor(st))...)
	}
	for _, task := range s.plan.TasksFor(st) {
		switch task.Mode {
		case data.ModeBackground:
			// Seed the entry before the next readiness check can see an
			// empty tracker.
			id := progress.NewEntryID()
			if task.Hidden {
				s.plugin.Tracker().SetHiddenProgress(id, 0, task.Steps)
			} else {
				s.plugin.Tracker().SetProgress(id, 0, task.Steps)
			}
			s.wg.Add(1)
			go s.runBackground(ctx, task, s.plugin.Channel().SenderFor(id))
		case data.ModeEntity:
			e := s.world.Spawn()
			c := system.ProgressEntity{}
			if task.Hidden {
				c.Hidden.Total = task.Steps
			} else {
				c.Visible.Total = task.Steps
			}
			s.plugin.Entities().Insert(e, c)
			s.entities[st] = append(s.entities[st], e)
		}
	}
}

func (s *simulation) exit(st string) {
	if s.cancel != nil {
		s.cancel()
	}
	for _, e := range s.entities[st] {
		s.world.Despawn(e)
	}
	delete(s.entities, st)
}

// runBackground reports one step per interval through the channel.
func (s *simulation) runBackground(ctx context.Context, task data.Task, sender progress.Sender) {
	defer s.wg.Done()
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()
	for done := uint32(0); done < task.Steps; done++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if task.Hidden {
			sender.AddHiddenDone(1)
		} else {
			sender.AddDone(1)
		}
	}
}

func (s *simulation) stepEntities() {
	for _, ids := range s.entities {
		for _, e := range ids {
			s.plugin.Entities().Update(e, func(c *system.ProgressEntity) {
				if c.Visible.Done < c.Visible.Total {
					c.Visible.Done++
				}
				if c.Hidden.Done < c.Hidden.Total {
					c.Hidden.Done++
				}
			})
		}
	}
}

// stop cancels background producers and waits for them.
func (s *simulation) stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
