package system

import (
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Runner executes systems in phase order each tick. Within a phase,
// systems run in registration order; concurrent systems of that phase run
// together first and the phase does not end until all of them return.
type Runner struct {
	systems     []System
	sorted      bool
	maxParallel int
}

// NewRunner creates a runner. maxParallel caps the goroutines used for
// concurrent systems; values below 1 run everything on the caller.
func NewRunner(maxParallel int) *Runner {
	return &Runner{
		systems:     make([]System, 0, 16),
		maxParallel: maxParallel,
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Len returns the number of registered systems.
func (r *Runner) Len() int {
	return len(r.systems)
}

func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	for start := 0; start < len(r.systems); {
		end := start
		phase := r.systems[start].Phase()
		for end < len(r.systems) && r.systems[end].Phase() == phase {
			end++
		}
		r.runPhase(r.systems[start:end], dt)
		start = end
	}
}

func (r *Runner) runPhase(batch []System, dt time.Duration) {
	var serial []System
	var g errgroup.Group
	if r.maxParallel > 0 {
		g.SetLimit(r.maxParallel)
	}
	parallel := 0
	for _, s := range batch {
		if !shouldRun(s) {
			continue
		}
		if r.maxParallel > 1 && isConcurrent(s) {
			parallel++
			g.Go(func() error {
				s.Update(dt)
				return nil
			})
			continue
		}
		serial = append(serial, s)
	}
	if parallel > 0 {
		_ = g.Wait()
	}
	for _, s := range serial {
		s.Update(dt)
	}
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}

func shouldRun(s System) bool {
	c, ok := s.(Conditional)
	return !ok || c.ShouldRun()
}

func isConcurrent(s System) bool {
	c, ok := s.(Concurrent)
	return ok && c.Concurrent()
}
