package main

import (
	"context"
	"testing"
	"time"

	"github.com/l1jgo/progress/internal/config"
	"github.com/l1jgo/progress/internal/core/ecs"
	"github.com/l1jgo/progress/internal/core/event"
	coresys "github.com/l1jgo/progress/internal/core/system"
	"github.com/l1jgo/progress/internal/data"
	"github.com/l1jgo/progress/internal/plugin"
	"github.com/l1jgo/progress/internal/progress"
	"github.com/l1jgo/progress/internal/state"
	"github.com/l1jgo/progress/internal/system"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const slowPlan = `
initial: loading
transitions:
  - from: loading
    to: menu
tasks:
  - name: stream
    state: loading
    mode: background
    steps: 100
    interval: 1s
`

func newTestSim(t *testing.T, raw string) (*simulation, *coresys.Runner, *state.Machine[string], *plugin.Plugin[string]) {
	t.Helper()
	plan, err := data.ParsePlan([]byte(raw))
	require.NoError(t, err)

	world := ecs.NewWorld()
	bus := event.NewBus()
	machine := state.NewMachine(plan.Initial, bus, zap.NewNop())
	runner := coresys.NewRunner(2)
	runner.Register(system.NewEventDispatchSystem(bus))

	p := plugin.New[string](config.Defaults().Tracker, zap.NewNop())
	for _, tr := range plan.Transitions {
		p.WithTransition(tr.From, tr.To)
	}
	require.NoError(t, p.Build(plugin.Host[string]{Runner: runner, Machine: machine, Bus: bus, World: world}))

	sim := newSimulation(context.Background(), plan, p, machine, world)
	sim.install(runner)
	t.Cleanup(sim.stop)
	return sim, runner, machine, p
}

func TestSimulationBackgroundTaskHoldsState(t *testing.T) {
	t.Parallel()

	_, runner, machine, p := newTestSim(t, slowPlan)
	machine.Start()

	// The first tick runs before the worker goroutine has reported anything.
	runner.Tick(50 * time.Millisecond)
	machine.Apply()
	require.Equal(t, "loading", machine.Current())
	require.Equal(t, progress.Progress{Done: 0, Total: 100}, p.Tracker().GlobalProgress())
	require.False(t, p.Tracker().IsReady())
}

func TestSimulationHiddenBackgroundTaskSeedsHidden(t *testing.T) {
	t.Parallel()

	raw := `
initial: loading
transitions:
  - from: loading
    to: menu
tasks:
  - name: shaders
    state: loading
    mode: background
    steps: 10
    interval: 1s
    hidden: true
`
	_, runner, machine, p := newTestSim(t, raw)
	machine.Start()

	runner.Tick(50 * time.Millisecond)
	machine.Apply()
	require.Equal(t, "loading", machine.Current())
	require.Equal(t, progress.HiddenProgress{Progress: progress.Progress{Done: 0, Total: 10}}, p.Tracker().GlobalHiddenProgress())
	require.Equal(t, uint32(0), p.Tracker().GlobalProgress().Total)
}
