package system

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	log []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.log = append(r.log, s)
	r.mu.Unlock()
}

type gated struct {
	Func
	run bool
}

func (g gated) ShouldRun() bool { return g.run }

type parallelSys struct {
	Func
}

func (parallelSys) Concurrent() bool { return true }

func TestRunnerPhaseOrder(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := NewRunner(0)
	r.Register(Func{P: PhaseLast, Fn: func(time.Duration) { rec.add("last") }})
	r.Register(Func{P: PhaseFirst, Fn: func(time.Duration) { rec.add("first") }})
	r.Register(Func{P: PhaseUpdate, Fn: func(time.Duration) { rec.add("update-a") }})
	r.Register(Func{P: PhaseUpdate, Fn: func(time.Duration) { rec.add("update-b") }})

	r.Tick(time.Millisecond)
	require.Equal(t, []string{"first", "update-a", "update-b", "last"}, rec.log)
	require.Equal(t, 4, r.Len())
}

func TestRunnerSkipsConditionalSystems(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	r := NewRunner(0)
	r.Register(gated{Func: Func{P: PhaseUpdate, Fn: func(time.Duration) { rec.add("off") }}, run: false})
	r.Register(gated{Func: Func{P: PhaseUpdate, Fn: func(time.Duration) { rec.add("on") }}, run: true})

	r.Tick(time.Millisecond)
	require.Equal(t, []string{"on"}, rec.log)
}

func TestRunnerConcurrentPhaseBarrier(t *testing.T) {
	t.Parallel()

	var count atomic.Int32
	var observed int32
	r := NewRunner(4)
	for i := 0; i < 8; i++ {
		r.Register(parallelSys{Func{P: PhaseUpdate, Fn: func(time.Duration) {
			time.Sleep(time.Millisecond)
			count.Add(1)
		}}})
	}
	r.Register(Func{P: PhaseLast, Fn: func(time.Duration) { observed = count.Load() }})

	r.Tick(time.Millisecond)
	require.Equal(t, int32(8), observed)
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "post_update", PhasePostUpdate.String())
	require.Equal(t, "unknown", Phase(42).String())
}
