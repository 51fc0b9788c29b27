package state

import (
	"testing"

	"github.com/l1jgo/progress/internal/core/event"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type appState int

const (
	stateBoot appState = iota
	stateLoading
	stateMenu
)

func TestMachineHooksRunInOrder(t *testing.T) {
	t.Parallel()

	m := NewMachine(stateBoot, nil, zap.NewNop())
	var log []string
	m.OnEnter(stateBoot, func() { log = append(log, "enter-boot") })
	m.OnExit(stateBoot, func() { log = append(log, "exit-boot") })
	m.OnEnter(stateLoading, func() { log = append(log, "enter-loading") })

	m.Start()
	m.Start()
	m.RequestTransition(stateLoading)
	require.True(t, m.Apply())

	require.Equal(t, []string{"enter-boot", "exit-boot", "enter-loading"}, log)
	require.Equal(t, stateLoading, m.Current())
}

func TestMachineLastRequestWins(t *testing.T) {
	t.Parallel()

	m := NewMachine(stateBoot, nil, zap.NewNop())
	m.RequestTransition(stateLoading)
	m.RequestTransition(stateMenu)
	next, ok := m.Pending()
	require.True(t, ok)
	require.Equal(t, stateMenu, next)

	require.True(t, m.Apply())
	require.Equal(t, stateMenu, m.Current())
	require.False(t, m.Apply(), "nothing queued")
}

func TestMachineSameStateRequestIgnored(t *testing.T) {
	t.Parallel()

	m := NewMachine(stateLoading, nil, zap.NewNop())
	entered := 0
	m.OnEnter(stateLoading, func() { entered++ })

	m.RequestTransition(stateLoading)
	require.False(t, m.Apply())
	require.Zero(t, entered)
}

func TestMachineEmitsEvents(t *testing.T) {
	t.Parallel()

	bus := event.NewBus()
	m := NewMachine(stateBoot, bus, zap.NewNop())

	var entered, exited []appState
	event.Subscribe(bus, func(e event.StateEntered[appState]) { entered = append(entered, e.State) })
	event.Subscribe(bus, func(e event.StateExited[appState]) { exited = append(exited, e.State) })

	m.RequestTransition(stateLoading)
	m.Apply()
	bus.SwapBuffers()
	bus.DispatchAll()

	require.Equal(t, []appState{stateLoading}, entered)
	require.Equal(t, []appState{stateBoot}, exited)
}
