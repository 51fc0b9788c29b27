package event

import (
	"time"

	"github.com/l1jgo/progress/internal/progress"
)

// StateEntered fires after the state machine switches to State.
type StateEntered[S comparable] struct {
	State S
}

// StateExited fires before hooks for the next state run.
type StateExited[S comparable] struct {
	State S
}

// ProgressComplete fires once per session when every tracked entry is done
// and the transition to Target has been requested.
type ProgressComplete[S comparable] struct {
	State    S
	Target   S
	Visible  progress.Progress
	Hidden   progress.HiddenProgress
	Entries  int
	Dropped  uint64
	Elapsed  time.Duration
	Finished time.Time
}
