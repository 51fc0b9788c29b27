package assets

import (
	"github.com/l1jgo/progress/internal/progress"
)

// ID identifies an asset in the host's asset server.
type ID string

// LoadState mirrors what the host reports for a single asset.
type LoadState int

const (
	NotLoaded LoadState = iota
	InProgress
	Loaded
	Failed
)

// LoadStateSource is the host asset server as seen by the tracker.
// DependencyState reports the combined state of everything id depends on.
type LoadStateSource interface {
	LoadState(id ID) LoadState
	DependencyState(id ID) LoadState
}

// Loading counts assets that must finish before a session can complete.
// Game-loop goroutine only.
type Loading struct {
	pending map[ID]struct{}
	done    map[ID]struct{}

	// AllowFailures counts failed assets as finished.
	AllowFailures bool
	// TrackDependencies waits for an asset's dependencies as well.
	TrackDependencies bool
}

func NewLoading() *Loading {
	return &Loading{
		pending:           make(map[ID]struct{}),
		done:              make(map[ID]struct{}),
		AllowFailures:     true,
		TrackDependencies: true,
	}
}

// Add starts tracking id. Assets already finished in this session are
// not tracked again.
func (l *Loading) Add(ids ...ID) {
	for _, id := range ids {
		if _, ok := l.done[id]; ok {
			continue
		}
		l.pending[id] = struct{}{}
	}
}

// IsReady reports whether nothing is pending.
func (l *Loading) IsReady() bool {
	return len(l.pending) == 0
}

func (l *Loading) Pending() int { return len(l.pending) }

// Reset forgets everything, keeping the policy flags.
func (l *Loading) Reset() {
	clear(l.pending)
	clear(l.done)
}

// Poll moves finished assets from pending to done and returns the asset
// count as progress.
func (l *Loading) Poll(src LoadStateSource) progress.Progress {
	for id := range l.pending {
		if l.finished(src, id) {
			delete(l.pending, id)
			l.done[id] = struct{}{}
		}
	}
	done := uint32(len(l.done))
	return progress.Progress{Done: done, Total: done + uint32(len(l.pending))}
}

func (l *Loading) finished(src LoadStateSource, id ID) bool {
	switch src.LoadState(id) {
	case NotLoaded:
		// Nothing will ever load it; don't wait forever.
		return true
	case InProgress:
		return false
	case Loaded:
		if !l.TrackDependencies {
			return true
		}
		deps := src.DependencyState(id)
		if deps == Failed {
			return l.AllowFailures
		}
		return deps == Loaded
	case Failed:
		return l.AllowFailures
	}
	return false
}
