package system

import (
	"time"

	"github.com/l1jgo/progress/internal/assets"
	coresys "github.com/l1jgo/progress/internal/core/system"
	"github.com/l1jgo/progress/internal/progress"
)

// AssetsSystem polls the host asset server for tracked assets and reports
// the count as one visible entry. Phase 3 (PostUpdate).
type AssetsSystem struct {
	gate
	loading *assets.Loading
	src     assets.LoadStateSource
	tracker *progress.Tracker
	id      progress.EntryID
}

func NewAssetsSystem(loading *assets.Loading, src assets.LoadStateSource, tracker *progress.Tracker, active func() bool) *AssetsSystem {
	return &AssetsSystem{
		gate:    gate{active},
		loading: loading,
		src:     src,
		tracker: tracker,
		id:      progress.NewEntryID(),
	}
}

func (s *AssetsSystem) ID() progress.EntryID { return s.id }
func (s *AssetsSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *AssetsSystem) Update(_ time.Duration) {
	s.loading.Poll(s.src).Apply(s.tracker, s.id)
}
