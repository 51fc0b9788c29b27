package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sumEntries recomputes the aggregate the slow way.
func sumEntries(tr *Tracker) (Progress, Progress) {
	var vis, hid Progress
	tr.ForEachEntry(func(_ EntryID, v Progress, h HiddenProgress) {
		vis = vis.Add(v)
		hid = hid.Add(h.Unhide())
	})
	return vis, hid
}

func TestTrackerDeltaCorrectness(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	id := NewEntryID()

	tr.SetProgress(id, 3, 10)
	before := tr.GlobalProgress()
	tr.SetProgress(id, 5, 10)
	after := tr.GlobalProgress()

	require.Equal(t, before.Done+2, after.Done)
	require.Equal(t, before.Total, after.Total)

	tr.SetProgress(id, 1, 4)
	require.Equal(t, Progress{Done: 1, Total: 4}, tr.GlobalProgress())
}

func TestTrackerHiddenExclusion(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	id := NewEntryID()
	tr.SetHiddenProgress(id, 1, 1)

	require.Equal(t, Progress{}, tr.GlobalProgress())
	require.Equal(t, Progress{Done: 1, Total: 1}, tr.GlobalHiddenProgress().Unhide())
	require.Equal(t, Progress{Done: 1, Total: 1}, tr.GlobalCombinedProgress())
	require.True(t, tr.IsReady())
}

func TestTrackerUnknownIDDefaults(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	id := NewEntryID()

	vis, hid := tr.Entry(id)
	assert.Equal(t, Progress{}, vis)
	assert.Equal(t, HiddenProgress{}, hid)
	assert.False(t, tr.IsEntryReady(id))
	assert.False(t, tr.Contains(id))
	assert.Zero(t, tr.Done(id))
	assert.Zero(t, tr.HiddenTotal(id))
	assert.Equal(t, 0, tr.Len())
}

func TestTrackerSingleFieldOperations(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	id := NewEntryID()

	tr.SetTotal(id, 10)
	require.Equal(t, Progress{Done: 0, Total: 10}, tr.GlobalProgress())
	tr.SetDone(id, 4)
	tr.AddDone(id, 2)
	tr.AddTotal(id, 1)
	require.Equal(t, Progress{Done: 6, Total: 11}, tr.Progress(id))
	require.Equal(t, Progress{Done: 6, Total: 11}, tr.GlobalProgress())

	tr.SetHiddenTotal(id, 3)
	tr.SetHiddenDone(id, 1)
	tr.AddHiddenDone(id, 1)
	tr.AddHiddenTotal(id, 2)
	require.Equal(t, Progress{Done: 2, Total: 5}, tr.HiddenProgress(id).Unhide())
	require.Equal(t, Progress{Done: 2, Total: 5}, tr.GlobalHiddenProgress().Unhide())
	require.Equal(t, Progress{Done: 8, Total: 16}, tr.GlobalCombinedProgress())
	require.Equal(t, Progress{Done: 8, Total: 16}, tr.CombinedProgress(id))

	// Lowering a field must lower the aggregate by the same amount.
	tr.SetTotal(id, 6)
	tr.SetHiddenDone(id, 0)
	require.Equal(t, Progress{Done: 6, Total: 6}, tr.GlobalProgress())
	require.Equal(t, Progress{Done: 0, Total: 5}, tr.GlobalHiddenProgress().Unhide())
}

func TestTrackerAddOperations(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	a, b := NewEntryID(), NewEntryID()

	tr.AddProgress(a, 1, 3)
	tr.AddProgress(a, 1, 0)
	tr.AddHiddenProgress(b, 0, 2)
	tr.AddHiddenProgress(b, 2, 0)

	require.Equal(t, Progress{Done: 2, Total: 3}, tr.Progress(a))
	require.Equal(t, Progress{Done: 2, Total: 2}, tr.HiddenProgress(b).Unhide())
	require.True(t, tr.IsEntryReady(b))
	require.False(t, tr.IsEntryReady(a))
	require.False(t, tr.IsReady())

	tr.AddDone(a, 1)
	require.True(t, tr.IsReady())
}

func TestTrackerOverReportDoesNotMaskOtherEntries(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	greedy, slow := NewEntryID(), NewEntryID()
	tr.SetProgress(greedy, 50, 1)
	tr.SetProgress(slow, 0, 5)

	// Raw aggregate reports 50/6, but readiness counts at most 1 for greedy.
	require.Equal(t, Progress{Done: 50, Total: 6}, tr.GlobalProgress())
	require.False(t, tr.IsReady())
	require.True(t, tr.IsEntryReady(greedy))

	tr.SetProgress(slow, 5, 5)
	require.True(t, tr.IsReady())

	// Raw values stay visible for inspection.
	require.Equal(t, Progress{Done: 50, Total: 1}, tr.Progress(greedy))
}

func TestTrackerClearIdempotent(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	id := NewEntryID()
	tr.SetProgress(id, 1, 2)
	tr.SetHiddenProgress(id, 0, 3)

	tr.Clear()
	first := tr.Snapshot()
	tr.Clear()
	second := tr.Snapshot()

	require.Equal(t, first, second)
	require.Empty(t, second.Entries)
	require.Equal(t, Progress{}, second.Combined)
	require.True(t, second.Ready)

	// Writes after a clear start from zero again.
	tr.AddDone(id, 1)
	require.Equal(t, Progress{Done: 1, Total: 0}, tr.GlobalProgress())
}

func TestTrackerSnapshotSortedByID(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	ids := []EntryID{NewEntryID(), NewEntryID(), NewEntryID()}
	for i := len(ids) - 1; i >= 0; i-- {
		tr.SetProgress(ids[i], uint32(i), 3)
	}

	snap := tr.Snapshot()
	require.Len(t, snap.Entries, 3)
	for i, e := range snap.Entries {
		require.Equal(t, ids[i], e.ID)
		require.Equal(t, Progress{Done: uint32(i), Total: 3}, e.Visible)
	}
	require.Equal(t, Progress{Done: 3, Total: 9}, snap.Visible)
	require.False(t, snap.Ready)
}

func TestTrackerForEachEntryMayReenter(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	id := NewEntryID()
	tr.SetProgress(id, 0, 1)

	tr.ForEachEntry(func(id EntryID, v Progress, _ HiddenProgress) {
		tr.SetDone(id, v.Total)
	})
	require.True(t, tr.IsReady())
}

func TestContributionApply(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	a, b, c := NewEntryID(), NewEntryID(), NewEntryID()

	contribs := map[EntryID]Contribution{
		a: Progress{Done: 1, Total: 2},
		b: Progress{Done: 2, Total: 2}.Hide(),
		c: Both{Visible: Progress{Done: 1, Total: 1}, Hidden: Progress{Done: 0, Total: 1}.Hide()},
	}
	for id, cb := range contribs {
		cb.Apply(tr, id)
	}

	require.Equal(t, Progress{Done: 2, Total: 3}, tr.GlobalProgress())
	require.Equal(t, Progress{Done: 2, Total: 3}, tr.GlobalHiddenProgress().Unhide())
	vis, hid := tr.Entry(c)
	require.Equal(t, Progress{Done: 1, Total: 1}, vis)
	require.Equal(t, Progress{Done: 0, Total: 1}, hid.Unhide())
}

func TestTrackerConcurrentAddSameID(t *testing.T) {
	t.Parallel()

	const goroutines, iterations = 16, 500
	tr := NewTracker()
	id := NewEntryID()

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				tr.AddProgress(id, 1, 1)
			}
		}()
	}
	wg.Wait()

	vis, _ := tr.Entry(id)
	require.Equal(t, Progress{Done: goroutines * iterations, Total: goroutines * iterations}, vis)
	require.Equal(t, vis, tr.GlobalProgress())
}

func TestTrackerConcurrentMixedInvariant(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	ids := make([]EntryID, 8)
	for i := range ids {
		ids[i] = NewEntryID()
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 300; i++ {
				id := ids[(g+i)%len(ids)]
				switch i % 6 {
				case 0:
					tr.SetProgress(id, uint32(i%7), uint32(i%11))
				case 1:
					tr.AddHiddenProgress(id, 1, 2)
				case 2:
					tr.SetHiddenDone(id, uint32(i%5))
				case 3:
					tr.AddTotal(id, 3)
				case 4:
					tr.SetDone(id, uint32(i%13))
				case 5:
					_ = tr.GlobalCombinedProgress()
				}
			}
		}(g)
	}
	wg.Wait()

	vis, hid := sumEntries(tr)
	require.Equal(t, vis, tr.GlobalProgress())
	require.Equal(t, hid, tr.GlobalHiddenProgress().Unhide())
	require.Equal(t, vis.Add(hid), tr.GlobalCombinedProgress())
}
