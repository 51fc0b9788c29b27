package progress

import (
	"cmp"
	"slices"
	"sync"
)

type entry struct {
	visible Progress
	hidden  Progress
}

// accumulator holds running sums of every stored entry. Fields are wider
// than Progress so the sum of many uint32 entries cannot wrap.
// effVisible/effHidden sum min(done, total) per entry and back IsReady.
type accumulator struct {
	visibleDone  uint64
	visibleTotal uint64
	hiddenDone   uint64
	hiddenTotal  uint64
	effVisible   uint64
	effHidden    uint64
}

// apply adds new-old to every field. Unsigned wrap-around yields the exact
// result because the true sum never goes negative.
func (a *accumulator) apply(old, cur entry) {
	a.visibleDone += uint64(cur.visible.Done) - uint64(old.visible.Done)
	a.visibleTotal += uint64(cur.visible.Total) - uint64(old.visible.Total)
	a.hiddenDone += uint64(cur.hidden.Done) - uint64(old.hidden.Done)
	a.hiddenTotal += uint64(cur.hidden.Total) - uint64(old.hidden.Total)
	a.effVisible += uint64(cur.visible.Clamped().Done) - uint64(old.visible.Clamped().Done)
	a.effHidden += uint64(cur.hidden.Clamped().Done) - uint64(old.hidden.Clamped().Done)
}

// Tracker stores progress per EntryID and keeps the aggregate up to date on
// every write. All methods are safe for concurrent use.
//
// Entries are created by their first write and survive until Clear.
type Tracker struct {
	mu      sync.Mutex
	entries map[EntryID]entry
	accum   accumulator
}

func NewTracker() *Tracker {
	return &Tracker{
		entries: make(map[EntryID]entry, 64),
	}
}

// mutate runs read-modify-write for one entry and the accumulator update
// inside a single critical section.
func (t *Tracker) mutate(id EntryID, fn func(e *entry)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.entries[id]
	cur := old
	fn(&cur)
	t.entries[id] = cur
	t.accum.apply(old, cur)
}

// Clear drops every entry and zeroes the aggregate.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.entries)
	t.accum = accumulator{}
}

func (t *Tracker) SetProgress(id EntryID, done, total uint32) {
	t.mutate(id, func(e *entry) { e.visible = Progress{Done: done, Total: total} })
}

func (t *Tracker) SetHiddenProgress(id EntryID, done, total uint32) {
	t.mutate(id, func(e *entry) { e.hidden = Progress{Done: done, Total: total} })
}

func (t *Tracker) SetTotal(id EntryID, total uint32) {
	t.mutate(id, func(e *entry) { e.visible.Total = total })
}

func (t *Tracker) SetDone(id EntryID, done uint32) {
	t.mutate(id, func(e *entry) { e.visible.Done = done })
}

func (t *Tracker) SetHiddenTotal(id EntryID, total uint32) {
	t.mutate(id, func(e *entry) { e.hidden.Total = total })
}

func (t *Tracker) SetHiddenDone(id EntryID, done uint32) {
	t.mutate(id, func(e *entry) { e.hidden.Done = done })
}

// AddProgress increments the visible fields of id. Fields saturate at
// MaxUint32.
func (t *Tracker) AddProgress(id EntryID, done, total uint32) {
	t.mutate(id, func(e *entry) { e.visible = e.visible.Add(Progress{Done: done, Total: total}) })
}

func (t *Tracker) AddHiddenProgress(id EntryID, done, total uint32) {
	t.mutate(id, func(e *entry) { e.hidden = e.hidden.Add(Progress{Done: done, Total: total}) })
}

func (t *Tracker) AddTotal(id EntryID, total uint32) {
	t.mutate(id, func(e *entry) { e.visible.Total = satAdd(e.visible.Total, total) })
}

func (t *Tracker) AddDone(id EntryID, done uint32) {
	t.mutate(id, func(e *entry) { e.visible.Done = satAdd(e.visible.Done, done) })
}

func (t *Tracker) AddHiddenTotal(id EntryID, total uint32) {
	t.mutate(id, func(e *entry) { e.hidden.Total = satAdd(e.hidden.Total, total) })
}

func (t *Tracker) AddHiddenDone(id EntryID, done uint32) {
	t.mutate(id, func(e *entry) { e.hidden.Done = satAdd(e.hidden.Done, done) })
}

func (t *Tracker) get(id EntryID) (entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return e, ok
}

// Entry returns the stored pair for id, or zero values for an unknown id.
func (t *Tracker) Entry(id EntryID) (Progress, HiddenProgress) {
	e, _ := t.get(id)
	return e.visible, e.hidden.Hide()
}

func (t *Tracker) Progress(id EntryID) Progress {
	e, _ := t.get(id)
	return e.visible
}

func (t *Tracker) HiddenProgress(id EntryID) HiddenProgress {
	e, _ := t.get(id)
	return e.hidden.Hide()
}

// CombinedProgress is visible + hidden for one entry.
func (t *Tracker) CombinedProgress(id EntryID) Progress {
	e, _ := t.get(id)
	return e.visible.Add(e.hidden)
}

func (t *Tracker) Done(id EntryID) uint32        { return t.Progress(id).Done }
func (t *Tracker) Total(id EntryID) uint32       { return t.Progress(id).Total }
func (t *Tracker) HiddenDone(id EntryID) uint32  { return t.HiddenProgress(id).Done }
func (t *Tracker) HiddenTotal(id EntryID) uint32 { return t.HiddenProgress(id).Total }

// Contains reports whether id has been written since the last Clear.
func (t *Tracker) Contains(id EntryID) bool {
	_, ok := t.get(id)
	return ok
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// IsEntryReady reports whether both halves of id are complete. An id that
// was never written is not ready.
func (t *Tracker) IsEntryReady(id EntryID) bool {
	e, ok := t.get(id)
	if !ok {
		return false
	}
	return e.visible.Clamped().Add(e.hidden.Clamped()).IsReady()
}

// GlobalProgress is the sum of all visible entries.
func (t *Tracker) GlobalProgress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Progress{Done: narrow(t.accum.visibleDone), Total: narrow(t.accum.visibleTotal)}
}

// GlobalHiddenProgress is the sum of all hidden entries.
func (t *Tracker) GlobalHiddenProgress() HiddenProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Progress{Done: narrow(t.accum.hiddenDone), Total: narrow(t.accum.hiddenTotal)}.Hide()
}

// GlobalCombinedProgress is visible + hidden over all entries.
func (t *Tracker) GlobalCombinedProgress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.combinedLocked()
}

func (t *Tracker) combinedLocked() Progress {
	return Progress{
		Done:  narrow(t.accum.visibleDone + t.accum.hiddenDone),
		Total: narrow(t.accum.visibleTotal + t.accum.hiddenTotal),
	}
}

// IsReady reports whether all tracked work is complete. Each entry
// contributes at most its own total, so an over-reporting entry cannot hide
// unfinished work elsewhere.
func (t *Tracker) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readyLocked()
}

func (t *Tracker) readyLocked() bool {
	return t.accum.effVisible+t.accum.effHidden >= t.accum.visibleTotal+t.accum.hiddenTotal
}

// ForEachEntry calls fn with a copy of every entry in id order. fn runs
// outside the lock and may call back into the tracker.
func (t *Tracker) ForEachEntry(fn func(id EntryID, visible Progress, hidden HiddenProgress)) {
	for _, e := range t.Snapshot().Entries {
		fn(e.ID, e.Visible, e.Hidden)
	}
}

// EntrySnapshot is a copy of one stored entry.
type EntrySnapshot struct {
	ID      EntryID        `json:"id"`
	Visible Progress       `json:"visible"`
	Hidden  HiddenProgress `json:"hidden"`
}

// Snapshot is a consistent copy of the whole tracker.
type Snapshot struct {
	Visible  Progress        `json:"visible"`
	Hidden   HiddenProgress  `json:"hidden"`
	Combined Progress        `json:"combined"`
	Ready    bool            `json:"ready"`
	Entries  []EntrySnapshot `json:"entries"`
}

// Snapshot copies all entries and aggregates under one lock.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	s := Snapshot{
		Visible:  Progress{Done: narrow(t.accum.visibleDone), Total: narrow(t.accum.visibleTotal)},
		Hidden:   Progress{Done: narrow(t.accum.hiddenDone), Total: narrow(t.accum.hiddenTotal)}.Hide(),
		Combined: t.combinedLocked(),
		Ready:    t.readyLocked(),
		Entries:  make([]EntrySnapshot, 0, len(t.entries)),
	}
	for id, e := range t.entries {
		s.Entries = append(s.Entries, EntrySnapshot{ID: id, Visible: e.visible, Hidden: e.hidden.Hide()})
	}
	t.mu.Unlock()

	slices.SortFunc(s.Entries, func(a, b EntrySnapshot) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return s
}
