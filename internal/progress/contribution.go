package progress

// Contribution is what a producer reports each tick. The set of
// implementations is closed: Progress, HiddenProgress and Both.
type Contribution interface {
	Apply(t *Tracker, id EntryID)
	contribution()
}

// Both reports a visible and a hidden part for the same entry.
type Both struct {
	Visible Progress
	Hidden  HiddenProgress
}

// Apply replaces the visible half of id.
func (p Progress) Apply(t *Tracker, id EntryID) {
	t.SetProgress(id, p.Done, p.Total)
}

// Apply replaces the hidden half of id.
func (h HiddenProgress) Apply(t *Tracker, id EntryID) {
	t.SetHiddenProgress(id, h.Done, h.Total)
}

// Apply replaces both halves of id in one write.
func (b Both) Apply(t *Tracker, id EntryID) {
	t.mutate(id, func(e *entry) {
		e.visible = b.Visible
		e.hidden = b.Hidden.Progress
	})
}

func (Progress) contribution()       {}
func (HiddenProgress) contribution() {}
func (Both) contribution()           {}
