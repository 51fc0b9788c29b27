package system

// gate is embedded by systems that only run while a tracked state is
// active. A nil active func always runs.
type gate struct {
	active func() bool
}

func (g gate) ShouldRun() bool {
	return g.active == nil || g.active()
}
