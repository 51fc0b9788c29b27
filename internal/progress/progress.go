package progress

import (
	"fmt"
	"math"
)

// Progress is a (done, total) pair. Done may exceed Total; anything that
// derives a ratio or readiness from it clamps.
type Progress struct {
	Done  uint32 `json:"done"`
	Total uint32 `json:"total"`
}

// FromBool maps true to 1/1 and false to 0/1.
func FromBool(b bool) Progress {
	if b {
		return Progress{Done: 1, Total: 1}
	}
	return Progress{Done: 0, Total: 1}
}

// IsReady reports done >= total. 0/0 is ready.
func (p Progress) IsReady() bool {
	return p.Done >= p.Total
}

// Add sums both fields, saturating at MaxUint32.
func (p Progress) Add(o Progress) Progress {
	return Progress{Done: satAdd(p.Done, o.Done), Total: satAdd(p.Total, o.Total)}
}

// Sub subtracts both fields, saturating at zero.
func (p Progress) Sub(o Progress) Progress {
	return Progress{Done: satSub(p.Done, o.Done), Total: satSub(p.Total, o.Total)}
}

// Clamped caps Done at Total.
func (p Progress) Clamped() Progress {
	if p.Done > p.Total {
		return Progress{Done: p.Total, Total: p.Total}
	}
	return p
}

// Ratio returns done/total in [0,1]. A zero total counts as complete.
func (p Progress) Ratio() float64 {
	if p.Total == 0 {
		return 1
	}
	if p.Done >= p.Total {
		return 1
	}
	return float64(p.Done) / float64(p.Total)
}

func (p Progress) Ratio32() float32 {
	return float32(p.Ratio())
}

// Hide marks the value as hidden progress.
func (p Progress) Hide() HiddenProgress {
	return HiddenProgress{p}
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Done, p.Total)
}

// HiddenProgress counts toward readiness but is never shown in the visible
// aggregate.
type HiddenProgress struct {
	Progress
}

// HiddenFromBool is FromBool for hidden progress.
func HiddenFromBool(b bool) HiddenProgress {
	return FromBool(b).Hide()
}

func (h HiddenProgress) Unhide() Progress {
	return h.Progress
}

func (h HiddenProgress) Add(o HiddenProgress) HiddenProgress {
	return HiddenProgress{h.Progress.Add(o.Progress)}
}

func (h HiddenProgress) Sub(o HiddenProgress) HiddenProgress {
	return HiddenProgress{h.Progress.Sub(o.Progress)}
}

func satAdd(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}

func satSub(a, b uint32) uint32 {
	if b > a {
		return 0
	}
	return a - b
}

// narrow converts an accumulator field back to the public width.
func narrow(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
