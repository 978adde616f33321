package clbench

import (
	"fmt"
)

// WorkGeometry is the 2-D NDRange of a dispatch. Dimension 0 runs over
// output rows, dimension 1 over output columns. Global[d] is always a
// multiple of Local[d].
type WorkGeometry struct {
	Global [2]int
	Local  [2]int
}

// NewWorkGeometry computes the NDRange for variant v over a rows x cols
// output with tile size ts. For variants that compute several rows per
// work-item, the row extent and the row edge of the work-group are both
// divided by wpt before the global extent is rounded up.
func NewWorkGeometry(v Variant, rows, cols, ts, wpt int) (WorkGeometry, error) {
	if !v.Valid() {
		return WorkGeometry{}, NewInvalidArgError("WorkGeometry", fmt.Sprintf("invalid variant %d", int(v)))
	}
	if rows <= 0 || cols <= 0 || ts <= 0 || wpt <= 0 {
		return WorkGeometry{}, NewInvalidArgError("WorkGeometry",
			fmt.Sprintf("non-positive extent: rows=%d cols=%d ts=%d wpt=%d", rows, cols, ts, wpt))
	}

	per := v.RowsPerItem(wpt)
	if ts%per != 0 {
		return WorkGeometry{}, NewInvalidArgError("WorkGeometry",
			fmt.Sprintf("tile size %d is not a multiple of %d rows per work-item", ts, per))
	}

	local := [2]int{ts / per, ts}
	extent := [2]int{ceilDiv(rows, per), cols}

	var g WorkGeometry
	g.Local = local
	for d := range 2 {
		g.Global[d] = roundUp(extent[d], local[d])
	}
	return g, nil
}

// NumGroups returns the number of work-groups along each dimension.
func (g WorkGeometry) NumGroups() [2]int {
	return [2]int{g.Global[0] / g.Local[0], g.Global[1] / g.Local[1]}
}

// GroupSize returns the number of work-items per work-group.
func (g WorkGeometry) GroupSize() int {
	return g.Local[0] * g.Local[1]
}

// Validate checks the geometry against the device limits.
func (g WorkGeometry) Validate(dev *Device) error {
	for d := range 2 {
		if g.Local[d] <= 0 || g.Global[d] <= 0 {
			return fmt.Errorf("%w: dimension %d has global %d, local %d", ErrInvalidWorkGroupSize, d, g.Global[d], g.Local[d])
		}
		if g.Global[d]%g.Local[d] != 0 {
			return fmt.Errorf("%w: global %d is not a multiple of local %d in dimension %d",
				ErrInvalidWorkGroupSize, g.Global[d], g.Local[d], d)
		}
	}
	if limit := dev.MaxWorkGroupSize; g.GroupSize() > limit {
		return fmt.Errorf("%w: %d work-items per group exceeds device limit %d", ErrInvalidWorkGroupSize, g.GroupSize(), limit)
	}
	return nil
}

func (g WorkGeometry) String() string {
	return fmt.Sprintf("global=%dx%d local=%dx%d", g.Global[0], g.Global[1], g.Local[0], g.Local[1])
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// roundUp returns the smallest multiple of m that is >= n.
func roundUp(n, m int) int {
	return ceilDiv(n, m) * m
}
