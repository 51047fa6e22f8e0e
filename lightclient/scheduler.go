package lightclient

import "sort"

// Scheduler drives the bisection sequence of heights to request so that
// each verification step either succeeds directly or is bisected until
// trust can be established, minimizing round trips (spec §4.4).
//
// It maintains no state of its own beyond the target height: the
// invariant it relies on (the store always has a Trusted block at or
// below target) is maintained by the LightClient driving it.
type Scheduler struct {
	store  LightStore
	target Height
}

// NewScheduler creates a Scheduler targeting the given height.
func NewScheduler(store LightStore, target Height) *Scheduler {
	return &Scheduler{store: store, target: target}
}

// Done reports whether the trusted frontier has reached the target.
func (s *Scheduler) Done() bool {
	trustedH, ok := s.highestTrustedAtOrBelow(s.target)
	return ok && trustedH == s.target
}

// NextHeight implements spec §4.4's algorithm:
//
//	trusted_h = highest Trusted height <= target
//	pivot_h   = lowest Verified height > trusted_h, or target if none
//	if pivot_h == trusted_h + 1: request pivot_h directly
//	else: next = trusted_h + (pivot_h - trusted_h)/2, rounding toward
//	      trusted_h; if next == trusted_h, advance to trusted_h + 1
func (s *Scheduler) NextHeight() (Height, error) {
	trustedH, ok := s.highestTrustedAtOrBelow(s.target)
	if !ok {
		return 0, errNoBisectionPoint
	}
	if trustedH == s.target {
		return 0, errDone
	}

	pivotH := s.lowestVerifiedAbove(trustedH)
	if pivotH == 0 || pivotH > s.target {
		pivotH = s.target
	}

	if pivotH == trustedH+1 {
		return pivotH, nil
	}

	next := trustedH + (pivotH-trustedH)/2
	if next == trustedH {
		next = trustedH + 1
	}
	return next, nil
}

// highestTrustedAtOrBelow finds the highest Trusted height <= h by binary
// search over the sorted Trusted heights the store returns; the cost
// depends on the number of blocks stored, not on the height range.
func (s *Scheduler) highestTrustedAtOrBelow(h Height) (Height, bool) {
	heights := s.store.HeightsWithStatus(StatusTrusted)
	idx := sort.Search(len(heights), func(i int) bool { return heights[i] > h })
	if idx == 0 {
		return 0, false
	}
	return heights[idx-1], true
}

// lowestVerifiedAbove finds the lowest Verified height strictly greater
// than h, or 0 if none exists.
func (s *Scheduler) lowestVerifiedAbove(h Height) Height {
	heights := s.store.HeightsWithStatus(StatusVerified)
	idx := sort.Search(len(heights), func(i int) bool { return heights[i] > h })
	if idx == len(heights) {
		return 0
	}
	return heights[idx]
}

var (
	errNoBisectionPoint = newCoreError("scheduler: no trusted block at or below target")
	errDone             = newCoreError("scheduler: already reached target")
)
