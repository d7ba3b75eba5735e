// Package classify decides what counts as "down" per park operator.
//
// Disney and Universal reliably distinguish planned closures from
// breakdowns, so only an explicit DOWN status is a breakdown. Every
// other operator reports breakdowns as CLOSED, so both statuses count,
// and a higher operating threshold filters rides that never really
// opened that day.
package classify

import (
	parkdomain "github.com/czei/themeparkhallofshame-sub001/internal/parkmeta/domain"
	snapshotdomain "github.com/czei/themeparkhallofshame-sub001/internal/snapshot/domain"
)

// ParkClassificationRule is the single source of truth for downtime
// semantics: the in-memory checks and the SQL status lists both come
// from here.
type ParkClassificationRule interface {
	// Name identifies the rule in logs and run records.
	Name() string

	// IsDown reports whether one snapshot counts as a breakdown.
	IsDown(s snapshotdomain.JoinedRideSnapshot) bool

	// DownStatuses is the status set treated as down, for use in
	// query predicates.
	DownStatuses() []snapshotdomain.RideStatus

	// MinOperatingSnapshots is how many operating snapshots a ride
	// needs inside a window before downtime is attributed to it.
	MinOperatingSnapshots() int
}

// RuleForPark selects the rule for a park's operator.
func RuleForPark(park *parkdomain.Park) ParkClassificationRule {
	if park != nil && (park.IsDisney || park.IsUniversal) {
		return StrictOperatorRule{}
	}
	return LenientOperatorRule{}
}

// StrictOperatorRule applies to Disney and Universal parks.
type StrictOperatorRule struct{}

func (StrictOperatorRule) Name() string { return "strict" }

func (StrictOperatorRule) IsDown(s snapshotdomain.JoinedRideSnapshot) bool {
	if s.ComputedIsOpen {
		return false
	}
	return s.Status != nil && *s.Status == snapshotdomain.StatusDown
}

func (StrictOperatorRule) DownStatuses() []snapshotdomain.RideStatus {
	return []snapshotdomain.RideStatus{snapshotdomain.StatusDown}
}

func (StrictOperatorRule) MinOperatingSnapshots() int { return 1 }

// LenientOperatorRule applies to every other operator.
type LenientOperatorRule struct{}

func (LenientOperatorRule) Name() string { return "lenient" }

func (LenientOperatorRule) IsDown(s snapshotdomain.JoinedRideSnapshot) bool {
	if s.ComputedIsOpen {
		return false
	}
	if s.Status == nil {
		return false
	}
	return *s.Status == snapshotdomain.StatusDown || *s.Status == snapshotdomain.StatusClosed
}

func (LenientOperatorRule) DownStatuses() []snapshotdomain.RideStatus {
	return []snapshotdomain.RideStatus{snapshotdomain.StatusDown, snapshotdomain.StatusClosed}
}

// Roughly 30 minutes of observations at the 5 minute cadence.
func (LenientOperatorRule) MinOperatingSnapshots() int { return 6 }

// HasOperated reports whether the ride passed the rule's operating
// threshold. Only snapshots taken while the park appeared open count;
// a ride cycling before gates open is not "in service".
func HasOperated(rule ParkClassificationRule, snapshots []snapshotdomain.JoinedRideSnapshot) bool {
	operating := 0
	for _, s := range snapshots {
		if !s.ParkAppearsOpen {
			continue
		}
		if s.ComputedIsOpen {
			operating++
			if operating >= rule.MinOperatingSnapshots() {
				return true
			}
		}
	}
	return false
}
