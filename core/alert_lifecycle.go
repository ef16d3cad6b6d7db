package core

import "time"

// StatusForConclusion maps an investigation conclusion to the alert status it
// produces. The mapping is total: unknown or absent conclusions fall through
// to INVESTIGATING, so a submitted investigation always moves the alert out
// of triage.
func StatusForConclusion(c Conclusion) AlertStatus {
	switch c {
	case ConclusionTruePositive, ConclusionNeedsEscalation:
		return AlertStatusEscalated
	case ConclusionFalsePositive:
		return AlertStatusFalsePositive
	case ConclusionInconclusive:
		return AlertStatusResolved
	default:
		return AlertStatusInvestigating
	}
}

// ResolutionPolicy controls how ResolvedAt tracks status transitions.
//
// The platform's historical behavior is asymmetric: ResolvedAt is set when an
// alert reaches a terminal status but never cleared when it is reopened, so a
// reopened alert keeps its original resolution time. ClearOnReopen makes that
// configurable without changing the default.
type ResolutionPolicy struct {
	ClearOnReopen bool
}

// DefaultResolutionPolicy preserves the historical set-only behavior.
var DefaultResolutionPolicy = ResolutionPolicy{ClearOnReopen: false}

// Apply writes newStatus onto the alert and maintains ResolvedAt according to
// the policy. It does not validate the transition; any status may follow any
// other.
func (p ResolutionPolicy) Apply(alert *Alert, newStatus AlertStatus, now time.Time) {
	alert.Status = newStatus
	alert.UpdatedAt = now

	if newStatus.IsTerminal() {
		t := now
		alert.ResolvedAt = &t
		return
	}
	if p.ClearOnReopen {
		alert.ResolvedAt = nil
	}
}
