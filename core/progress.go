package core

import (
	"math"
	"time"
)

// ChecklistState is the nested completion map for a procedure:
// step id -> item id -> checked.
type ChecklistState map[string]map[string]bool

// SOPProgress is one user's completion state for one procedure, keyed by
// (UserID, SOPSlug). It is upserted on every checklist toggle, step change
// or timer tick, and deleted on explicit reset.
type SOPProgress struct {
	UserID               string         `json:"user_id"`
	SOPSlug              string         `json:"sop_slug"`
	ChecklistState       ChecklistState `json:"checklist_state"`
	ActiveStep           int            `json:"active_step"`
	StartedAt            *time.Time     `json:"started_at,omitempty" swaggertype:"string"`
	Completed            bool           `json:"completed"`
	CompletedAt          *time.Time     `json:"completed_at,omitempty" swaggertype:"string"`
	ElapsedSeconds       int            `json:"elapsed_seconds"`
	CompletionPercentage int            `json:"completion_percentage"`
	UpdatedAt            time.Time      `json:"updated_at" swaggertype:"string"`
}

// NewSOPProgress returns the empty default state for a procedure: nothing
// checked, first step active.
func NewSOPProgress(userID, sopSlug string) *SOPProgress {
	return &SOPProgress{
		UserID:         userID,
		SOPSlug:        sopSlug,
		ChecklistState: ChecklistState{},
		ActiveStep:     1,
	}
}

// CompletionPercent flattens the checklist state across all steps and
// returns round(100 * checked / total), or 0 when the state is empty.
func CompletionPercent(state ChecklistState) int {
	total, checked := 0, 0
	for _, step := range state {
		for _, done := range step {
			total++
			if done {
				checked++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(checked) / float64(total)))
}

// Normalize recomputes the derived fields before a save: the completion
// percentage, and the completed/completedAt pairing (CompletedAt is non-nil
// exactly when Completed is true).
func (p *SOPProgress) Normalize(now time.Time) {
	if p.ChecklistState == nil {
		p.ChecklistState = ChecklistState{}
	}
	if p.ActiveStep < 1 {
		p.ActiveStep = 1
	}
	p.CompletionPercentage = CompletionPercent(p.ChecklistState)

	if p.Completed {
		if p.CompletedAt == nil {
			t := now
			p.CompletedAt = &t
		}
	} else {
		p.CompletedAt = nil
	}
	p.UpdatedAt = now
}
