package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conclusion represents an analyst's categorization of an alert's outcome
type Conclusion string

const (
	ConclusionTruePositive    Conclusion = "TRUE_POSITIVE"
	ConclusionFalsePositive   Conclusion = "FALSE_POSITIVE"
	ConclusionNeedsEscalation Conclusion = "NEEDS_ESCALATION"
	ConclusionInconclusive    Conclusion = "INCONCLUSIVE"
)

// String returns the string representation
func (c Conclusion) String() string {
	return string(c)
}

// IsValid checks if the conclusion is valid. The empty conclusion is allowed:
// an analyst may submit findings without committing to a verdict.
func (c Conclusion) IsValid() bool {
	switch c {
	case "", ConclusionTruePositive, ConclusionFalsePositive,
		ConclusionNeedsEscalation, ConclusionInconclusive:
		return true
	default:
		return false
	}
}

// Investigation represents a single analyst's recorded findings for one
// alert. Investigations are append-only: once created they are never updated
// or deleted in normal operation, and an alert accumulates them over time.
type Investigation struct {
	ID               string          `json:"id"`
	AlertID          string          `json:"alert_id" validate:"required"`
	AnalystID        string          `json:"analyst_id" validate:"required"`
	SOPID            string          `json:"sop_id,omitempty"`
	Findings         string          `json:"findings,omitempty" validate:"max=10000"`
	Conclusion       Conclusion      `json:"conclusion,omitempty"`
	ActionsTaken     []string        `json:"actions_taken,omitempty"`
	ChecklistResults map[string]bool `json:"checklist_results,omitempty"`
	TimeSpentMinutes int             `json:"time_spent_minutes,omitempty" validate:"min=0"`
	StartedAt        time.Time       `json:"started_at" swaggertype:"string"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty" swaggertype:"string"`

	// Denormalized display fields, populated by storage joins
	AnalystName  string `json:"analyst_name,omitempty"`
	AnalystEmail string `json:"analyst_email,omitempty"`
	SOPTitle     string `json:"sop_title,omitempty"`
}

// Validate performs validation on the investigation
func (i *Investigation) Validate() error {
	if i.AlertID == "" {
		return fmt.Errorf("investigation alert_id is required")
	}
	if i.AnalystID == "" {
		return fmt.Errorf("investigation analyst_id is required")
	}
	if !i.Conclusion.IsValid() {
		return fmt.Errorf("invalid investigation conclusion: %s", i.Conclusion)
	}
	if i.TimeSpentMinutes < 0 {
		return fmt.Errorf("time spent cannot be negative")
	}
	return nil
}

// NewInvestigation creates a completed investigation record for an alert.
/// CompletedAt is stamped immediately: the record captures finished work, the
// in-flight state lives in SOP progress, not here.
func NewInvestigation(alertID, analystID string) *Investigation {
	now := time.Now().UTC()
	return &Investigation{
		ID:          uuid.New().String(),
		AlertID:     alertID,
		AnalystID:   analystID,
		StartedAt:   now,
		CompletedAt: &now,
	}
}
