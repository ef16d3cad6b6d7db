package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"morakib/core"
	"morakib/metrics"
	"morakib/storage"

	"go.uber.org/zap"
)

// InvestigationService owns the investigation submission workflow: the
// record insert, the alert status derivation and the analyst metric rollup
// commit as a single transaction.
type InvestigationService struct {
	db             *storage.SQLite
	alerts         *storage.SQLiteAlertStorage
	users          *storage.SQLiteUserStorage
	investigations *storage.SQLiteInvestigationStorage
	analystMetrics *storage.SQLiteMetricStorage
	policy         core.ResolutionPolicy
	logger         *zap.SugaredLogger
}

// NewInvestigationService creates a new investigation service
func NewInvestigationService(
	db *storage.SQLite,
	alerts *storage.SQLiteAlertStorage,
	users *storage.SQLiteUserStorage,
	investigations *storage.SQLiteInvestigationStorage,
	analystMetrics *storage.SQLiteMetricStorage,
	policy core.ResolutionPolicy,
	logger *zap.SugaredLogger,
) *InvestigationService {
	return &InvestigationService{
		db:             db,
		alerts:         alerts,
		users:          users,
		investigations: investigations,
		analystMetrics: analystMetrics,
		policy:         policy,
		logger:         logger,
	}
}

// SubmitRequest carries one investigation submission. AnalystID comes from
// the authenticated session, never from the request body.
type SubmitRequest struct {
	AlertID          string          `json:"-"`
	AnalystID        string          `json:"-"`
	SOPID            string          `json:"sop_id,omitempty"`
	Findings         string          `json:"findings" validate:"max=10000"`
	Conclusion       core.Conclusion `json:"conclusion,omitempty"`
	ActionsTaken     []string        `json:"actions_taken,omitempty"`
	ChecklistResults map[string]bool `json:"checklist_results,omitempty"`
	TimeSpentMinutes int             `json:"time_spent_minutes,omitempty" validate:"min=0"`
}

// SubmitResult is the outcome of a submission: the stored record and the
// alert as it stands after the derived status was applied.
type SubmitResult struct {
	Investigation *core.Investigation `json:"investigation"`
	Alert         *core.Alert         `json:"alert"`
}

// Submit records a completed investigation. The insert, the alert update and
// the metric upsert run in one transaction so a failure leaves no partial
// state behind.
func (s *InvestigationService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inv := core.NewInvestigation(req.AlertID, req.AnalystID)
	inv.SOPID = req.SOPID
	inv.Findings = req.Findings
	inv.Conclusion = req.Conclusion
	inv.ActionsTaken = req.ActionsTaken
	inv.ChecklistResults = req.ChecklistResults
	inv.TimeSpentMinutes = req.TimeSpentMinutes
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var updated *core.Alert

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		alert, err := s.alerts.GetAlertTx(tx, req.AlertID)
		if err != nil {
			return err
		}
		if _, err := s.users.GetUserTx(tx, req.AnalystID); err != nil {
			return err
		}

		if err := s.investigations.CreateInvestigationTx(tx, inv); err != nil {
			return err
		}

		s.policy.Apply(alert, core.StatusForConclusion(req.Conclusion), now)
		alert.LastConclusion = req.Conclusion
		if alert.AssignedToID == "" {
			alert.AssignedToID = req.AnalystID
		}
		if err := s.alerts.UpdateAlertTx(tx, alert); err != nil {
			return err
		}

		day := core.MetricDay(now.Local())
		delta := core.DeltaForSubmission(req.Conclusion, req.TimeSpentMinutes)
		if err := s.analystMetrics.UpsertSubmissionTx(tx, req.AnalystID, day, delta); err != nil {
			return err
		}

		updated = alert
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit investigation: %w", err)
	}

	metrics.InvestigationsSubmitted.WithLabelValues(string(req.Conclusion)).Inc()
	s.logger.Infow("Investigation submitted",
		"alert_id", req.AlertID,
		"analyst_id", req.AnalystID,
		"conclusion", req.Conclusion,
		"new_status", updated.Status)

	return &SubmitResult{Investigation: inv, Alert: updated}, nil
}

// ListByAlert returns an alert's investigation history, newest first. The
// alert must exist.
func (s *InvestigationService) ListByAlert(ctx context.Context, alertID string) ([]core.Investigation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.alerts.GetAlert(alertID); err != nil {
		return nil, err
	}
	return s.investigations.ListByAlert(alertID)
}
