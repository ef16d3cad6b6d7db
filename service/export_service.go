package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"morakib/iris"
	"morakib/metrics"
	"morakib/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExportService pushes alerts into the IRIS DFIR platform. When no IRIS
// instance is configured it returns a simulated case so demo environments
// keep a working export button.
type ExportService struct {
	alerts  *storage.SQLiteAlertStorage
	exports *storage.SQLiteExportStorage
	client  *iris.Client // nil when IRIS is not configured
	logger  *zap.SugaredLogger
}

// NewExportService creates an export service. client may be nil.
func NewExportService(
	alerts *storage.SQLiteAlertStorage,
	exports *storage.SQLiteExportStorage,
	client *iris.Client,
	logger *zap.SugaredLogger,
) *ExportService {
	return &ExportService{alerts: alerts, exports: exports, client: client, logger: logger}
}

// ExportResult reports one export outcome to the caller.
type ExportResult struct {
	Success bool   `json:"success"`
	Mock    bool   `json:"mock,omitempty"`
	Message string `json:"message"`
	Case    struct {
		CaseID   int    `json:"case_id"`
		CaseName string `json:"case_name"`
		SOCID    string `json:"case_soc_id"`
	} `json:"case"`
	IOCCount int `json:"ioc_count"`
}

// ExportAlert exports one alert: case creation, IOC attachment and an
// initial timeline event. The export is recorded in the audit trail either
// way, flagged as mock when simulated.
func (s *ExportService) ExportAlert(ctx context.Context, alertID, exportedBy string) (*ExportResult, error) {
	alert, err := s.alerts.GetAlert(alertID)
	if err != nil {
		return nil, err
	}

	payload := iris.AlertToCase(alert)
	result := &ExportResult{Success: true, IOCCount: len(payload.IOCs)}

	if s.client == nil {
		s.logger.Infow("Mock IRIS export, no IRIS instance configured", "alert_id", alertID)
		result.Mock = true
		result.Message = "Simulated export (IRIS not configured)"
		result.Case.CaseID = rand.Intn(1000) + 1
		result.Case.CaseName = payload.CaseData.CaseName
		result.Case.SOCID = payload.CaseData.CaseSOCID

		s.record(alert.ID, fmt.Sprintf("%d", result.Case.CaseID), result.Case.CaseName, true, exportedBy)
		metrics.IrisExports.WithLabelValues("mock", "success").Inc()
		return result, nil
	}

	created, err := s.client.CreateCase(ctx, payload.CaseData)
	if err != nil {
		metrics.IrisExports.WithLabelValues("live", "error").Inc()
		return nil, fmt.Errorf("failed to create IRIS case: %w", err)
	}

	if len(payload.IOCs) > 0 {
		if err := s.client.AddIOCs(ctx, created.CaseID, payload.IOCs); err != nil {
			metrics.IrisExports.WithLabelValues("live", "error").Inc()
			return nil, fmt.Errorf("failed to add IOCs to IRIS case %d: %w", created.CaseID, err)
		}
	}

	eventDescription := fmt.Sprintf(
		"Alert imported from Morakib SOC Platform. Original severity: %s", alert.Severity)
	if err := s.client.AddTimelineEvent(ctx, created.CaseID, "Alert received from Morakib", alert.CreatedAt, eventDescription); err != nil {
		// The case and IOCs are already in place, a missing timeline entry
		// is not worth failing the export over.
		s.logger.Warnw("Failed to add IRIS timeline event", "case_id", created.CaseID, "error", err)
	}

	result.Message = "Alert exported to IRIS"
	result.Case.CaseID = created.CaseID
	result.Case.CaseName = created.CaseName
	result.Case.SOCID = payload.CaseData.CaseSOCID

	s.record(alert.ID, fmt.Sprintf("%d", created.CaseID), created.CaseName, false, exportedBy)
	metrics.IrisExports.WithLabelValues("live", "success").Inc()
	s.logger.Infow("Alert exported to IRIS",
		"alert_id", alertID, "case_id", created.CaseID, "iocs", len(payload.IOCs))
	return result, nil
}

// ListExports returns an alert's export history.
func (s *ExportService) ListExports(ctx context.Context, alertID string) ([]storage.ExportRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.alerts.GetAlert(alertID); err != nil {
		return nil, err
	}
	return s.exports.ListExportsForAlert(alertID)
}

func (s *ExportService) record(alertID, caseID, caseName string, mock bool, exportedBy string) {
	rec := &storage.ExportRecord{
		ID:         uuid.New().String(),
		AlertID:    alertID,
		CaseID:     caseID,
		CaseName:   caseName,
		Mock:       mock,
		ExportedBy: exportedBy,
		ExportedAt: time.Now().UTC(),
	}
	if err := s.exports.RecordExport(rec); err != nil {
		s.logger.Warnw("Failed to record export", "alert_id", alertID, "error", err)
	}
}
