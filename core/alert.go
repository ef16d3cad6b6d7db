package core

import (
	"time"

	"github.com/google/uuid"
)

// AlertSeverity represents the severity of an alert
type AlertSeverity string

const (
	AlertSeverityCritical AlertSeverity = "CRITICAL"
	AlertSeverityHigh     AlertSeverity = "HIGH"
	AlertSeverityMedium   AlertSeverity = "MEDIUM"
	AlertSeverityLow      AlertSeverity = "LOW"
	AlertSeverityInfo     AlertSeverity = "INFO"
)

// String returns the string representation
func (s AlertSeverity) String() string {
	return string(s)
}

// IsValid checks if the severity is valid
func (s AlertSeverity) IsValid() bool {
	switch s {
	case AlertSeverityCritical, AlertSeverityHigh, AlertSeverityMedium, AlertSeverityLow, AlertSeverityInfo:
		return true
	default:
		return false
	}
}

// AlertStatus represents the status of an alert
type AlertStatus string

const (
	// AlertStatusNew indicates an alert that hasn't been triaged yet
	AlertStatusNew AlertStatus = "NEW"
	// AlertStatusAssigned indicates an alert assigned to an analyst
	AlertStatusAssigned AlertStatus = "ASSIGNED"
	// AlertStatusInvestigating indicates an alert under active investigation
	AlertStatusInvestigating AlertStatus = "INVESTIGATING"
	// AlertStatusResolved indicates an alert closed without further action
	AlertStatusResolved AlertStatus = "RESOLVED"
	// AlertStatusEscalated indicates an alert handed off to incident response
	AlertStatusEscalated AlertStatus = "ESCALATED"
	// AlertStatusFalsePositive indicates an alert dismissed as a false positive
	AlertStatusFalsePositive AlertStatus = "FALSE_POSITIVE"
)

// String returns the string representation
func (s AlertStatus) String() string {
	return string(s)
}

// IsValid checks if the status is valid
func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusNew, AlertStatusAssigned, AlertStatusInvestigating,
		AlertStatusResolved, AlertStatusEscalated, AlertStatusFalsePositive:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status closes out the alert.
// Terminal statuses are the only ones that carry a resolution timestamp.
func (s AlertStatus) IsTerminal() bool {
	return s == AlertStatusResolved || s == AlertStatusFalsePositive
}

// AlertSource identifies the detector that produced an alert
type AlertSource string

const (
	AlertSourceSuricata AlertSource = "SURICATA"
	AlertSourceZeek     AlertSource = "ZEEK"
	AlertSourceFilebeat AlertSource = "FILEBEAT"
	AlertSourceElastic  AlertSource = "ELASTIC"
	AlertSourceCustom   AlertSource = "CUSTOM"
)

// String returns the string representation
func (s AlertSource) String() string {
	return string(s)
}

// IsValid checks if the source is valid
func (s AlertSource) IsValid() bool {
	switch s {
	case AlertSourceSuricata, AlertSourceZeek, AlertSourceFilebeat, AlertSourceElastic, AlertSourceCustom:
		return true
	default:
		return false
	}
}

// JSONMap holds free-form document data (raw detector logs, enrichment
// payloads). Shape is validated only at the points that read specific keys.
type JSONMap map[string]interface{}

// Alert represents a detected security event awaiting analyst attention
type Alert struct {
	ID          string        `json:"id" example:"1f0c2a7e-8f1d-4c5a-9a3b-6d2e4f8a1b0c"`
	Title       string        `json:"title" validate:"required,min=1,max=300" example:"SSH brute force from 185.234.219.34"`
	Description string        `json:"description,omitempty" validate:"max=5000"`
	Severity    AlertSeverity `json:"severity" example:"HIGH"`
	Status      AlertStatus   `json:"status" example:"NEW"`
	Source      AlertSource   `json:"source" example:"SURICATA"`

	// Network context, all optional free-form detector output
	SourceIP   string `json:"source_ip,omitempty" example:"185.234.219.34"`
	DestIP     string `json:"dest_ip,omitempty" example:"10.0.0.12"`
	SourcePort *int   `json:"source_port,omitempty" example:"51234"`
	DestPort   *int   `json:"dest_port,omitempty" example:"22"`
	Protocol   string `json:"protocol,omitempty" example:"TCP"`
	RuleName   string `json:"rule_name,omitempty" example:"ET SCAN Potential SSH Scan"`
	RuleID     string `json:"rule_id,omitempty" example:"2001219"`

	RawLog         JSONMap `json:"raw_log,omitempty"`
	EnrichmentData JSONMap `json:"enrichment_data,omitempty"`

	AssignedToID string       `json:"assigned_to_id,omitempty"`
	AssignedTo   *UserSummary `json:"assigned_to,omitempty"`

	// LastConclusion is the most recent investigation's conclusion, populated
	// on list queries for display.
	LastConclusion Conclusion `json:"last_conclusion,omitempty"`

	DetectedAt time.Time  `json:"detected_at" swaggertype:"string"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" swaggertype:"string"`
	CreatedAt  time.Time  `json:"created_at" swaggertype:"string"`
	UpdatedAt  time.Time  `json:"updated_at" swaggertype:"string"`
}

// NewAlert creates a new Alert with a generated UUID and the ingestion
// defaults: severity MEDIUM, status NEW, source CUSTOM.
func NewAlert(title string) *Alert {
	now := time.Now().UTC()
	return &Alert{
		ID:         uuid.New().String(),
		Title:      title,
		Severity:   AlertSeverityMedium,
		Status:     AlertStatusNew,
		Source:     AlertSourceCustom,
		DetectedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
