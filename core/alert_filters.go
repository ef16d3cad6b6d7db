package core

// AlertFilters defines the filtering and pagination options for alert lists.
// Absent filters are omitted from the match criteria; provided filters are
// AND-combined, with OR applied only within the search clause.
type AlertFilters struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`

	Status     AlertStatus   `json:"status,omitempty"`
	Severity   AlertSeverity `json:"severity,omitempty"`
	Source     AlertSource   `json:"source,omitempty"`
	AssignedTo string        `json:"assigned_to,omitempty"`

	// Search matches case-insensitively against title and description, and
	// as a plain substring against source/destination IPs.
	Search string `json:"search,omitempty"`
}

// NewAlertFilters creates AlertFilters with default pagination.
func NewAlertFilters() *AlertFilters {
	return &AlertFilters{
		Page:  1,
		Limit: 20,
	}
}

// SOPFilters defines the filtering options for SOP lists.
type SOPFilters struct {
	Category string    `json:"category,omitempty"`
	Status   SOPStatus `json:"status,omitempty"`
	Search   string    `json:"search,omitempty"`
}

// UserFilters defines the filtering options for user lists.
type UserFilters struct {
	Role   UserRole `json:"role,omitempty"`
	TeamID string   `json:"team_id,omitempty"`
	Search string   `json:"search,omitempty"`
}
