package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SOPStatus represents the publication state of a procedure
type SOPStatus string

const (
	SOPStatusDraft     SOPStatus = "DRAFT"
	SOPStatusPublished SOPStatus = "PUBLISHED"
	SOPStatusArchived  SOPStatus = "ARCHIVED"
)

// String returns the string representation
func (s SOPStatus) String() string {
	return string(s)
}

// IsValid checks if the status is valid
func (s SOPStatus) IsValid() bool {
	switch s {
	case SOPStatusDraft, SOPStatusPublished, SOPStatusArchived:
		return true
	default:
		return false
	}
}

// ChecklistItem is one step of a procedure's flat checklist. The item index
// doubles as the implicit step reference in progress state.
type ChecklistItem struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Required bool   `json:"required"`
}

// SOPExample is an illustrative query or screenshot attached to a procedure
type SOPExample struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Query       string `json:"query,omitempty"`
	Screenshot  string `json:"screenshot,omitempty"`
}

// SOP is a database-backed standard operating procedure: a reusable
// investigation playbook with a markdown body and an ordered checklist.
// The richer step-by-step guides live in the compiled-in template catalog
// (see sop_templates.go), not here.
type SOP struct {
	ID              string          `json:"id"`
	Title           string          `json:"title" validate:"required,min=1,max=300"`
	Slug            string          `json:"slug"`
	Category        string          `json:"category,omitempty"`
	Status          SOPStatus       `json:"status"`
	AlertTypes      []string        `json:"alert_types,omitempty"`
	ContentMarkdown string          `json:"content_markdown,omitempty"`
	Checklist       []ChecklistItem `json:"checklist,omitempty"`
	Examples        []SOPExample    `json:"examples,omitempty"`
	Version         int             `json:"version"`
	CreatedByID     string          `json:"created_by_id,omitempty"`
	CreatedBy       *UserSummary    `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at" swaggertype:"string"`
	UpdatedAt       time.Time       `json:"updated_at" swaggertype:"string"`

	// InvestigationCount is populated on list queries for display
	InvestigationCount int `json:"investigation_count,omitempty"`
}

// NewSOP creates a draft SOP, deriving the slug from the title.
func NewSOP(title string) *SOP {
	now := time.Now().UTC()
	return &SOP{
		ID:        uuid.New().String(),
		Title:     title,
		Slug:      Slugify(title),
		Status:    SOPStatusDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Slugify derives a URL-safe slug from a title: lowercase, strip everything
// that is not alphanumeric, space or hyphen, collapse whitespace runs to a
// single hyphen, collapse repeated hyphens, trim edge hyphens.
func Slugify(title string) string {
	lower := strings.ToLower(title)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n':
			b.WriteRune(' ')
		}
	}

	slug := strings.Join(strings.Fields(b.String()), "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}
