package core

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// The template catalog is the richer, step-by-step form of a procedure:
// nested steps with their own checklists, commands and tips, plus roles,
// KPIs and an escalation matrix. It is compiled-in reference data, distinct
// from the database-backed SOP table, and immutable at runtime.

// TemplateCommand is a copy-pasteable command attached to a step
type TemplateCommand struct {
	Description string `yaml:"description" json:"description"`
	Command     string `yaml:"command" json:"command"`
}

// TemplateStep is one phase of a procedure template
type TemplateStep struct {
	ID           int               `yaml:"id" json:"id"`
	Title        string            `yaml:"title" json:"title"`
	Description  string            `yaml:"description" json:"description,omitempty"`
	TimeEstimate string            `yaml:"time_estimate" json:"time_estimate,omitempty"`
	Responsible  string            `yaml:"responsible" json:"responsible,omitempty"`
	Actions      []string          `yaml:"actions" json:"actions,omitempty"`
	Checklist    []ChecklistItem   `yaml:"checklist" json:"checklist,omitempty"`
	Commands     []TemplateCommand `yaml:"commands" json:"commands,omitempty"`
	Tips         []string          `yaml:"tips" json:"tips,omitempty"`
}

// TemplateRole names a role and its responsibilities within a procedure
type TemplateRole struct {
	Role             string   `yaml:"role" json:"role"`
	Responsibilities []string `yaml:"responsibilities" json:"responsibilities,omitempty"`
}

// TemplateKPI is a measurable target for a procedure
type TemplateKPI struct {
	Name        string `yaml:"name" json:"name"`
	Target      string `yaml:"target" json:"target"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// EscalationLevel is one row of a procedure's escalation matrix
type EscalationLevel struct {
	Level    string `yaml:"level" json:"level"`
	Criteria string `yaml:"criteria" json:"criteria"`
	Contact  string `yaml:"contact" json:"contact"`
	SLA      string `yaml:"sla" json:"sla"`
}

// TemplateDocument is a reusable text template (report skeleton, comms draft)
type TemplateDocument struct {
	Name    string `yaml:"name" json:"name"`
	Content string `yaml:"content" json:"content"`
}

// SOPTemplate is one entry of the compiled-in procedure catalog
type SOPTemplate struct {
	ID               string             `yaml:"id" json:"id"`
	Slug             string             `yaml:"slug" json:"slug"`
	Title            string             `yaml:"title" json:"title"`
	Category         string             `yaml:"category" json:"category"`
	Description      string             `yaml:"description" json:"description,omitempty"`
	Version          string             `yaml:"version" json:"version"`
	AlertTypes       []string           `yaml:"alert_types" json:"alert_types,omitempty"`
	Objectives       []string           `yaml:"objectives" json:"objectives,omitempty"`
	Scope            string             `yaml:"scope" json:"scope,omitempty"`
	Roles            []TemplateRole     `yaml:"roles" json:"roles,omitempty"`
	Steps            []TemplateStep     `yaml:"steps" json:"steps"`
	KPIs             []TemplateKPI      `yaml:"kpis" json:"kpis,omitempty"`
	EscalationMatrix []EscalationLevel  `yaml:"escalation_matrix" json:"escalation_matrix,omitempty"`
	Templates        []TemplateDocument `yaml:"templates" json:"templates,omitempty"`
}

// TotalChecklistItems counts the checklist items across all steps.
func (t *SOPTemplate) TotalChecklistItems() int {
	n := 0
	for _, step := range t.Steps {
		n += len(step.Checklist)
	}
	return n
}

//go:embed sop_templates.yaml
var sopTemplatesYAML []byte

var (
	templatesOnce sync.Once
	templates     []SOPTemplate
	templatesErr  error
)

// SOPTemplates returns the compiled-in procedure catalog. The catalog is
// parsed once; a malformed catalog is a build artifact defect and surfaces
// as an error on every call.
func SOPTemplates() ([]SOPTemplate, error) {
	templatesOnce.Do(func() {
		var doc struct {
			Templates []SOPTemplate `yaml:"templates"`
		}
		if err := yaml.Unmarshal(sopTemplatesYAML, &doc); err != nil {
			templatesErr = fmt.Errorf("failed to parse SOP template catalog: %w", err)
			return
		}
		templates = doc.Templates
	})
	return templates, templatesErr
}

// SOPTemplateBySlug looks up one catalog entry by slug.
func SOPTemplateBySlug(slug string) (*SOPTemplate, error) {
	all, err := SOPTemplates()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Slug == slug {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("sop template not found: %s", slug)
}
