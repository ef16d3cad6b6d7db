package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple title", "Phishing Response", "phishing-response"},
		{"punctuation stripped", "Analyse Brute Force: SSH!!", "analyse-brute-force-ssh"},
		{"repeated whitespace collapsed", "DNS   Tunneling    Triage", "dns-tunneling-triage"},
		{"leading and trailing space", "  Lateral Movement  ", "lateral-movement"},
		{"mixed case with digits", "Windows Event 4625 Review", "windows-event-4625-review"},
		{"hyphens preserved", "C2 Beaconing - First Look", "c2-beaconing-first-look"},
		{"only punctuation", "!!!", ""},
		{"empty input", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Slugify(tc.input))
		})
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	titles := []string{
		"Phishing Response",
		"Analyse Brute Force: SSH!!",
		"Windows Event 4625 Review",
	}
	for _, title := range titles {
		slug := Slugify(title)
		assert.Equal(t, slug, Slugify(slug))
	}
}

func TestNewSOP_Defaults(t *testing.T) {
	sop := NewSOP("Suspicious PowerShell Triage")

	assert.NotEmpty(t, sop.ID)
	assert.Equal(t, "Suspicious PowerShell Triage", sop.Title)
	assert.Equal(t, "suspicious-powershell-triage", sop.Slug)
	assert.Equal(t, SOPStatusDraft, sop.Status)
	assert.Equal(t, 1, sop.Version)
	assert.False(t, sop.CreatedAt.IsZero())
}

func TestSOPTemplates_CatalogParses(t *testing.T) {
	all, err := SOPTemplates()
	require.NoError(t, err)
	require.NotEmpty(t, all)

	seen := make(map[string]bool)
	for _, tpl := range all {
		assert.NotEmpty(t, tpl.ID)
		assert.NotEmpty(t, tpl.Title)
		assert.NotEmpty(t, tpl.Steps)
		assert.Equal(t, Slugify(tpl.Title), tpl.Slug)
		assert.False(t, seen[tpl.Slug], "duplicate slug %s", tpl.Slug)
		seen[tpl.Slug] = true
	}
}

func TestSOPTemplateBySlug(t *testing.T) {
	tpl, err := SOPTemplateBySlug("ssh-brute-force-triage")
	require.NoError(t, err)
	assert.Equal(t, "SSH Brute Force Triage", tpl.Title)
	assert.Greater(t, tpl.TotalChecklistItems(), 0)

	_, err = SOPTemplateBySlug("no-such-procedure")
	require.Error(t, err)
}
