package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForConclusion(t *testing.T) {
	testCases := []struct {
		name       string
		conclusion Conclusion
		expected   AlertStatus
	}{
		{"true positive escalates", ConclusionTruePositive, AlertStatusEscalated},
		{"needs escalation escalates", ConclusionNeedsEscalation, AlertStatusEscalated},
		{"false positive closes as false positive", ConclusionFalsePositive, AlertStatusFalsePositive},
		{"inconclusive resolves", ConclusionInconclusive, AlertStatusResolved},
		{"empty conclusion stays investigating", Conclusion(""), AlertStatusInvestigating},
		{"unknown value stays investigating", Conclusion("SOMETHING_ELSE"), AlertStatusInvestigating},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StatusForConclusion(tc.conclusion))
		})
	}
}

func TestResolutionPolicy_Apply_SetsResolvedAtOnTerminal(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	for _, status := range []AlertStatus{AlertStatusResolved, AlertStatusFalsePositive} {
		t.Run(string(status), func(t *testing.T) {
			alert := NewAlert("suspicious login burst")
			alert.Status = AlertStatusInvestigating

			DefaultResolutionPolicy.Apply(alert, status, now)

			assert.Equal(t, status, alert.Status)
			require.NotNil(t, alert.ResolvedAt)
			assert.Equal(t, now, *alert.ResolvedAt)
		})
	}
}

func TestResolutionPolicy_Apply_PreservesResolvedAtOnReopen(t *testing.T) {
	resolved := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	later := resolved.Add(2 * time.Hour)

	alert := NewAlert("beaconing to known C2")
	alert.Status = AlertStatusResolved
	alert.ResolvedAt = &resolved

	DefaultResolutionPolicy.Apply(alert, AlertStatusInvestigating, later)

	assert.Equal(t, AlertStatusInvestigating, alert.Status)
	require.NotNil(t, alert.ResolvedAt)
	assert.Equal(t, resolved, *alert.ResolvedAt)
}

func TestResolutionPolicy_Apply_ClearOnReopen(t *testing.T) {
	resolved := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	later := resolved.Add(2 * time.Hour)

	alert := NewAlert("beaconing to known C2")
	alert.Status = AlertStatusResolved
	alert.ResolvedAt = &resolved

	policy := ResolutionPolicy{ClearOnReopen: true}
	policy.Apply(alert, AlertStatusInvestigating, later)

	assert.Equal(t, AlertStatusInvestigating, alert.Status)
	assert.Nil(t, alert.ResolvedAt)
}

func TestResolutionPolicy_Apply_RestampsOnSecondTerminal(t *testing.T) {
	first := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	second := first.Add(30 * time.Minute)

	alert := NewAlert("port scan from partner range")
	alert.Status = AlertStatusResolved
	alert.ResolvedAt = &first

	// Re-closing under a different terminal status restamps the resolution time.
	DefaultResolutionPolicy.Apply(alert, AlertStatusFalsePositive, second)

	assert.Equal(t, AlertStatusFalsePositive, alert.Status)
	require.NotNil(t, alert.ResolvedAt)
	assert.Equal(t, second, *alert.ResolvedAt)
}

func TestAlertStatus_IsTerminal(t *testing.T) {
	assert.True(t, AlertStatusResolved.IsTerminal())
	assert.True(t, AlertStatusFalsePositive.IsTerminal())
	assert.False(t, AlertStatusNew.IsTerminal())
	assert.False(t, AlertStatusAssigned.IsTerminal())
	assert.False(t, AlertStatusInvestigating.IsTerminal())
	assert.False(t, AlertStatusEscalated.IsTerminal())
}
