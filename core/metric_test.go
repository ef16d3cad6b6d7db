package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricDay(t *testing.T) {
	loc, _ := time.LoadLocation("UTC")
	in := time.Date(2025, 4, 2, 17, 45, 12, 999, loc)
	day := MetricDay(in)

	assert.Equal(t, 2025, day.Year())
	assert.Equal(t, time.April, day.Month())
	assert.Equal(t, 2, day.Day())
	assert.Zero(t, day.Hour())
	assert.Zero(t, day.Minute())
	assert.Zero(t, day.Second())
	assert.Zero(t, day.Nanosecond())

	// Same calendar day maps to the same bucket.
	assert.Equal(t, day, MetricDay(in.Add(3*time.Hour)))
}

func TestMetricDay_UsesWallClockCalendarDay(t *testing.T) {
	// 23:30 UTC on April 2nd is already April 3rd at UTC+4; the bucket
	// follows the moment's own wall clock, not UTC.
	east := time.FixedZone("UTC+4", 4*60*60)
	in := time.Date(2025, 4, 2, 23, 30, 0, 0, time.UTC).In(east)

	day := MetricDay(in)
	assert.Equal(t, 3, day.Day())
	assert.Zero(t, day.Hour())
	assert.Equal(t, east, day.Location())
}

func TestDeltaForSubmission(t *testing.T) {
	testCases := []struct {
		name       string
		conclusion Conclusion
		minutes    int
		expected   MetricDelta
	}{
		{
			"true positive",
			ConclusionTruePositive, 25,
			MetricDelta{TruePositives: 1, TimeSpentMin: 25},
		},
		{
			"false positive",
			ConclusionFalsePositive, 10,
			MetricDelta{FalsePositives: 1, TimeSpentMin: 10},
		},
		{
			"needs escalation",
			ConclusionNeedsEscalation, 40,
			MetricDelta{Escalations: 1, TimeSpentMin: 40},
		},
		{
			"inconclusive counts time only",
			ConclusionInconclusive, 15,
			MetricDelta{TimeSpentMin: 15},
		},
		{
			"no conclusion counts time only",
			Conclusion(""), 5,
			MetricDelta{TimeSpentMin: 5},
		},
		{
			"negative minutes clamped",
			ConclusionTruePositive, -3,
			MetricDelta{TruePositives: 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DeltaForSubmission(tc.conclusion, tc.minutes))
		})
	}
}

func TestInvestigation_Validate(t *testing.T) {
	inv := NewInvestigation("alert-1", "user-1")
	inv.Findings = "credential stuffing from a single ASN"
	inv.Conclusion = ConclusionTruePositive
	inv.TimeSpentMinutes = 30
	assert.NoError(t, inv.Validate())

	bad := NewInvestigation("", "user-1")
	assert.Error(t, bad.Validate())

	badConclusion := NewInvestigation("alert-1", "user-1")
	badConclusion.Conclusion = Conclusion("MAYBE")
	assert.Error(t, badConclusion.Validate())
}
