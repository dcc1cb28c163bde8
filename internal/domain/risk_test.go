package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestAssessRiskDeterministic(t *testing.T) {
	t.Parallel()

	in := RiskInput{
		Method:           MethodPassword,
		Confidence:       0.75,
		DeviceTrusted:    true,
		Timestamp:        time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		NormalHoursStart: 7,
		NormalHoursEnd:   20,
	}

	first := AssessRisk(in)
	second := AssessRisk(in)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs produced different assessments:\n%+v\n%+v", first, second)
	}
}

func TestAssessRiskFactorOrdering(t *testing.T) {
	t.Parallel()

	base := RiskInput{
		Confidence:       0.75,
		Timestamp:        time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		NormalHoursStart: 7,
		NormalHoursEnd:   20,
	}

	passcode := base
	passcode.Method = MethodPasscode
	biometric := base
	biometric.Method = MethodBiometric
	biometric.Confidence = 0.90

	if AssessRisk(passcode).Score <= AssessRisk(biometric).Score {
		t.Fatalf("passcode should score riskier than biometric")
	}

	trusted := base
	trusted.Method = MethodPassword
	trusted.DeviceTrusted = true
	untrusted := trusted
	untrusted.DeviceTrusted = false
	if AssessRisk(trusted).Score >= AssessRisk(untrusted).Score {
		t.Fatalf("trusted device should lower the score")
	}

	daytime := trusted
	nighttime := trusted
	nighttime.Timestamp = time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	if AssessRisk(daytime).Score >= AssessRisk(nighttime).Score {
		t.Fatalf("off-hours access should raise the score")
	}
}

func TestAssessRiskWeightsSumToOne(t *testing.T) {
	t.Parallel()

	res := AssessRisk(RiskInput{Method: MethodPassword, Confidence: 0.75, Timestamp: time.Now()})
	total := 0.0
	for _, f := range res.Factors {
		total += f.Weight
	}
	if total < 0.999 || total > 1.001 {
		t.Fatalf("factor weights sum to %v, want 1.0", total)
	}
	if res.Score < 0 || res.Score > 1 {
		t.Fatalf("score %v outside [0,1]", res.Score)
	}
}

func TestLevelForScoreBoundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score float64
		want  RiskLevel
	}{
		{0.0, RiskLow},
		{0.24, RiskLow},
		{0.25, RiskMedium},
		{0.49, RiskMedium},
		{0.5, RiskHigh},
		{0.74, RiskHigh},
		{0.75, RiskCritical},
		{1.0, RiskCritical},
	}
	for _, tc := range cases {
		if got := LevelForScore(tc.score); got != tc.want {
			t.Fatalf("LevelForScore(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestWithinNormalHoursMidnightWrap(t *testing.T) {
	t.Parallel()

	at := func(hour int) time.Time {
		return time.Date(2026, 3, 10, hour, 30, 0, 0, time.UTC)
	}

	if !withinNormalHours(at(23), 22, 6) {
		t.Fatalf("23:30 should be inside a 22-6 window")
	}
	if !withinNormalHours(at(3), 22, 6) {
		t.Fatalf("03:30 should be inside a 22-6 window")
	}
	if withinNormalHours(at(12), 22, 6) {
		t.Fatalf("12:30 should be outside a 22-6 window")
	}
	if !withinNormalHours(at(12), 9, 9) {
		t.Fatalf("equal start and end means always normal")
	}
}
