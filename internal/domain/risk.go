package domain

import "time"

// RiskLevel is the categorical bucket derived from a continuous risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Fixed factor weights. They must sum to 1.0; AssessRisk assumes it.
const (
	weightMethod  = 0.40
	weightDevice  = 0.25
	weightTime    = 0.20
	weightContext = 0.15
)

// RiskFactor is one weighted contribution to the overall score.
type RiskFactor struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// RiskAssessment is computed fresh per authentication event and never mutated.
type RiskAssessment struct {
	Score           float64      `json:"score"`
	Level           RiskLevel    `json:"level"`
	Factors         []RiskFactor `json:"factors"`
	Recommendations []string     `json:"recommendations"`
}

// RiskInput is the full set of signals the engine scores. The engine is a
// pure function of this struct so identical inputs always produce identical
// assessments.
type RiskInput struct {
	Method           AuthMethod
	Confidence       float64
	DeviceTrusted    bool
	Timestamp        time.Time
	NormalHoursStart int
	NormalHoursEnd   int
	NetworkRisk      float64
}

// methodRisk is the inverse of method strength: weaker methods score higher.
func methodRisk(method AuthMethod) float64 {
	switch method {
	case MethodPasscode:
		return 0.80
	case MethodPassword:
		return 0.60
	case MethodBiometric:
		return 0.30
	case MethodCertificate:
		return 0.20
	case MethodMFA:
		return 0.10
	default:
		return 0.70
	}
}

// AssessRisk computes the weighted risk score for one authentication event.
func AssessRisk(in RiskInput) RiskAssessment {
	confidence := clamp01(in.Confidence)
	method := methodRisk(in.Method)
	// Low verifier confidence pushes the method factor toward its ceiling.
	method = clamp01(method + (1-confidence)*(1-method)*0.5)

	device := 0.70
	if in.DeviceTrusted {
		device = 0.20
	}

	tod := 0.80
	if withinNormalHours(in.Timestamp, in.NormalHoursStart, in.NormalHoursEnd) {
		tod = 0.10
	}

	network := in.NetworkRisk
	if network == 0 {
		network = 0.30
	}
	network = clamp01(network)

	factors := []RiskFactor{
		{Name: "authentication_method", Score: method, Weight: weightMethod},
		{Name: "device_trust", Score: device, Weight: weightDevice},
		{Name: "time_of_day", Score: tod, Weight: weightTime},
		{Name: "network_context", Score: network, Weight: weightContext},
	}

	var score float64
	for _, f := range factors {
		score += f.Score * f.Weight
	}
	score = clamp01(score)

	return RiskAssessment{
		Score:           score,
		Level:           LevelForScore(score),
		Factors:         factors,
		Recommendations: recommendations(factors, LevelForScore(score)),
	}
}

// LevelForScore maps a continuous score to its categorical bucket.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < 0.25:
		return RiskLow
	case score < 0.5:
		return RiskMedium
	case score < 0.75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

func withinNormalHours(at time.Time, start, end int) bool {
	if start == end {
		return true
	}
	hour := at.UTC().Hour()
	if start < end {
		return hour >= start && hour < end
	}
	// Window wraps midnight, e.g. 22..6.
	return hour >= start || hour < end
}

func recommendations(factors []RiskFactor, level RiskLevel) []string {
	recs := make([]string, 0, 3)
	for _, f := range factors {
		if f.Score < 0.6 {
			continue
		}
		switch f.Name {
		case "authentication_method":
			recs = append(recs, "require a stronger authentication method")
		case "device_trust":
			recs = append(recs, "verify device enrollment")
		case "time_of_day":
			recs = append(recs, "review activity outside normal hours")
		case "network_context":
			recs = append(recs, "verify network origin")
		}
	}
	if level == RiskCritical {
		recs = append(recs, "consider denying access pending manual review")
	}
	return recs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
