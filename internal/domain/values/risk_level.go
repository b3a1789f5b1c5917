package values

import "strings"

// RiskLevel is the discrete bucket derived from a trust score.
type RiskLevel int

const (
	RiskLevelLow RiskLevel = iota
	RiskLevelMedium
	RiskLevelHigh
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLevelLow:
		return "LOW"
	case RiskLevelMedium:
		return "MEDIUM"
	case RiskLevelHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// ParseRiskLevel maps a stored string back to its RiskLevel. Unknown values
// map to HIGH so that corrupted rows fail closed.
func ParseRiskLevel(s string) RiskLevel {
	switch s {
	case "LOW":
		return RiskLevelLow
	case "MEDIUM":
		return RiskLevelMedium
	case "HIGH":
		return RiskLevelHigh
	default:
		return RiskLevelHigh
	}
}

// MarshalJSON renders the level as its string form.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	*r = ParseRiskLevel(strings.Trim(string(data), `"`))
	return nil
}

// AccessDecision is the policy outcome for a risk level.
type AccessDecision int

const (
	DecisionAllow AccessDecision = iota
	DecisionWarn
	DecisionDeny
)

func (d AccessDecision) String() string {
	switch d {
	case DecisionAllow:
		return "ALLOW"
	case DecisionWarn:
		return "WARN"
	case DecisionDeny:
		return "DENY"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON renders the decision as its string form.
func (d AccessDecision) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *AccessDecision) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "WARN":
		*d = DecisionWarn
	case "DENY":
		*d = DecisionDeny
	default:
		*d = DecisionAllow
	}
	return nil
}

// Risk thresholds shared by scoring and evaluation. Changing one side of the
// contract without the other breaks confusion-metric comparability.
const (
	HighRiskThreshold   = 40.0
	MediumRiskThreshold = 70.0
)

// ClassifyScore buckets a trust score into a risk level:
// score < 40 is HIGH, 40 <= score < 70 is MEDIUM, score >= 70 is LOW.
func ClassifyScore(score float64) RiskLevel {
	switch {
	case score < HighRiskThreshold:
		return RiskLevelHigh
	case score < MediumRiskThreshold:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// Decide maps a risk level to the access decision enforced at login:
// HIGH denies, MEDIUM warns (step-up auth), LOW allows.
func Decide(risk RiskLevel) AccessDecision {
	switch risk {
	case RiskLevelHigh:
		return DecisionDeny
	case RiskLevelMedium:
		return DecisionWarn
	default:
		return DecisionAllow
	}
}
