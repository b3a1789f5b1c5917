package values

import (
	"fmt"
	"math"
)

// NumFeatures is the fixed width of every feature vector consumed by the
// trust model. Training data, prediction inputs and persisted models all
// agree on this shape.
const NumFeatures = 10

// FeatureNames lists the features in wire order. The order is part of the
// model contract: a persisted model trained against this layout is only
// valid for vectors produced with the same layout.
var FeatureNames = [NumFeatures]string{
	"failed_login_rate",
	"night_access_rate",
	"login_frequency_24h",
	"avg_device_risk",
	"unpatched_device_ratio",
	"antivirus_disabled_ratio",
	"network_risk_score",
	"location_change_score",
	"time_anomaly_score",
	"seconds_since_last_login",
}

// FeatureVector is the fixed-shape numeric summary of a user's recent
// behavioral, device-posture and contextual signals as a value object.
//
// Rate/ratio fields are clamped to [0,1]; risk/score fields to [0,100].
type FeatureVector struct {
	FailedLoginRate        float64 `json:"failed_login_rate"`        // [0,1]
	NightAccessRate        float64 `json:"night_access_rate"`        // [0,1]
	LoginFrequency24h      float64 `json:"login_frequency_24h"`      // >= 0
	AvgDeviceRisk          float64 `json:"avg_device_risk"`          // [0,100]
	UnpatchedDeviceRatio   float64 `json:"unpatched_device_ratio"`   // [0,1]
	AntivirusDisabledRatio float64 `json:"antivirus_disabled_ratio"` // [0,1]
	NetworkRiskScore       float64 `json:"network_risk_score"`       // [0,100]
	LocationChangeScore    float64 `json:"location_change_score"`    // >= 0
	TimeAnomalyScore       float64 `json:"time_anomaly_score"`       // [0,100]
	SecondsSinceLastLogin  float64 `json:"seconds_since_last_login"` // >= 0
}

// NewFeatureVector creates a feature vector and rejects values outside their
// contractual ranges.
func NewFeatureVector(failedLoginRate, nightAccessRate, loginFrequency24h, avgDeviceRisk,
	unpatchedDeviceRatio, antivirusDisabledRatio, networkRiskScore,
	locationChangeScore, timeAnomalyScore, secondsSinceLastLogin float64) (FeatureVector, error) {

	if err := validateRate(failedLoginRate, "failed_login_rate"); err != nil {
		return FeatureVector{}, err
	}
	if err := validateRate(nightAccessRate, "night_access_rate"); err != nil {
		return FeatureVector{}, err
	}
	if err := validateRate(unpatchedDeviceRatio, "unpatched_device_ratio"); err != nil {
		return FeatureVector{}, err
	}
	if err := validateRate(antivirusDisabledRatio, "antivirus_disabled_ratio"); err != nil {
		return FeatureVector{}, err
	}
	if err := validateScore(avgDeviceRisk, "avg_device_risk"); err != nil {
		return FeatureVector{}, err
	}
	if err := validateScore(networkRiskScore, "network_risk_score"); err != nil {
		return FeatureVector{}, err
	}
	if err := validateScore(timeAnomalyScore, "time_anomaly_score"); err != nil {
		return FeatureVector{}, err
	}
	if err := validateNonNegative(loginFrequency24h, "login_frequency_24h"); err != nil {
		return FeatureVector{}, err
	}
	if err := validateNonNegative(locationChangeScore, "location_change_score"); err != nil {
		return FeatureVector{}, err
	}
	if err := validateNonNegative(secondsSinceLastLogin, "seconds_since_last_login"); err != nil {
		return FeatureVector{}, err
	}

	return FeatureVector{
		FailedLoginRate:        failedLoginRate,
		NightAccessRate:        nightAccessRate,
		LoginFrequency24h:      loginFrequency24h,
		AvgDeviceRisk:          avgDeviceRisk,
		UnpatchedDeviceRatio:   unpatchedDeviceRatio,
		AntivirusDisabledRatio: antivirusDisabledRatio,
		NetworkRiskScore:       networkRiskScore,
		LocationChangeScore:    locationChangeScore,
		TimeAnomalyScore:       timeAnomalyScore,
		SecondsSinceLastLogin:  secondsSinceLastLogin,
	}, nil
}

// Clamped returns a copy with every field forced into its contractual range.
// Extraction uses this as the final step so that no downstream consumer ever
// sees an out-of-range value regardless of input quality.
func (f FeatureVector) Clamped() FeatureVector {
	f.FailedLoginRate = clamp(f.FailedLoginRate, 0, 1)
	f.NightAccessRate = clamp(f.NightAccessRate, 0, 1)
	f.UnpatchedDeviceRatio = clamp(f.UnpatchedDeviceRatio, 0, 1)
	f.AntivirusDisabledRatio = clamp(f.AntivirusDisabledRatio, 0, 1)
	f.AvgDeviceRisk = clamp(f.AvgDeviceRisk, 0, 100)
	f.NetworkRiskScore = clamp(f.NetworkRiskScore, 0, 100)
	f.TimeAnomalyScore = clamp(f.TimeAnomalyScore, 0, 100)
	f.LoginFrequency24h = math.Max(0, f.LoginFrequency24h)
	f.LocationChangeScore = math.Max(0, f.LocationChangeScore)
	f.SecondsSinceLastLogin = math.Max(0, f.SecondsSinceLastLogin)
	return f
}

// Values returns the features as a slice in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	return []float64{
		f.FailedLoginRate,
		f.NightAccessRate,
		f.LoginFrequency24h,
		f.AvgDeviceRisk,
		f.UnpatchedDeviceRatio,
		f.AntivirusDisabledRatio,
		f.NetworkRiskScore,
		f.LocationChangeScore,
		f.TimeAnomalyScore,
		f.SecondsSinceLastLogin,
	}
}

// FromValues rebuilds a vector from a slice in FeatureNames order.
func FromValues(v []float64) (FeatureVector, error) {
	if len(v) != NumFeatures {
		return FeatureVector{}, fmt.Errorf("expected %d features, got %d", NumFeatures, len(v))
	}
	return FeatureVector{
		FailedLoginRate:        v[0],
		NightAccessRate:        v[1],
		LoginFrequency24h:      v[2],
		AvgDeviceRisk:          v[3],
		UnpatchedDeviceRatio:   v[4],
		AntivirusDisabledRatio: v[5],
		NetworkRiskScore:       v[6],
		LocationChangeScore:    v[7],
		TimeAnomalyScore:       v[8],
		SecondsSinceLastLogin:  v[9],
	}, nil
}

func (f FeatureVector) String() string {
	return fmt.Sprintf("FeatureVector{failedLoginRate=%.3f nightAccessRate=%.3f loginFreq24h=%.0f avgDeviceRisk=%.1f netRisk=%.1f}",
		f.FailedLoginRate, f.NightAccessRate, f.LoginFrequency24h, f.AvgDeviceRisk, f.NetworkRiskScore)
}

func validateRate(v float64, field string) error {
	return validateRange(v, field, 0, 1)
}

func validateScore(v float64, field string) error {
	return validateRange(v, field, 0, 100)
}

func validateRange(v float64, field string, min, max float64) error {
	if math.IsNaN(v) || v < min || v > max {
		return fmt.Errorf("%s must be between %.1f and %.1f, got %f", field, min, max, v)
	}
	return nil
}

func validateNonNegative(v float64, field string) error {
	if math.IsNaN(v) || v < 0 {
		return fmt.Errorf("%s cannot be negative, got %f", field, v)
	}
	return nil
}

func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return min
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
