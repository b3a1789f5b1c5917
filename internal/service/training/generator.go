// Package training owns the synthetic labeled dataset and the trust model
// training lifecycle. Real historical ground truth does not exist for trust
// scores, so supervised training runs on rule-labeled synthetic samples with
// a controlled risk-band balance.
package training

import (
	"math/rand"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/values"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/ml"
)

// DefaultSeed keeps default training runs reproducible across restarts.
const DefaultSeed int64 = 42

// Sample is one labeled synthetic observation. Band records which risk
// profile produced it; the label is the rule-based ground-truth score.
type Sample struct {
	Vector     values.FeatureVector
	TrustScore float64
	Band       values.RiskLevel
}

// band holds the uniform sampling ranges of one risk profile. Integer ranges
// are half-open [lo,hi) like rand.Intn; float ranges are [lo,hi).
type band struct {
	level             values.RiskLevel
	failedLoginRate   [2]float64
	nightAccessRate   [2]float64
	loginFrequency24h [2]int
	avgDeviceRisk     [2]float64
	unpatchedRatio    [2]float64
	avDisabledRatio   [2]float64
	networkRiskScore  [2]float64
	locationChange    [2]float64
	timeAnomaly       [2]float64
	secondsSinceLogin [2]int
}

// Profiles tighten monotonically: every feature's range shifts toward higher
// risk from LOW through HIGH.
var profiles = [3]band{
	{
		level:             values.RiskLevelLow,
		failedLoginRate:   [2]float64{0, 0.05},
		nightAccessRate:   [2]float64{0, 0.10},
		loginFrequency24h: [2]int{3, 8},
		avgDeviceRisk:     [2]float64{10, 30},
		unpatchedRatio:    [2]float64{0, 0.10},
		avDisabledRatio:   [2]float64{0, 0.05},
		networkRiskScore:  [2]float64{10, 25},
		locationChange:    [2]float64{0, 10},
		timeAnomaly:       [2]float64{0, 15},
		secondsSinceLogin: [2]int{3600, 7200},
	},
	{
		level:             values.RiskLevelMedium,
		failedLoginRate:   [2]float64{0.05, 0.20},
		nightAccessRate:   [2]float64{0.10, 0.35},
		loginFrequency24h: [2]int{5, 15},
		avgDeviceRisk:     [2]float64{30, 60},
		unpatchedRatio:    [2]float64{0.10, 0.40},
		avDisabledRatio:   [2]float64{0.05, 0.25},
		networkRiskScore:  [2]float64{25, 50},
		locationChange:    [2]float64{10, 40},
		timeAnomaly:       [2]float64{15, 45},
		secondsSinceLogin: [2]int{7200, 14400},
	},
	{
		level:             values.RiskLevelHigh,
		failedLoginRate:   [2]float64{0.20, 0.60},
		nightAccessRate:   [2]float64{0.35, 0.75},
		loginFrequency24h: [2]int{15, 35},
		avgDeviceRisk:     [2]float64{60, 90},
		unpatchedRatio:    [2]float64{0.40, 0.90},
		avDisabledRatio:   [2]float64{0.25, 0.85},
		networkRiskScore:  [2]float64{50, 80},
		locationChange:    [2]float64{40, 90},
		timeAnomaly:       [2]float64{45, 85},
		secondsSinceLogin: [2]int{14400, 100800},
	},
}

// Generator produces reproducible labeled feature vectors: the same seed
// always yields the same ordered sample sequence.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate returns n samples in profile order: the first ⌊n/3⌋ from the LOW
// band, the next ⌊n/3⌋ from MEDIUM, and the remainder (absorbing rounding
// excess) from HIGH.
func (g *Generator) Generate(n int) []Sample {
	perBand := n / 3
	out := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		var b band
		switch {
		case i < perBand:
			b = profiles[0]
		case i < 2*perBand:
			b = profiles[1]
		default:
			b = profiles[2]
		}

		vec := g.sampleVector(b)
		out = append(out, Sample{
			Vector:     vec,
			TrustScore: g.label(vec),
			Band:       b.level,
		})
	}
	return out
}

func (g *Generator) sampleVector(b band) values.FeatureVector {
	return values.FeatureVector{
		FailedLoginRate:        g.uniform(b.failedLoginRate),
		NightAccessRate:        g.uniform(b.nightAccessRate),
		LoginFrequency24h:      float64(g.uniformInt(b.loginFrequency24h)),
		AvgDeviceRisk:          g.uniform(b.avgDeviceRisk),
		UnpatchedDeviceRatio:   g.uniform(b.unpatchedRatio),
		AntivirusDisabledRatio: g.uniform(b.avDisabledRatio),
		NetworkRiskScore:       g.uniform(b.networkRiskScore),
		LocationChangeScore:    g.uniform(b.locationChange),
		TimeAnomalyScore:       g.uniform(b.timeAnomaly),
		SecondsSinceLastLogin:  float64(g.uniformInt(b.secondsSinceLogin)),
	}
}

// label is the deterministic weighted-penalty ground truth. It is the
// contract the trained model approximates, so the weights are fixed.
func (g *Generator) label(f values.FeatureVector) float64 {
	score := 100.0

	score -= f.FailedLoginRate * 80
	score -= f.NightAccessRate * 30
	if f.LoginFrequency24h > 20 {
		score -= (f.LoginFrequency24h - 20) * 2
	}

	score -= (f.AvgDeviceRisk / 100) * 25
	score -= f.UnpatchedDeviceRatio * 30
	score -= f.AntivirusDisabledRatio * 35

	score -= (f.NetworkRiskScore / 100) * 20
	score -= f.LocationChangeScore * 0.8
	score -= f.TimeAnomalyScore * 0.5

	hoursSinceLogin := float64(int(f.SecondsSinceLastLogin) / 3600)
	if hoursSinceLogin > 24 {
		score -= (hoursSinceLogin - 24) * 0.5
	}

	// noise ~ Uniform(-2.5, 2.5)
	score += (g.rng.Float64() - 0.5) * 5

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func (g *Generator) uniform(r [2]float64) float64 {
	return r[0] + g.rng.Float64()*(r[1]-r[0])
}

func (g *Generator) uniformInt(r [2]int) int {
	return r[0] + g.rng.Intn(r[1]-r[0])
}

// TrainingSet converts generated samples into the model's input shape.
func TrainingSet(samples []Sample) []ml.Sample {
	out := make([]ml.Sample, len(samples))
	for i, s := range samples {
		out[i] = ml.Sample{Features: s.Vector.Values(), Label: s.TrustScore}
	}
	return out
}
