package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/values"
)

func TestGenerator_SeedReproducibility(t *testing.T) {
	first := NewGenerator(7).Generate(300)
	second := NewGenerator(7).Generate(300)

	require.Len(t, first, 300)
	assert.Equal(t, first, second)

	different := NewGenerator(8).Generate(300)
	assert.NotEqual(t, first, different)
}

func TestGenerator_BandBalanceAndOrder(t *testing.T) {
	samples := NewGenerator(DefaultSeed).Generate(301)
	require.Len(t, samples, 301)

	// 100 LOW, 100 MEDIUM, 101 HIGH: the remainder lands in the last band.
	counts := map[values.RiskLevel]int{}
	for _, s := range samples {
		counts[s.Band]++
	}
	assert.Equal(t, 100, counts[values.RiskLevelLow])
	assert.Equal(t, 100, counts[values.RiskLevelMedium])
	assert.Equal(t, 101, counts[values.RiskLevelHigh])

	for i, s := range samples {
		switch {
		case i < 100:
			assert.Equal(t, values.RiskLevelLow, s.Band, "index %d", i)
		case i < 200:
			assert.Equal(t, values.RiskLevelMedium, s.Band, "index %d", i)
		default:
			assert.Equal(t, values.RiskLevelHigh, s.Band, "index %d", i)
		}
	}
}

func TestGenerator_FeaturesWithinProfileRanges(t *testing.T) {
	samples := NewGenerator(DefaultSeed).Generate(300)

	for _, s := range samples {
		var b band
		switch s.Band {
		case values.RiskLevelLow:
			b = profiles[0]
		case values.RiskLevelMedium:
			b = profiles[1]
		default:
			b = profiles[2]
		}

		v := s.Vector
		assert.GreaterOrEqual(t, v.FailedLoginRate, b.failedLoginRate[0])
		assert.Less(t, v.FailedLoginRate, b.failedLoginRate[1])
		assert.GreaterOrEqual(t, v.AvgDeviceRisk, b.avgDeviceRisk[0])
		assert.Less(t, v.AvgDeviceRisk, b.avgDeviceRisk[1])
		assert.GreaterOrEqual(t, v.NetworkRiskScore, b.networkRiskScore[0])
		assert.Less(t, v.NetworkRiskScore, b.networkRiskScore[1])
	}
}

func TestGenerator_LabelsClamped(t *testing.T) {
	samples := NewGenerator(99).Generate(3000)
	for _, s := range samples {
		assert.GreaterOrEqual(t, s.TrustScore, 0.0)
		assert.LessOrEqual(t, s.TrustScore, 100.0)
	}
}

func TestGenerator_BandsSeparateOnAverage(t *testing.T) {
	samples := NewGenerator(DefaultSeed).Generate(3000)

	sums := map[values.RiskLevel]float64{}
	counts := map[values.RiskLevel]int{}
	for _, s := range samples {
		sums[s.Band] += s.TrustScore
		counts[s.Band]++
	}

	lowMean := sums[values.RiskLevelLow] / float64(counts[values.RiskLevelLow])
	medMean := sums[values.RiskLevelMedium] / float64(counts[values.RiskLevelMedium])
	highMean := sums[values.RiskLevelHigh] / float64(counts[values.RiskLevelHigh])

	// LOW-band users should score higher (more trusted) than HIGH-band users.
	assert.Greater(t, lowMean, medMean)
	assert.Greater(t, medMean, highMean)
}

func TestTrainingSet(t *testing.T) {
	samples := NewGenerator(DefaultSeed).Generate(30)
	set := TrainingSet(samples)

	require.Len(t, set, 30)
	for i := range set {
		assert.Equal(t, samples[i].Vector.Values(), set[i].Features)
		assert.Equal(t, samples[i].TrustScore, set[i].Label)
	}
}
