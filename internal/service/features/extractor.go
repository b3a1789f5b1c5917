// Package features reduces a user's recent access events, device inventory
// and login metadata into the fixed-shape feature vector the trust model
// consumes.
package features

import (
	"time"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/device"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/event"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/user"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/values"
)

const (
	// defaultNetworkRisk is used when an event carries no recognizable
	// network type, or when a user has no events at all.
	defaultNetworkRisk = 30.0

	// neutralDeviceRisk is the prior for users with no registered devices.
	neutralDeviceRisk = 50.0

	// Night window: events before 06:00 or after 22:00 UTC.
	nightStartHour = 6
	nightEndHour   = 22
)

// networkRiskWeight maps a network type to its risk contribution.
func networkRiskWeight(n event.NetworkType) float64 {
	switch n {
	case event.NetworkInternal:
		return 10
	case event.NetworkVPN:
		return 25
	case event.NetworkExternal:
		return 45
	case event.NetworkTor:
		return 80
	default:
		return defaultNetworkRisk
	}
}

// Extractor is a pure transform. The clock is injected so that extraction is
// deterministic under test; it has no other state and is safe for any number
// of concurrent callers.
type Extractor struct {
	now func() time.Time
}

// NewExtractor creates an extractor using the given clock. A nil clock means
// time.Now.
func NewExtractor(now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	return &Extractor{now: now}
}

// Extract computes the feature vector for a user from their recent events
// and devices. Empty collections produce the documented neutral defaults
// rather than errors: rates 0, avgDeviceRisk 50, networkRiskScore 30.
func (e *Extractor) Extract(u *user.User, events []*event.AccessEvent, devices []*device.Device) values.FeatureVector {
	now := e.now()

	var (
		total      = len(events)
		failed     int
		night      int
		last24h    int
		netRiskSum float64
		countries  = make(map[string]struct{})
	)

	cutoff := now.Add(-24 * time.Hour)
	for _, ev := range events {
		if !ev.Success {
			failed++
		}
		if ev.HourOfDay < nightStartHour || ev.HourOfDay > nightEndHour {
			night++
		}
		if ev.Timestamp.After(cutoff) {
			last24h++
		}
		netRiskSum += networkRiskWeight(ev.NetworkType)
		if ev.Country != "" {
			countries[ev.Country] = struct{}{}
		}
	}

	failedRate := 0.0
	nightRate := 0.0
	networkRisk := defaultNetworkRisk
	if total > 0 {
		failedRate = float64(failed) / float64(total)
		nightRate = float64(night) / float64(total)
		networkRisk = netRiskSum / float64(total)
	}

	var (
		deviceRiskSum float64
		unpatched     int
		avDisabled    int
	)
	for _, d := range devices {
		deviceRiskSum += d.RiskScore
		if !d.Patched {
			unpatched++
		}
		if !d.AntivirusEnabled {
			avDisabled++
		}
	}

	avgDeviceRisk := neutralDeviceRisk
	unpatchedRatio := 0.0
	avDisabledRatio := 0.0
	if len(devices) > 0 {
		avgDeviceRisk = deviceRiskSum / float64(len(devices))
		unpatchedRatio = float64(unpatched) / float64(len(devices))
		avDisabledRatio = float64(avDisabled) / float64(len(devices))
	}

	secondsSinceLogin := 0.0
	if u != nil && u.LastLoginAt != nil {
		secondsSinceLogin = now.Sub(*u.LastLoginAt).Seconds()
	}

	return values.FeatureVector{
		FailedLoginRate:        failedRate,
		NightAccessRate:        nightRate,
		LoginFrequency24h:      float64(last24h),
		AvgDeviceRisk:          avgDeviceRisk,
		UnpatchedDeviceRatio:   unpatchedRatio,
		AntivirusDisabledRatio: avDisabledRatio,
		NetworkRiskScore:       networkRisk,
		LocationChangeScore:    float64(len(countries)) * 10,
		// Night access is the single anomaly signal source; the score is
		// its percentage rendering so both stay consistent.
		TimeAnomalyScore:      nightRate * 100,
		SecondsSinceLastLogin: secondsSinceLogin,
	}.Clamped()
}
