package device

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Device is a user-owned endpoint whose posture feeds the feature extractor.
type Device struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	Name      string `json:"name"`
	OS        string `json:"os"`
	OSVersion string `json:"os_version"`

	TrustLevel       TrustLevel `json:"trust_level"`
	Patched          bool       `json:"patched"`
	AntivirusEnabled bool       `json:"antivirus_enabled"`
	RiskScore        float64    `json:"risk_score"` // [0,100]

	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type TrustLevel int

const (
	TrustLevelUnknown TrustLevel = iota
	TrustLevelManaged
	TrustLevelUnmanaged
	TrustLevelCompromised
)

func (t TrustLevel) String() string {
	switch t {
	case TrustLevelManaged:
		return "managed"
	case TrustLevelUnmanaged:
		return "unmanaged"
	case TrustLevelCompromised:
		return "compromised"
	default:
		return "unknown"
	}
}

// ParseTrustLevel maps a stored string back to its TrustLevel, defaulting
// to unknown.
func ParseTrustLevel(s string) TrustLevel {
	switch s {
	case "managed":
		return TrustLevelManaged
	case "unmanaged":
		return TrustLevelUnmanaged
	case "compromised":
		return TrustLevelCompromised
	default:
		return TrustLevelUnknown
	}
}

// NewDevice creates a device record with a validated risk score.
func NewDevice(userID uuid.UUID, name, os string, riskScore float64) (*Device, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user ID cannot be nil")
	}
	if riskScore < 0 || riskScore > 100 {
		return nil, fmt.Errorf("device risk score must be between 0 and 100, got %f", riskScore)
	}

	now := time.Now()
	return &Device{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		OS:         os,
		TrustLevel: TrustLevelUnknown,
		RiskScore:  riskScore,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
