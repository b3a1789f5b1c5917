package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AccessEvent is one observed access attempt against the protected service.
type AccessEvent struct {
	ID       uuid.UUID  `json:"id"`
	UserID   uuid.UUID  `json:"user_id"`
	DeviceID *uuid.UUID `json:"device_id,omitempty"`

	IPAddress   string      `json:"ip_address"`
	NetworkType NetworkType `json:"network_type"`
	Country     string      `json:"country"`
	City        string      `json:"city"`
	HourOfDay   int         `json:"hour_of_day"` // 0-23, UTC
	Weekend     bool        `json:"weekend"`
	Resource    string      `json:"resource"`
	Success     bool        `json:"success"`

	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// NetworkType classifies the network path an event arrived over.
type NetworkType int

const (
	NetworkUnknown NetworkType = iota
	NetworkInternal
	NetworkVPN
	NetworkExternal
	NetworkTor
)

func (n NetworkType) String() string {
	switch n {
	case NetworkInternal:
		return "internal"
	case NetworkVPN:
		return "vpn"
	case NetworkExternal:
		return "external"
	case NetworkTor:
		return "tor"
	default:
		return "unknown"
	}
}

// ParseNetworkType maps a stored string to its NetworkType. Unrecognized
// values map to NetworkUnknown, which carries the default risk weight.
func ParseNetworkType(s string) NetworkType {
	switch s {
	case "internal":
		return NetworkInternal
	case "vpn":
		return NetworkVPN
	case "external":
		return NetworkExternal
	case "tor":
		return NetworkTor
	default:
		return NetworkUnknown
	}
}

// NewAccessEvent creates an access event stamped at the given time.
func NewAccessEvent(userID uuid.UUID, network NetworkType, country string, success bool, ts time.Time) (*AccessEvent, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user ID cannot be nil")
	}
	return &AccessEvent{
		ID:          uuid.New(),
		UserID:      userID,
		NetworkType: network,
		Country:     country,
		HourOfDay:   ts.UTC().Hour(),
		Weekend:     ts.UTC().Weekday() == time.Saturday || ts.UTC().Weekday() == time.Sunday,
		Success:     success,
		Timestamp:   ts,
		CreatedAt:   time.Now(),
	}, nil
}
