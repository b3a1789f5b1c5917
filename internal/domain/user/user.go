package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/domain/values"
)

// User is the protected-service account being continuously scored. The core
// reads lastLoginAt for extraction and writes trustScore/currentRiskLevel
// back after every scoring pass.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`

	TrustScore       float64          `json:"trust_score"`
	CurrentRiskLevel values.RiskLevel `json:"current_risk_level"`

	AccountLocked       bool `json:"account_locked"`
	FailedLoginAttempts int  `json:"failed_login_attempts"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewUser creates a user with a neutral starting posture: medium risk until
// the first scoring pass says otherwise.
func NewUser(email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email: %q", email)
	}

	now := time.Now()
	return &User{
		ID:               uuid.New(),
		Email:            email,
		TrustScore:       50,
		CurrentRiskLevel: values.RiskLevelMedium,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ApplyScore records the outcome of a scoring pass on the entity.
func (u *User) ApplyScore(score float64, risk values.RiskLevel) {
	u.TrustScore = score
	u.CurrentRiskLevel = risk
	u.UpdatedAt = time.Now()
}

// Unlock clears the account-lock side effects an external policy layer may
// have applied after repeated failures or a HIGH risk verdict.
func (u *User) Unlock() {
	u.AccountLocked = false
	u.FailedLoginAttempts = 0
	u.UpdatedAt = time.Now()
}
