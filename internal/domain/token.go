package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApiToken is a revocable API credential. Only the hash is stored;
// the prefix supports lookup without the plaintext token.
type ApiToken struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	TokenHash   string     `json:"token_hash"`
	TokenPrefix string     `json:"token_prefix"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Revoked reports whether the token has been revoked.
func (t *ApiToken) Revoked() bool { return t.RevokedAt != nil }

// Expired reports whether the token is past its expiry.
func (t *ApiToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}
