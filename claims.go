package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is what a credential is issued for
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Principal is the verified payload of a credential. It is a value: nothing
// downstream of the guard may mutate it.
type Principal struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity returns the identity the credential was issued for
func (p Principal) Identity() Identity {
	return Identity{ID: p.ID, Email: p.Email, Role: p.Role}
}

// HasRole reports whether the principal holds role
func (p Principal) HasRole(role Role) bool {
	return p.Role == role
}

// JWTClaims is the wire shape of a credential
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	Email    string `json:"email,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued at time
func (c *JWTClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// principal converts verified claims into a Principal, rejecting roles outside
// the closed set.
func (c *JWTClaims) principal() (*Principal, error) {
	role, err := ParseRole(c.UserRole)
	if err != nil {
		return nil, err
	}

	id := c.UserID()
	if id == "" || (c.UID != "" && c.Subject != "" && c.UID != c.Subject) {
		return nil, invalidCredential()
	}

	return &Principal{
		ID:        id,
		Email:     c.Email,
		Role:      role,
		IssuedAt:  c.Issued(),
		ExpiresAt: c.Expires(),
	}, nil
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
