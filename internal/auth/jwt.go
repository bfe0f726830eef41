package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the admin client can tell about the signed-in operator
// from the bearer token alone.
type Identity struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (id *Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}

// subjectKeys are the claim names backends commonly use for the user ID.
var subjectKeys = []string{"sub", "id", "_id", "userId", "user_id"}

// DecodeClaims reads the token's claims without verifying the signature.
// The client never holds the signing key; the backend stays authoritative.
func DecodeClaims(token string) (*Identity, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	id := &Identity{}
	for _, key := range subjectKeys {
		if v, ok := claims[key].(string); ok && v != "" {
			id.Subject = v
			break
		}
	}
	id.Email, _ = claims["email"].(string)
	id.Role, _ = claims["role"].(string)

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("reading expiry: %w", err)
	}
	if exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}
