package identity

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CallerClaims are the JWT claims carried by a caller token. Subject is the
// caller principal.
type CallerClaims struct {
	jwt.RegisteredClaims
	Type string `json:"type"` // always "caller"
}

// Principal returns the authenticated caller.
func (c *CallerClaims) Principal() string { return c.Subject }

// CallerTokenIssuer issues and verifies caller tokens signed with RS256.
type CallerTokenIssuer struct {
	key    *rsa.PrivateKey
	pub    *rsa.PublicKey
	issuer string
	ttl    time.Duration
}

// NewCallerTokenIssuer creates a CallerTokenIssuer. A zero ttl means one hour.
func NewCallerTokenIssuer(key *rsa.PrivateKey, issuer string, ttl time.Duration) *CallerTokenIssuer {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &CallerTokenIssuer{
		key:    key,
		pub:    &key.PublicKey,
		issuer: issuer,
		ttl:    ttl,
	}
}

// TTL returns the token lifetime.
func (t *CallerTokenIssuer) TTL() time.Duration { return t.ttl }

// Issue creates a signed caller token for principal.
func (t *CallerTokenIssuer) Issue(principal string) (string, error) {
	if principal == "" {
		return "", fmt.Errorf("principal is required")
	}
	now := time.Now().UTC()
	claims := CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   principal,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
		Type: "caller",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign caller token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a caller token, returning its claims.
func (t *CallerTokenIssuer) Verify(tokenStr string) (*CallerClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&CallerClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.pub, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify caller token: %w", err)
	}
	claims, ok := token.Claims.(*CallerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid caller token claims")
	}
	if claims.Type != "caller" || claims.Subject == "" {
		return nil, fmt.Errorf("not a caller token")
	}
	return claims, nil
}
