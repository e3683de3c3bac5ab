// Package feed issues and verifies signed tokens for ICS subscription feeds.
//
// A feed token names one saved prescription of one owner. Calendar apps fetch
// /feeds/{token}/calendar.ics without a bearer token, so the token itself is
// the only authorisation for the feed.
package feed

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Issuer is the iss claim of every feed token.
const Issuer = "pillminder"

// DefaultTTL is the lifetime of a feed token when none is configured.
const DefaultTTL = 30 * 24 * time.Hour

// ErrInvalidToken is returned for malformed, tampered, expired or foreign tokens.
var ErrInvalidToken = errors.New("invalid feed token")

// Claims identifies the prescription a feed token grants access to.
type Claims struct {
	Owner          string `json:"own"`
	PrescriptionID string `json:"pid"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 feed tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a Signer. An empty secret is an error; a non-positive
// ttl falls back to DefaultTTL.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("feed secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Issue returns a token granting read access to owner's prescription.
func (s *Signer) Issue(owner, prescriptionID string) (string, time.Time, error) {
	if owner == "" || prescriptionID == "" {
		return "", time.Time{}, errors.New("owner and prescription id are required")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &Claims{
		Owner:          owner,
		PrescriptionID: prescriptionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   prescriptionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign feed token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses token and returns its claims. Every failure is reported as
// ErrInvalidToken, wrapped with the parser's reason.
func (s *Signer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyIssuer(Issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if claims.Owner == "" || claims.PrescriptionID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
