package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigner(t *testing.T) {
	_, err := NewSigner("", time.Hour)
	assert.Error(t, err)

	s, err := NewSigner("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, s.TTL())
}

func TestSigner_RoundTrip(t *testing.T) {
	s, err := NewSigner("secret", time.Hour)
	require.NoError(t, err)

	token, expiresAt, err := s.Issue("alice@example.com", "rx-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Owner)
	assert.Equal(t, "rx-1", claims.PrescriptionID)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestSigner_IssueRequiresSubject(t *testing.T) {
	s, err := NewSigner("secret", time.Hour)
	require.NoError(t, err)

	_, _, err = s.Issue("", "rx-1")
	assert.Error(t, err)
	_, _, err = s.Issue("alice@example.com", "")
	assert.Error(t, err)
}

func TestSigner_Rejects(t *testing.T) {
	s, err := NewSigner("secret", time.Hour)
	require.NoError(t, err)
	valid, _, err := s.Issue("alice@example.com", "rx-1")
	require.NoError(t, err)

	other, err := NewSigner("other-secret", time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.Issue("alice@example.com", "rx-1")
	require.NoError(t, err)

	expiredSigner, err := NewSigner("secret", time.Hour)
	require.NoError(t, err)
	expiredSigner.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	expired, _, err := expiredSigner.Issue("alice@example.com", "rx-1")
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Owner:            "alice@example.com",
		PrescriptionID:   "rx-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Owner:            "alice@example.com",
		PrescriptionID:   "rx-1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "tampered payload", token: tampered},
		{name: "signed with another secret", token: foreign},
		{name: "expired", token: expired},
		{name: "wrong issuer", token: wrongIssuer},
		{name: "none algorithm", token: noneAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
