package token

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "idmcore/pkg/domain"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/requestcontext"
)

var (
	sessionID = id.ResetSessionID(uuid.New())
	issuedAt  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	signer    = NewSigner("test-signing-key", "idmcore", 15*time.Minute)
)

func at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func TestIssueAndParse(t *testing.T) {
	tok, err := signer.Issue(at(issuedAt), sessionID)
	require.NoError(t, err)

	got, err := signer.Parse(at(issuedAt.Add(time.Minute)), tok)
	require.NoError(t, err)
	assert.Equal(t, sessionID, got)
}

func TestParseRejects(t *testing.T) {
	tok, err := signer.Issue(at(issuedAt), sessionID)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		_, err := signer.Parse(at(issuedAt.Add(16*time.Minute)), tok)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeExpired))
	})

	t.Run("other key", func(t *testing.T) {
		other := NewSigner("another-key", "idmcore", 15*time.Minute)
		_, err := other.Parse(at(issuedAt), tok)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("other issuer", func(t *testing.T) {
		other := NewSigner("test-signing-key", "elsewhere", 15*time.Minute)
		_, err := other.Parse(at(issuedAt), tok)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := signer.Parse(at(issuedAt), "not-a-token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("subject is not a session id", func(t *testing.T) {
		forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "idmcore",
			Audience:  []string{audience},
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Minute)),
		}})
		raw, err := forged.SignedString([]byte("test-signing-key"))
		require.NoError(t, err)
		_, err = signer.Parse(at(issuedAt), raw)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
