// Package token signs the opaque handle a client uses to continue a
// credential reset session.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "idmcore/pkg/domain"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/requestcontext"
)

const audience = "credential-reset"

// Claims carries the session id as the subject.
type Claims struct {
	jwt.RegisteredClaims
}

// Signer issues and validates HS256 session tokens.
type Signer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

func NewSigner(signingKey, issuer string, ttl time.Duration) *Signer {
	return &Signer{signingKey: []byte(signingKey), issuer: issuer, ttl: ttl}
}

func (s *Signer) Issue(ctx context.Context, sessionID id.ResetSessionID) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := requestcontext.Now(ctx)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{audience},
			ID:        hex.EncodeToString(b),
		},
	})
	return t.SignedString(s.signingKey)
}

// Parse validates a token against the request time and returns its session id.
func (s *Signer) Parse(ctx context.Context, tokenString string) (id.ResetSessionID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithAudience(audience),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(func() time.Time { return requestcontext.Now(ctx) }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.ResetSessionID{}, dErrors.New(dErrors.CodeExpired, "reset session expired")
		}
		return id.ResetSessionID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid reset session")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return id.ResetSessionID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid reset session")
	}
	sessionID, err := id.ParseResetSessionID(claims.Subject)
	if err != nil {
		return id.ResetSessionID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid reset session")
	}
	return sessionID, nil
}
