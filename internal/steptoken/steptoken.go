// Package steptoken issues short-lived signed tokens binding a client to the
// next expected stage of its verification session. The handler returns one
// with every stage response and checks it on the following capture, which
// stops replays of earlier stage URLs.
package steptoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"idverify/pkg/domain"
	dErrors "idverify/pkg/domainerrors"
)

// Claims bind a session to its next expected step.
type Claims struct {
	SessionID string `json:"session_id"`
	NextStep  string `json:"next_step"`
	jwt.RegisteredClaims
}

type Issuer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

type Option func(*Issuer)

func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		i.ttl = ttl
	}
}

func New(signingKey string, opts ...Option) *Issuer {
	issuer := &Issuer{
		signingKey: []byte(signingKey),
		issuer:     "idverify",
		ttl:        35 * time.Minute,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer
}

// Issue signs a token naming the step the session expects next.
func (i *Issuer) Issue(sessionID domain.SessionID, nextStep string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sessionID.String(),
		NextStep:  nextStep,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(i.signingKey)
}

// Verify parses the token and checks it belongs to the given session.
func (i *Issuer) Verify(tokenString string, sessionID domain.SessionID) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "step token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid step token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid step token claims")
	}
	if claims.SessionID != sessionID.String() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "step token issued for a different session")
	}
	return claims, nil
}
