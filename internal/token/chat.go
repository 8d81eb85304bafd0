package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openclaw/agent-console-go/internal/config"
	apperrors "github.com/openclaw/agent-console-go/internal/errors"
)

// Claims binds a chat token to one gateway agent id.
type Claims struct {
	AgentID string `json:"agentId"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies the short-lived HS256 tokens the client presents
// in the WebSocket identify handshake. Tokens are never persisted and cannot
// be revoked before expiry.
type Issuer struct {
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{
		secret: secret,
		ttl:    config.ChatTokenTTL,
		now:    time.Now,
	}
}

// WithTTL overrides the default one hour lifetime.
func (i *Issuer) WithTTL(ttl time.Duration) *Issuer {
	i.ttl = ttl
	return i
}

// WithClock overrides the time source, for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue returns a signed token asserting agentID for the configured TTL.
func (i *Issuer) Issue(agentID string) (string, error) {
	if i.secret == "" {
		return "", apperrors.Configuration("AUTH_SECRET is not set")
	}
	if agentID == "" {
		return "", apperrors.MissingRequired("agentId")
	}

	issuedAt := i.now()
	claims := Claims{
		AgentID: agentID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.ttl)),
			Subject:   agentID,
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(i.secret))
}

// Verify checks signature and expiry and returns the bound agent id. Every
// failure mode collapses into the same invalid-token error so callers cannot
// be used as a verification oracle.
func (i *Issuer) Verify(tokenString string) (string, error) {
	if i.secret == "" {
		return "", apperrors.Configuration("AUTH_SECRET is not set")
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(i.secret), nil
	},
		jwt.WithLeeway(config.ChatTokenLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", apperrors.InvalidToken()
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.AgentID == "" {
		return "", apperrors.InvalidToken()
	}
	return claims.AgentID, nil
}
