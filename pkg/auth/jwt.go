package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JacobArthurs/ecommerce-api/pkg/config"
)

// Claims is the token payload. Groups hold the subject's role names as
// they were at issuance; OrigIat pins the start of the refresh window
// across successive refreshes.
type Claims struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
	OrigIat  int64    `json:"origIat"`
	jwt.RegisteredClaims
}

// Payload flattens the claims into the wire shape returned by the
// authentication operations.
func (c *Claims) Payload() map[string]interface{} {
	aud := ""
	if len(c.Audience) > 0 {
		aud = c.Audience[0]
	}
	var exp int64
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Unix()
	}
	return map[string]interface{}{
		"userId":   c.UserID,
		"username": c.Username,
		"iss":      c.Issuer,
		"aud":      aud,
		"exp":      exp,
		"origIat":  c.OrigIat,
		"groups":   c.Groups,
	}
}

// TokenManager issues and validates HS256-signed tokens.
type TokenManager struct {
	secret     []byte
	issuer     string
	audience   string
	ttl        time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(cfg *config.JWTConfig) *TokenManager {
	return &TokenManager{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		ttl:        cfg.TTL,
		refreshTTL: cfg.RefreshTTL,
	}
}

// Issue signs a fresh token for the subject with the given role names.
func (m *TokenManager) Issue(userID, username string, groups []string) (string, *Claims, error) {
	return m.issue(userID, username, groups, time.Now().Unix())
}

// Reissue signs a new token with a fresh expiry while keeping the
// original issue time, so the refresh window does not slide.
func (m *TokenManager) Reissue(userID, username string, groups []string, origIat int64) (string, *Claims, error) {
	return m.issue(userID, username, groups, origIat)
}

func (m *TokenManager) issue(userID, username string, groups []string, origIat int64) (string, *Claims, error) {
	if groups == nil {
		groups = []string{}
	}
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Groups:   groups,
		OrigIat:  origIat,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return raw, claims, nil
}

// Verify validates the signature, expiry, issuer and audience and returns
// the payload unchanged. Any failure collapses to ErrInvalidToken.
func (m *TokenManager) Verify(raw string) (*Claims, error) {
	return m.parse(raw, false)
}

// VerifyForRefresh accepts tokens whose expiry has passed as long as the
// original issue time is still inside the refresh window.
func (m *TokenManager) VerifyForRefresh(raw string) (*Claims, error) {
	claims, err := m.parse(raw, true)
	if err != nil {
		return nil, err
	}
	if time.Now().After(time.Unix(claims.OrigIat, 0).Add(m.refreshTTL)) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshDeadline is the unix time after which the token can no longer be
// refreshed.
func (m *TokenManager) RefreshDeadline(claims *Claims) int64 {
	return claims.OrigIat + int64(m.refreshTTL/time.Second)
}

func (m *TokenManager) parse(raw string, skipExpiry bool) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
	}
	if skipExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
