package handlers

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/JacobArthurs/ecommerce-api/pkg/auth"
	"github.com/JacobArthurs/ecommerce-api/pkg/graph"
	"github.com/JacobArthurs/ecommerce-api/pkg/repository"
)

// AuthHandler implements the token surface: obtain, verify, refresh.
type AuthHandler struct {
	users  *repository.UserRepository
	cache  *repository.UserCache
	tokens *auth.TokenManager
	logger *zap.Logger
}

func NewAuthHandler(users *repository.UserRepository, cache *repository.UserCache, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, cache: cache, tokens: tokens, logger: logger}
}

func (h *AuthHandler) Register(d *graph.Dispatcher) {
	d.Register("tokenAuth", h.tokenAuth)
	d.Register("verifyToken", h.verifyToken)
	d.Register("refreshToken", h.refreshToken)
}

// TokenPayload is returned by tokenAuth and refreshToken.
// RefreshExpiresIn is the unix time the refresh window closes.
type TokenPayload struct {
	Token            string                 `json:"token"`
	Payload          map[string]interface{} `json:"payload"`
	RefreshExpiresIn int64                  `json:"refreshExpiresIn"`
}

type VerifyPayload struct {
	Payload map[string]interface{} `json:"payload"`
}

func (h *AuthHandler) tokenAuth(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	user, err := h.users.FindByUsername(ctx, args.Username)
	if err != nil {
		return nil, err
	}
	// Identical failure for unknown user and wrong password.
	if user == nil || !auth.CheckPassword(user.Password, args.Password) {
		return nil, auth.ErrInvalidCredentials
	}

	token, claims, err := h.tokens.Issue(user.ID, user.Username, user.GroupNames())
	if err != nil {
		return nil, err
	}

	if err := h.cache.Put(ctx, &repository.CachedUser{
		ID:       user.ID,
		Username: user.Username,
		Groups:   user.GroupNames(),
	}); err != nil {
		h.logger.Warn("failed to cache user", zap.String("username", user.Username), zap.Error(err))
	}

	return TokenPayload{
		Token:            token,
		Payload:          claims.Payload(),
		RefreshExpiresIn: h.tokens.RefreshDeadline(claims),
	}, nil
}

func (h *AuthHandler) verifyToken(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Token string `json:"token"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	claims, err := h.tokens.Verify(args.Token)
	if err != nil {
		return nil, err
	}
	return VerifyPayload{Payload: claims.Payload()}, nil
}

// refreshToken re-resolves the subject's current roles rather than
// trusting the stale groups claim, so a role change takes effect on the
// next refresh.
func (h *AuthHandler) refreshToken(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Token string `json:"token"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	claims, err := h.tokens.VerifyForRefresh(args.Token)
	if err != nil {
		return nil, err
	}

	groups, err := h.resolveGroups(ctx, claims.Username)
	if err != nil {
		return nil, err
	}

	token, newClaims, err := h.tokens.Reissue(claims.UserID, claims.Username, groups, claims.OrigIat)
	if err != nil {
		return nil, err
	}

	return TokenPayload{
		Token:            token,
		Payload:          newClaims.Payload(),
		RefreshExpiresIn: h.tokens.RefreshDeadline(newClaims),
	}, nil
}

func (h *AuthHandler) resolveGroups(ctx context.Context, username string) ([]string, error) {
	if cached, err := h.cache.Get(ctx, username); err == nil && cached != nil {
		return cached.Groups, nil
	}

	user, err := h.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Subject deleted since issuance; the token no longer maps to
		// an account.
		return nil, auth.ErrInvalidToken
	}

	if err := h.cache.Put(ctx, &repository.CachedUser{
		ID:       user.ID,
		Username: user.Username,
		Groups:   user.GroupNames(),
	}); err != nil {
		h.logger.Warn("failed to cache user", zap.String("username", username), zap.Error(err))
	}
	return user.GroupNames(), nil
}
