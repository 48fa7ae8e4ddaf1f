package handlers

import (
	"context"
	"encoding/json"
	"net/mail"
	"time"

	"go.uber.org/zap"

	"github.com/JacobArthurs/ecommerce-api/pkg/auth"
	"github.com/JacobArthurs/ecommerce-api/pkg/graph"
	"github.com/JacobArthurs/ecommerce-api/pkg/models"
	"github.com/JacobArthurs/ecommerce-api/pkg/repository"
)

type UserHandler struct {
	users  *repository.UserRepository
	cache  *repository.UserCache
	audit  *repository.AuditLogger
	logger *zap.Logger
}

func NewUserHandler(users *repository.UserRepository, cache *repository.UserCache, audit *repository.AuditLogger, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, cache: cache, audit: audit, logger: logger}
}

func (h *UserHandler) Register(d *graph.Dispatcher) {
	d.Register("registerUser", h.registerUser)
	d.Register("makeAdmin", h.makeAdmin)
	d.Register("removeAdmin", h.removeAdmin)
	d.Register("allUsers", h.allUsers)
	d.Register("userById", h.userByID)
	d.Register("searchUsers", h.searchUsers)
}

// UserView is the wire shape of a user: roles flattened to names, no
// password material.
type UserView struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Groups      []string  `json:"groups"`
	IsStaff     bool      `json:"isStaff"`
	IsSuperuser bool      `json:"isSuperuser"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toUserView(u *models.User) UserView {
	return UserView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Groups:      u.GroupNames(),
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
	}
}

func toUserViews(users []models.User) []UserView {
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, toUserView(&users[i]))
	}
	return views
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// registerUser is open to anonymous callers. New accounts get exactly
// the "user" role.
func (h *UserHandler) registerUser(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if !validEmail(args.Email) {
		return graph.Fail("Enter a valid email address."), nil
	}

	usernameTaken, err := h.users.UsernameExists(ctx, args.Username)
	if err != nil {
		return nil, err
	}
	if usernameTaken {
		return graph.Fail("Username already exists."), nil
	}

	emailTaken, err := h.users.EmailExists(ctx, args.Email)
	if err != nil {
		return nil, err
	}
	if emailTaken {
		return graph.Fail("Email already registered."), nil
	}

	hash, err := auth.HashPassword(args.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: args.Username,
		Email:    args.Email,
		Password: hash,
	}
	if err := h.users.Create(ctx, user, models.GroupUser); err != nil {
		return nil, err
	}

	h.audit.Record("register_user", user.ID, map[string]interface{}{"username": user.Username})
	return graph.OK("User registered successfully."), nil
}

func (h *UserHandler) makeAdmin(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return h.setRole(ctx, raw, models.GroupAdmin, "User added to admin group.")
}

func (h *UserHandler) removeAdmin(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	if err := auth.RequireRole(caller, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return h.setRole(ctx, raw, models.GroupUser, "User removed from admin group.")
}

// setRole replaces the target's role set with exactly the named group
// and drops the stale cache entry so refreshed tokens see it.
func (h *UserHandler) setRole(ctx context.Context, raw json.RawMessage, groupName, message string) (interface{}, error) {
	var args struct {
		UserID string `json:"userId"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	user, err := h.users.FindByID(ctx, args.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return graph.Fail("User not found."), nil
	}

	if err := h.users.ReplaceGroup(ctx, user, groupName); err != nil {
		return nil, err
	}
	if err := h.cache.Invalidate(ctx, user.Username); err != nil {
		h.logger.Warn("failed to invalidate user cache",
			zap.String("username", user.Username),
			zap.Error(err))
	}

	h.audit.Record("set_role", user.ID, map[string]interface{}{"group": groupName})
	return graph.OK(message), nil
}

func (h *UserHandler) allUsers(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	users, err := h.users.All(ctx)
	if err != nil {
		return nil, err
	}
	return toUserViews(users), nil
}

func (h *UserHandler) userByID(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	user, err := h.users.FindByID(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return toUserView(user), nil
}

func (h *UserHandler) searchUsers(ctx context.Context, caller *auth.Identity, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	users, err := h.users.Search(ctx, args.Username, args.Email)
	if err != nil {
		return nil, err
	}
	return toUserViews(users), nil
}
