package auth

import "errors"

// Canonical role names. A user holds exactly the roles assigned to them;
// role mutations replace the set rather than adding to it.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Sentinel errors for the authorization taxonomy. These surface as
// top-level transport errors; their text is part of the API contract.
var (
	ErrAuthenticationRequired = errors.New("You do not have permission to perform this action. Please log in")
	ErrPermissionDenied       = errors.New("You do not have permission to perform this action")
	ErrInvalidCredentials     = errors.New("Please enter valid credentials")
	ErrInvalidToken           = errors.New("Error decoding signature")
)

// Identity is the authenticated caller, resolved from a verified token.
// A nil *Identity means the caller is anonymous. Groups are the role
// names captured at token issuance, not re-derived per request.
type Identity struct {
	UserID   string
	Username string
	Groups   []string
}

func (i *Identity) HasRole(name string) bool {
	if i == nil {
		return false
	}
	for _, g := range i.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// RequireAuth gates an operation on any authenticated identity.
func RequireAuth(caller *Identity) error {
	if caller == nil {
		return ErrAuthenticationRequired
	}
	return nil
}

// RequireRole gates an operation on a role. Anonymous callers fail with
// the authentication error, authenticated callers without the role fail
// with the permission error.
func RequireRole(caller *Identity, role string) error {
	if caller == nil {
		return ErrAuthenticationRequired
	}
	if !caller.HasRole(role) {
		return ErrPermissionDenied
	}
	return nil
}
