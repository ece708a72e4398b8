package auth

import (
	"github.com/google/uuid"
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone     AuthType = "none"
	AuthTypeSession  AuthType = "session"
	AuthTypeBearer   AuthType = "bearer"
	AuthTypeSupabase AuthType = "supabase"
)

// DefaultUserID is used when authentication is disabled.
var DefaultUserID = uuid.Nil.String()

// Identity is the authenticated caller. Services take it as an explicit
// argument instead of reading it from request state.
type Identity struct {
	UserID   string
	Username string
	Method   AuthType
}

// AnonymousIdentity is the identity used in "none" mode.
func AnonymousIdentity() Identity {
	return Identity{UserID: DefaultUserID, Method: AuthTypeNone}
}

// IsZero reports whether no user is attached.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}
