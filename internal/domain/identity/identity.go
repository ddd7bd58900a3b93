// internal/domain/identity/identity.go
package identity

import (
	"fmt"
	"strings"

	"github.com/your-org/storefront-api/internal/pkg/apperrors"
)

// ErrIdentityRequired is returned when neither a user nor a session is known
var ErrIdentityRequired = apperrors.New(apperrors.CodeIdentityRequired, "user or session identity required")

// Identity is the owner of a cart or an order: an authenticated user or an
// anonymous session, never both. The zero value is the empty identity.
type Identity struct {
	userID     uint
	sessionKey string
}

// User returns the identity of an authenticated user
func User(id uint) Identity {
	return Identity{userID: id}
}

// Session returns the identity of an anonymous session
func Session(key string) Identity {
	return Identity{sessionKey: strings.TrimSpace(key)}
}

// Resolve prefers the authenticated user and falls back to the session key
func Resolve(userID uint, sessionKey string) Identity {
	if userID != 0 {
		return User(userID)
	}
	return Session(sessionKey)
}

// IsUser reports whether the identity is an authenticated user
func (i Identity) IsUser() bool {
	return i.userID != 0
}

// IsSession reports whether the identity is an anonymous session
func (i Identity) IsSession() bool {
	return i.userID == 0 && i.sessionKey != ""
}

// UserID returns the user id, or 0 for sessions
func (i Identity) UserID() uint {
	return i.userID
}

// SessionKey returns the session key, or "" for users
func (i Identity) SessionKey() string {
	if i.userID != 0 {
		return ""
	}
	return i.sessionKey
}

// Validate returns ErrIdentityRequired for the empty identity
func (i Identity) Validate() error {
	if !i.IsUser() && !i.IsSession() {
		return ErrIdentityRequired
	}
	return nil
}

// Key is a stable string form used for cache keys and logs
func (i Identity) Key() string {
	if i.IsUser() {
		return fmt.Sprintf("user:%d", i.userID)
	}
	return "session:" + i.sessionKey
}

func (i Identity) String() string {
	if i.Validate() != nil {
		return "anonymous"
	}
	return i.Key()
}

// Owner returns the nullable owner columns persisted on carts and orders
func (i Identity) Owner() (userID *uint, sessionKey *string) {
	if i.IsUser() {
		id := i.userID
		return &id, nil
	}
	if i.IsSession() {
		key := i.sessionKey
		return nil, &key
	}
	return nil, nil
}
