// internal/interfaces/http/middleware/identity.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/identity"
)

const (
	identityKey   = "identity"
	sessionKeyKey = "session_key"
)

// Identity resolves who owns the cart and orders of the request. An
// authenticated user wins; anonymous callers are identified by the session
// cookie, which is issued on first contact.
func Identity(cfg *config.Config) gin.HandlerFunc {
	name := cfg.Security.SessionCookieName
	maxAge := int(cfg.Security.SessionCookieTTL.Seconds())

	return func(c *gin.Context) {
		sessionKey, err := c.Cookie(name)
		if err != nil || uuid.Validate(sessionKey) != nil {
			sessionKey = ""
		}

		userID, authenticated := GetUserIDFromContext(c)
		if !authenticated && sessionKey == "" {
			sessionKey = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(name, sessionKey, maxAge, "/", "", cfg.Security.SecureCookies, true)
		}

		c.Set(sessionKeyKey, sessionKey)
		c.Set(identityKey, identity.Resolve(userID, sessionKey))
		c.Next()
	}
}

// GetIdentity returns the identity resolved for the request
func GetIdentity(c *gin.Context) identity.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(identity.Identity); ok {
			return id
		}
	}
	userID, _ := GetUserIDFromContext(c)
	return identity.Resolve(userID, "")
}

// GetSessionKey returns the anonymous session of the request, even when the
// caller is also authenticated
func GetSessionKey(c *gin.Context) string {
	return c.GetString(sessionKeyKey)
}
