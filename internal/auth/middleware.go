package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"academy/internal/identity"
)

const userKey = "current_user"

// UserLoader fetches accounts by id.
type UserLoader interface {
	Get(ctx context.Context, id int64) (*identity.User, error)
}

// Gate resolves the caller from the session cookie or a bearer token.
type Gate struct {
	users      UserLoader
	signingKey string
	issuer     string
	log        zerolog.Logger
}

func NewGate(users UserLoader, signingKey, issuer string, log zerolog.Logger) *Gate {
	return &Gate{users: users, signingKey: signingKey, issuer: issuer, log: log}
}

// Identify attaches the current user when the request carries valid credentials. It never rejects;
// RequireUser and RequireAdmin do that. A session pointing at a deleted or inactive account is cleared.
func (g *Gate) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := g.bearerUserID(c); ok {
			if !g.attach(c, id) {
				return
			}
			c.Next()
			return
		}

		if id, ok := sessionUserID(c); ok {
			if !g.attach(c, id) {
				return
			}
			if _, found := CurrentUser(c); !found {
				_ = EndSession(c)
			}
		}
		c.Next()
	}
}

// bearerUserID reads the account id from a valid bearer token. Malformed or expired tokens are
// ignored so public routes stay reachable.
func (g *Gate) bearerUserID(c *gin.Context) (int64, bool) {
	authz := c.GetHeader("Authorization")
	if authz == "" {
		return 0, false
	}
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		g.log.Debug().Msg("ignoring non-bearer authorization header")
		return 0, false
	}
	claims, err := Parse(strings.TrimSpace(authz[len("bearer "):]), g.signingKey, g.issuer)
	if err != nil {
		g.log.Debug().Err(err).Msg("ignoring invalid bearer token")
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil {
		g.log.Debug().Err(err).Msg("ignoring bearer token without user id")
		return 0, false
	}
	return id, true
}

// attach loads id and stores it on the context if active. It returns false after aborting on a store failure.
func (g *Gate) attach(c *gin.Context, id int64) bool {
	u, err := g.users.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		return true
	case err != nil:
		g.log.Error().Err(err).Int64("user_id", id).Msg("load current user")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return false
	}
	if u.Active {
		c.Set(userKey, u)
	}
	return true
}

// CurrentUser returns the user attached by Identify.
func CurrentUser(c *gin.Context) (*identity.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*identity.User)
	return u, ok && u != nil
}

// RequireUser rejects anonymous callers with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects anonymous callers with 401 and non-admins with 403.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !u.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
