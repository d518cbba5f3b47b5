package auth

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SessionName is the cookie carrying the signed session.
const SessionName = "academy_session"

const sessionUserKey = "user_id"

// NewSessionStore builds the signed cookie store used for browser logins.
func NewSessionStore(secret string, maxAge time.Duration, secure bool) sessions.Store {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// Sessions installs the session middleware.
func Sessions(store sessions.Store) gin.HandlerFunc {
	return sessions.Sessions(SessionName, store)
}

// StartSession replaces whatever the session held with userID.
func StartSession(c *gin.Context, userID int64) error {
	s := sessions.Default(c)
	s.Clear()
	s.Set(sessionUserKey, userID)
	return s.Save()
}

// EndSession clears the session.
func EndSession(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	return s.Save()
}

func sessionUserID(c *gin.Context) (int64, bool) {
	id, ok := sessions.Default(c).Get(sessionUserKey).(int64)
	return id, ok && id > 0
}
