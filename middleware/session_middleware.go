// middleware/session_middleware.go
package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tablekart/merchant_backend/session"
)

const sessionContextKey = "signupSession"

// LoadSession resolves the session cookie into an explicit session object on
// the request context. Requests without a live session pass through; the
// step gate and session-scoped handlers enforce presence.
func LoadSession(store session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(session.CookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			sess, err := store.Get(c.Request().Context(), cookie.Value)
			if err != nil {
				// Stale cookie; let the client drop it.
				ClearSessionCookie(c)
				return next(c)
			}

			c.Set(sessionContextKey, sess)
			return next(c)
		}
	}
}

// GetSession returns the session loaded for this request, or nil.
func GetSession(c echo.Context) *session.Session {
	sess, _ := c.Get(sessionContextKey).(*session.Session)
	return sess
}

// SetSession attaches a session to the request context after creation.
func SetSession(c echo.Context, sess *session.Session) {
	c.Set(sessionContextKey, sess)
}

// IssueSessionCookie sets the session cookie on the response.
func IssueSessionCookie(c echo.Context, sess *session.Session) {
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie instructs the client to discard the session cookie.
func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
