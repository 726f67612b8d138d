// middleware/signup_flow.go
package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/session"
)

const signupUserContextKey = "signupUser"

// RequireSignupStep is the step gate applied before every step-scoped
// operation. It loads the account behind the session, compares the
// authoritative signup step against the required floor, and refreshes the
// session's cached step from the account record so stale session state
// heals itself. A step at or above the floor always passes.
func RequireSignupStep(store session.Store, users repositories.UserRepository, requiredStep int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := GetSession(c)
			if sess == nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Success: false,
					Message: "No active session. Please start again.",
				})
			}

			userID, err := primitive.ObjectIDFromHex(sess.UserID)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Success: false,
					Message: "No active session. Please start again.",
				})
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Success: false,
					Message: "User not found.",
				})
			}

			// Self-healing refresh: the account record is authoritative.
			if sess.CurrentSignupStep != user.CurrentSignupStep {
				sess.CurrentSignupStep = user.CurrentSignupStep
				if err := store.Save(c.Request().Context(), sess); err != nil {
					c.Logger().Errorf("failed to refresh session step: %v", err)
				}
			}

			if requiredStep > user.CurrentSignupStep {
				return c.JSON(http.StatusForbidden, models.Response{
					Success: false,
					Message: fmt.Sprintf("Not allowed. You must complete step %d first.", user.CurrentSignupStep),
				})
			}

			c.Set(signupUserContextKey, user)
			return next(c)
		}
	}
}

// GetSignupUser returns the account loaded by RequireSignupStep.
func GetSignupUser(c echo.Context) *models.User {
	user, _ := c.Get(signupUserContextKey).(*models.User)
	return user
}
