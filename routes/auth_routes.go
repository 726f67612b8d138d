package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tablekart/merchant_backend/controllers"
	"github.com/tablekart/merchant_backend/middleware"
	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/session"
)

// RegisterAuthRoutes wires the registration, OTP and login endpoints
// under /api/auth.
func RegisterAuthRoutes(e *echo.Echo, auth *controllers.AuthController, passwords *controllers.PasswordController, store session.Store, users repositories.UserRepository) {
	group := e.Group("/api/auth")

	group.POST("/register", auth.Register)
	group.POST("/login", auth.Login)
	group.POST("/logout", auth.Logout)

	group.POST("/verify-otp", auth.VerifyOTP,
		middleware.RequireSignupStep(store, users, models.StepOTPPending))
	group.POST("/resend-otp", auth.ResendOTP,
		middleware.RequireSignupStep(store, users, models.StepOTPPending))

	group.GET("/user-info", auth.GetUserInfo,
		middleware.RequireSignupStep(store, users, models.StepRegistered))

	group.POST("/forgot-password", passwords.ForgotPassword)
	group.POST("/reset-password", passwords.ResetPassword)
}
