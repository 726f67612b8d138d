package controllers

import (
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/services"
	"github.com/tablekart/merchant_backend/utils"
)

// PasswordController handles the OTP-based password reset flow for
// provisional signup accounts.
type PasswordController struct {
	passwords *services.PasswordService
	logger    *log.Logger
}

func NewPasswordController(passwords *services.PasswordService) *PasswordController {
	return &PasswordController{
		passwords: passwords,
		logger:    log.New(os.Stdout, "[RESET] ", log.LstdFlags),
	}
}

// ForgotPassword looks up the account by email or phone and emails a
// reset OTP.
func (pc *PasswordController) ForgotPassword(c echo.Context) error {
	var req models.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := requestContext()
	defer cancel()

	user, err := pc.passwords.RequestReset(ctx, utils.SanitizeInput(req.Identifier))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Success: false,
				Message: "User not found.",
			})
		}
		pc.logger.Printf("reset request failed: %v", err)
		return internalError(c, "Failed to send reset OTP.")
	}

	return c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "OTP sent to your email for password reset.",
		UserID:  user.ID.Hex(),
		Email:   utils.MaskEmail(user.Email),
	})
}

// ResetPassword verifies the reset OTP and replaces the password. The
// account drops back to step 1 and must verify again.
func (pc *PasswordController) ResetPassword(c echo.Context) error {
	var req models.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Message: "Invalid user ID.",
		})
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := pc.passwords.ConfirmReset(ctx, userID, req.OTP, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.Response{
				Success: false,
				Message: "User not found.",
			})
		case errors.Is(err, services.ErrOTPExpired):
			return c.JSON(http.StatusBadRequest, models.Response{
				Success: false,
				Message: "OTP has expired. Please request a new one.",
			})
		case errors.Is(err, services.ErrNoChallenge), errors.Is(err, services.ErrOTPMismatch):
			return c.JSON(http.StatusBadRequest, models.Response{
				Success: false,
				Message: "Invalid OTP.",
			})
		}
		pc.logger.Printf("reset confirm failed: %v", err)
		return internalError(c, "Failed to reset password.")
	}

	return c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Password reset successfully. Please register again to verify your account.",
	})
}
