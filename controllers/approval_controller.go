package controllers

import (
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tablekart/merchant_backend/middleware"
	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/services"
	"github.com/tablekart/merchant_backend/utils"
)

// ApprovalController exposes the admin-only promotion of a submitted
// signup into a verified account.
type ApprovalController struct {
	approvals *services.ApprovalService
	logger    *log.Logger
}

func NewApprovalController(approvals *services.ApprovalService) *ApprovalController {
	return &ApprovalController{
		approvals: approvals,
		logger:    log.New(os.Stdout, "[APPROVAL] ", log.LstdFlags),
	}
}

// ApproveUser promotes a step-5 provisional user to a verified account
// with the given login credentials.
func (ap *ApprovalController) ApproveUser(c echo.Context) error {
	admin := middleware.GetAuthUser(c)
	if admin == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Success: false,
			Message: "Unauthorized.",
		})
	}

	var req models.ApproveUserRequest
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

	vu, err := ap.approvals.Approve(ctx, userID, utils.SanitizeInput(req.Username), req.Password)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.Response{
				Success: false,
				Message: "User not found.",
			})
		case errors.Is(err, services.ErrNotSubmitted):
			return c.JSON(http.StatusBadRequest, models.Response{
				Success: false,
				Message: "User has not completed the signup process.",
			})
		}
		if field, ok := repositories.IsDuplicateKey(err); ok {
			message := "User is already approved."
			switch field {
			case "username":
				message = "Username already exists."
			case "email":
				message = "Email already exists."
			}
			return c.JSON(http.StatusBadRequest, models.Response{
				Success: false,
				Message: message,
			})
		}
		ap.logger.Printf("approval by %s failed: %v", admin.Username, err)
		return internalError(c, "Failed to approve user.")
	}

	ap.logger.Printf("user %s approved as %s by %s", req.UserID, vu.Username, admin.Username)

	return c.JSON(http.StatusCreated, models.Response{
		Success:  true,
		Message:  "User approved successfully.",
		ID:       vu.ID.Hex(),
		Username: vu.Username,
		Email:    vu.Email,
	})
}
