package controllers

import (
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/tablekart/merchant_backend/middleware"
	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/services"
	"github.com/tablekart/merchant_backend/session"
)

// BusinessController handles steps 3 and 4 of onboarding: business
// details and verification documents.
type BusinessController struct {
	signup   *services.SignupService
	sessions session.Store
	logger   *log.Logger
}

func NewBusinessController(signup *services.SignupService, sessions session.Store) *BusinessController {
	return &BusinessController{
		signup:   signup,
		sessions: sessions,
		logger:   log.New(os.Stdout, "[BUSINESS] ", log.LstdFlags),
	}
}

// AddBusinessInfo records brand details and advances the signup to step 4.
func (bc *BusinessController) AddBusinessInfo(c echo.Context) error {
	user := middleware.GetSignupUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Success: false,
			Message: "No active session. Please start again.",
		})
	}

	var req models.BusinessInfoRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := requestContext()
	defer cancel()

	updated, err := bc.signup.SubmitBusinessInfo(ctx, user.ID, &req)
	if err != nil {
		var stepErr *services.StepNotReachedError
		switch {
		case errors.As(err, &stepErr):
			return c.JSON(http.StatusForbidden, models.Response{
				Success: false,
				Message: stepErr.Error(),
			})
		case errors.Is(err, services.ErrOutletCount):
			return c.JSON(http.StatusBadRequest, models.Response{
				Success: false,
				Message: "Validation failed.",
				Errors: []models.FieldError{{
					Field:   "numberOfOutlets",
					Message: "Multiple outlets requires a count of at least 2.",
				}},
			})
		}
		bc.logger.Printf("business info submit failed: %v", err)
		return internalError(c, "Failed to save business information.")
	}

	syncSessionStep(c, bc.sessions, updated.CurrentSignupStep)

	return c.JSON(http.StatusCreated, models.Response{
		Success:           true,
		Message:           "Business information added successfully.",
		CurrentSignupStep: updated.CurrentSignupStep,
	})
}

// GetBusinessInfo returns the business details saved at step 3.
func (bc *BusinessController) GetBusinessInfo(c echo.Context) error {
	user := middleware.GetSignupUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Success: false,
			Message: "No active session. Please start again.",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Success:           true,
		Message:           "Business information fetched successfully.",
		BusinessInfo:      user.BusinessInfo,
		CurrentSignupStep: user.CurrentSignupStep,
	})
}

// SubmitBusinessDocuments records KYC documents and advances the signup
// to step 5, leaving the account awaiting admin approval.
func (bc *BusinessController) SubmitBusinessDocuments(c echo.Context) error {
	user := middleware.GetSignupUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Success: false,
			Message: "No active session. Please start again.",
		})
	}

	var req models.BusinessDocumentsRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := requestContext()
	defer cancel()

	updated, err := bc.signup.SubmitBusinessDocuments(ctx, user.ID, &req)
	if err != nil {
		var stepErr *services.StepNotReachedError
		if errors.As(err, &stepErr) {
			return c.JSON(http.StatusForbidden, models.Response{
				Success: false,
				Message: stepErr.Error(),
			})
		}
		if field, ok := repositories.IsDuplicateKey(err); ok && field == "panNumber" {
			return c.JSON(http.StatusBadRequest, models.Response{
				Success: false,
				Message: "PAN Number already exists.",
			})
		}
		bc.logger.Printf("business documents submit failed: %v", err)
		return internalError(c, "Failed to save business documents.")
	}

	syncSessionStep(c, bc.sessions, updated.CurrentSignupStep)

	return c.JSON(http.StatusCreated, models.Response{
		Success:           true,
		Message:           "Business documents submitted successfully.",
		CurrentSignupStep: updated.CurrentSignupStep,
	})
}

// GetBusinessDocuments returns the documents saved at step 4.
func (bc *BusinessController) GetBusinessDocuments(c echo.Context) error {
	user := middleware.GetSignupUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Success: false,
			Message: "No active session. Please start again.",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Success:           true,
		Message:           "Business documents fetched successfully.",
		BusinessDocuments: user.BusinessDocuments,
		CurrentSignupStep: user.CurrentSignupStep,
	})
}

// DeleteUser withdraws an in-progress registration and destroys its session.
func (bc *BusinessController) DeleteUser(c echo.Context) error {
	user := middleware.GetSignupUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Success: false,
			Message: "No active session. Please start again.",
		})
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := bc.signup.Withdraw(ctx, user.ID); err != nil {
		var stepErr *services.StepNotReachedError
		if errors.As(err, &stepErr) {
			return c.JSON(http.StatusForbidden, models.Response{
				Success: false,
				Message: stepErr.Error(),
			})
		}
		bc.logger.Printf("withdraw failed: %v", err)
		return internalError(c, "Failed to delete user.")
	}

	if sess := middleware.GetSession(c); sess != nil {
		if err := bc.sessions.Delete(ctx, sess.ID); err != nil {
			bc.logger.Printf("session delete failed: %v", err)
		}
	}
	middleware.ClearSessionCookie(c)

	return c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "User deleted successfully.",
	})
}
