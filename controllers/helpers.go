package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/tablekart/merchant_backend/middleware"
	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/session"
)

const requestTimeout = 10 * time.Second

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// fieldErrors converts validator failures into the response envelope's
// error list. Field names are reported in their JSON form.
func fieldErrors(err error) []models.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Field: "request", Message: "Invalid request body."}}
	}
	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{
			Field:   jsonFieldName(fe.Field()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func jsonFieldName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func fieldMessage(fe validator.FieldError) string {
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", field)
	case "required_if":
		return fmt.Sprintf("%s is required.", field)
	case "email":
		return "A valid email address is required."
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters.", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain only digits.", field)
	case "eq":
		if field == "termsAgreed" {
			return "You must agree to the terms and conditions."
		}
		return fmt.Sprintf("%s has an invalid value.", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid.", field)
	}
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, models.Response{
		Success: false,
		Message: "Validation failed.",
		Errors:  fieldErrors(err),
	})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, models.Response{
		Success: false,
		Message: "Invalid request body.",
	})
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, models.Response{
		Success: false,
		Message: message,
	})
}

// syncSessionStep keeps the signup cookie session in line with the
// user's persisted step after a successful transition.
func syncSessionStep(c echo.Context, store session.Store, step int) {
	sess := middleware.GetSession(c)
	if sess == nil || sess.CurrentSignupStep == step {
		return
	}
	sess.CurrentSignupStep = step
	ctx, cancel := requestContext()
	defer cancel()
	if err := store.Save(ctx, sess); err != nil {
		c.Logger().Errorf("failed to refresh session step: %v", err)
	}
}
