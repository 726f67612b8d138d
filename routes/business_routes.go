package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tablekart/merchant_backend/controllers"
	"github.com/tablekart/merchant_backend/middleware"
	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/session"
)

// RegisterBusinessRoutes wires the onboarding detail endpoints and the
// admin approval endpoint under /api/business.
func RegisterBusinessRoutes(e *echo.Echo, business *controllers.BusinessController, approval *controllers.ApprovalController, store session.Store, users repositories.UserRepository, verified repositories.VerifiedUserRepository) {
	group := e.Group("/api/business")

	group.POST("/add-info", business.AddBusinessInfo,
		middleware.RequireSignupStep(store, users, models.StepInfoPending))
	group.GET("/info", business.GetBusinessInfo,
		middleware.RequireSignupStep(store, users, models.StepInfoPending))

	group.POST("/submit-documents", business.SubmitBusinessDocuments,
		middleware.RequireSignupStep(store, users, models.StepDocsPending))
	group.GET("/documents/info", business.GetBusinessDocuments,
		middleware.RequireSignupStep(store, users, models.StepSubmitted))

	group.DELETE("/delete-user", business.DeleteUser,
		middleware.RequireSignupStep(store, users, models.StepOTPPending))

	group.POST("/approve-user", approval.ApproveUser,
		middleware.RequireAuth(verified), middleware.RequireAdmin())
}
