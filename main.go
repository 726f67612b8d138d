package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/tablekart/merchant_backend/config"
	"github.com/tablekart/merchant_backend/controllers"
	"github.com/tablekart/merchant_backend/middleware"
	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/routes"
	"github.com/tablekart/merchant_backend/services"
	"github.com/tablekart/merchant_backend/session"
)

const otpCleanupInterval = 10 * time.Minute

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// newValidator reports field names by their json tag so validation errors
// match the wire format.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	seedAdmin := flag.Bool("seed-admin", false, "create the admin account from ADMIN_USERNAME/ADMIN_PASSWORD/ADMIN_EMAIL and exit")
	flag.Parse()

	client := config.ConnectDB()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	users := repositories.NewUserRepository(client)
	verified := repositories.NewVerifiedUserRepository(client)

	if *seedAdmin {
		runSeedAdmin(users, verified)
		return
	}

	redisClient := config.ConnectRedis()
	defer config.CloseRedis()

	var sessions session.Store
	if redisClient != nil {
		sessions = session.NewRedisStore(redisClient)
	} else {
		sessions = session.NewMemoryStore()
	}

	mailer := services.NewSMTPMailer()
	otp := services.NewOTPService(users, mailer)
	signup := services.NewSignupService(users, otp)
	passwords := services.NewPasswordService(users, otp)
	approvals := services.NewApprovalService(users, verified)

	authController := controllers.NewAuthController(users, verified, signup, sessions)
	passwordController := controllers.NewPasswordController(passwords)
	businessController := controllers.NewBusinessController(signup, sessions)
	approvalController := controllers.NewApprovalController(approvals)

	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: newValidator()}

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{}))
	e.Use(middleware.NewRateLimiter().RateLimit())
	e.Use(middleware.LoadSession(sessions))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.Response{
			Success: true,
			Message: "Merchant onboarding API is running",
		})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	routes.RegisterAuthRoutes(e, authController, passwordController, sessions, users)
	routes.RegisterBusinessRoutes(e, businessController, approvalController, sessions, users, verified)

	go middleware.CleanupBlacklist()
	go cleanupExpiredOTPs(users)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on port %s", port)
	if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server stopped: %v", err)
	}
}

// runSeedAdmin provisions the initial admin login outside the HTTP
// surface, so no approval endpoint has to be left unauthenticated.
func runSeedAdmin(users repositories.UserRepository, verified repositories.VerifiedUserRepository) {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	email := os.Getenv("ADMIN_EMAIL")
	if username == "" || password == "" || email == "" {
		log.Fatal("ADMIN_USERNAME, ADMIN_PASSWORD and ADMIN_EMAIL must be set to seed an admin")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	approvals := services.NewApprovalService(users, verified)
	admin, err := approvals.SeedAdmin(ctx, username, password, email)
	if err != nil {
		if field, ok := repositories.IsDuplicateKey(err); ok {
			log.Fatalf("Admin already exists (duplicate %s)", field)
		}
		log.Fatalf("Failed to seed admin: %v", err)
	}
	log.Printf("Admin %s created with id %s", admin.Username, admin.ID.Hex())
}

func cleanupExpiredOTPs(users repositories.UserRepository) {
	ticker := time.NewTicker(otpCleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		cleared, err := users.ClearExpiredOTPs(ctx)
		cancel()
		if err != nil {
			log.Printf("Expired OTP cleanup failed: %v", err)
			continue
		}
		if cleared > 0 {
			log.Printf("Cleared %d expired OTP challenges", cleared)
		}
	}
}
