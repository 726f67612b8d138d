package controllers

import (
	"errors"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tablekart/merchant_backend/middleware"
	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/services"
	"github.com/tablekart/merchant_backend/session"
	"github.com/tablekart/merchant_backend/utils"
)

const (
	maxLoginAttempts   = 5
	loginAttemptWindow = 15 * time.Minute
)

type loginAttempt struct {
	count       int
	lastAttempt time.Time
}

// AuthController handles registration, OTP verification and verified-user
// authentication.
type AuthController struct {
	users    repositories.UserRepository
	verified repositories.VerifiedUserRepository
	signup   *services.SignupService
	sessions session.Store
	logger   *log.Logger

	attemptsMu    sync.Mutex
	loginAttempts map[string]*loginAttempt
}

func NewAuthController(users repositories.UserRepository, verified repositories.VerifiedUserRepository, signup *services.SignupService, sessions session.Store) *AuthController {
	ac := &AuthController{
		users:         users,
		verified:      verified,
		signup:        signup,
		sessions:      sessions,
		logger:        log.New(os.Stdout, "[AUTH] ", log.LstdFlags),
		loginAttempts: make(map[string]*loginAttempt),
	}
	go ac.cleanupLoginAttempts()
	return ac
}

func (ac *AuthController) cleanupLoginAttempts() {
	ticker := time.NewTicker(loginAttemptWindow)
	defer ticker.Stop()
	for range ticker.C {
		ac.attemptsMu.Lock()
		for username, attempt := range ac.loginAttempts {
			if time.Since(attempt.lastAttempt) > loginAttemptWindow {
				delete(ac.loginAttempts, username)
			}
		}
		ac.attemptsMu.Unlock()
	}
}

func (ac *AuthController) isThrottled(username string) bool {
	ac.attemptsMu.Lock()
	defer ac.attemptsMu.Unlock()
	attempt, ok := ac.loginAttempts[username]
	if !ok {
		return false
	}
	if time.Since(attempt.lastAttempt) > loginAttemptWindow {
		delete(ac.loginAttempts, username)
		return false
	}
	return attempt.count >= maxLoginAttempts
}

func (ac *AuthController) recordFailedLogin(username string) {
	ac.attemptsMu.Lock()
	defer ac.attemptsMu.Unlock()
	attempt, ok := ac.loginAttempts[username]
	if !ok {
		attempt = &loginAttempt{}
		ac.loginAttempts[username] = attempt
	}
	attempt.count++
	attempt.lastAttempt = time.Now()
}

func (ac *AuthController) clearLoginAttempts(username string) {
	ac.attemptsMu.Lock()
	defer ac.attemptsMu.Unlock()
	delete(ac.loginAttempts, username)
}

// Register creates a provisional user at step 2 and emails an OTP, or
// resumes an existing registration for the same email.
func (ac *AuthController) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Message: "Validation failed.",
			Errors:  []models.FieldError{{Field: "email", Message: "A valid email address is required."}},
		})
	}
	phone, err := utils.SanitizePhone(req.Phone)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Message: "Validation failed.",
			Errors:  []models.FieldError{{Field: "phone", Message: "A valid phone number is required."}},
		})
	}
	req.Email = email
	req.Phone = phone
	req.CompanyName = utils.SanitizeInput(req.CompanyName)
	req.YourName = utils.SanitizeInput(req.YourName)
	req.Position = utils.SanitizeInput(req.Position)

	ctx, cancel := requestContext()
	defer cancel()

	user, created, err := ac.signup.Register(ctx, &req)
	if err != nil {
		if _, ok := repositories.IsDuplicateKey(err); ok {
			return c.JSON(http.StatusBadRequest, models.Response{
				Success: false,
				Message: "Email is already registered.",
			})
		}
		ac.logger.Printf("register failed for %s: %v", utils.MaskEmail(email), err)
		return internalError(c, "Failed to register user.")
	}

	sess := session.New(user.ID.Hex(), user.CurrentSignupStep, session.DefaultTTL)
	if err := ac.sessions.Save(ctx, sess); err != nil {
		ac.logger.Printf("session save failed: %v", err)
		return internalError(c, "Failed to start signup session.")
	}
	middleware.IssueSessionCookie(c, sess)
	middleware.SetSession(c, sess)

	resp := models.Response{
		Success:           true,
		UserID:            user.ID.Hex(),
		CurrentSignupStep: user.CurrentSignupStep,
	}

	switch {
	case created:
		resp.Message = "User registered successfully. OTP sent to email."
		return c.JSON(http.StatusCreated, resp)
	case user.IsVerified:
		resp.Message = "User already verified. Continue with the remaining details."
		return c.JSON(http.StatusOK, resp)
	default:
		resp.Message = "User already registered but not verified. OTP resent to email."
		return c.JSON(http.StatusOK, resp)
	}
}

// Login authenticates a verified user by username and issues a JWT cookie.
func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	username := utils.SanitizeInput(req.Username)
	if ac.isThrottled(username) {
		return c.JSON(http.StatusTooManyRequests, models.Response{
			Success: false,
			Message: "Too many failed login attempts. Please try again later.",
		})
	}

	ctx, cancel := requestContext()
	defer cancel()

	user, err := ac.verified.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			ac.recordFailedLogin(username)
			return c.JSON(http.StatusBadRequest, models.Response{
				Success: false,
				Message: "Invalid credentials.",
			})
		}
		ac.logger.Printf("login lookup failed: %v", err)
		return internalError(c, "Failed to log in.")
	}

	if err := utils.CheckPassword(req.Password, user.Password); err != nil {
		ac.recordFailedLogin(username)
		return c.JSON(http.StatusBadRequest, models.Response{
			Success: false,
			Message: "Invalid credentials.",
		})
	}
	ac.clearLoginAttempts(username)

	token, err := middleware.GenerateJWT(user.ID.Hex(), user.IsAdmin)
	if err != nil {
		ac.logger.Printf("token generation failed: %v", err)
		return internalError(c, "Failed to log in.")
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Expires:  time.Now().Add(middleware.TokenExpiry()),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Logged in successfully.",
		Token:   token,
		IsAdmin: models.Bool(user.IsAdmin),
	})
}

// VerifyOTP confirms the emailed code and advances the signup to step 3.
func (ac *AuthController) VerifyOTP(c echo.Context) error {
	user := middleware.GetSignupUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Success: false,
			Message: "No active session. Please start again.",
		})
	}

	var req models.VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := requestContext()
	defer cancel()

	updated, err := ac.signup.ConfirmOTP(ctx, user.ID, req.OTP)
	if err != nil {
		var stepErr *services.StepNotReachedError
		switch {
		case errors.As(err, &stepErr):
			return c.JSON(http.StatusForbidden, models.Response{
				Success: false,
				Message: stepErr.Error(),
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
		case errors.Is(err, repositories.ErrNotFound):
			return c.JSON(http.StatusNotFound, models.Response{
				Success: false,
				Message: "User not found.",
			})
		}
		ac.logger.Printf("otp verification failed: %v", err)
		return internalError(c, "Failed to verify OTP.")
	}

	syncSessionStep(c, ac.sessions, updated.CurrentSignupStep)

	return c.JSON(http.StatusOK, models.Response{
		Success:           true,
		Message:           "OTP verified successfully.",
		CurrentSignupStep: updated.CurrentSignupStep,
	})
}

// ResendOTP issues a fresh code for a user still at the verification step.
func (ac *AuthController) ResendOTP(c echo.Context) error {
	user := middleware.GetSignupUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Success: false,
			Message: "No active session. Please start again.",
		})
	}

	ctx, cancel := requestContext()
	defer cancel()

	updated, err := ac.signup.ResendOTP(ctx, user.ID)
	if err != nil {
		var stepErr *services.StepNotReachedError
		if errors.As(err, &stepErr) {
			return c.JSON(http.StatusForbidden, models.Response{
				Success: false,
				Message: stepErr.Error(),
			})
		}
		ac.logger.Printf("otp resend failed: %v", err)
		return internalError(c, "Failed to resend OTP.")
	}

	return c.JSON(http.StatusOK, models.Response{
		Success:           true,
		Message:           "OTP resent successfully.",
		CurrentSignupStep: updated.CurrentSignupStep,
	})
}

// GetUserInfo returns the session user's email and signup progress.
func (ac *AuthController) GetUserInfo(c echo.Context) error {
	user := middleware.GetSignupUser(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Success: false,
			Message: "No active session. Please start again.",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Success:           true,
		Message:           "User info fetched successfully.",
		Email:             user.Email,
		YourName:          user.YourName,
		CompanyName:       user.CompanyName,
		CurrentSignupStep: user.CurrentSignupStep,
		IsVerified:        models.Bool(user.IsVerified),
	})
}

// Logout revokes the JWT, destroys the signup session and clears both
// cookies. Safe to call with neither present.
func (ac *AuthController) Logout(c echo.Context) error {
	if token := middleware.ExtractToken(c); token != "" {
		if claims, err := middleware.ParseToken(token); err == nil {
			middleware.BlacklistToken(token, time.Unix(claims.ExpiresAt, 0))
		}
		c.SetCookie(&http.Cookie{
			Name:     middleware.TokenCookieName,
			Value:    "",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			Path:     "/",
			HttpOnly: true,
		})
	}

	if sess := middleware.GetSession(c); sess != nil {
		ctx, cancel := requestContext()
		defer cancel()
		if err := ac.sessions.Delete(ctx, sess.ID); err != nil {
			ac.logger.Printf("session delete failed: %v", err)
		}
	}
	middleware.ClearSessionCookie(c)

	return c.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: "Logged out successfully.",
	})
}
