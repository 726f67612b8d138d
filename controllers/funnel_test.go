package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablekart/merchant_backend/controllers"
	"github.com/tablekart/merchant_backend/middleware"
	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/routes"
	"github.com/tablekart/merchant_backend/services"
	"github.com/tablekart/merchant_backend/session"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent int
}

func (m *recordingMailer) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	return nil
}

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func newTestValidator() *testValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &testValidator{validator: v}
}

type testApp struct {
	e        *echo.Echo
	users    repositories.UserRepository
	verified repositories.VerifiedUserRepository
	sessions session.Store
	approve  *services.ApprovalService
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWithSessions(t, session.NewMemoryStore())
}

func newTestAppWithSessions(t *testing.T, sessions session.Store) *testApp {
	t.Helper()
	t.Setenv("JWT_SECRET", "funnel-test-secret")

	users := repositories.NewMemoryUserRepository()
	verified := repositories.NewMemoryVerifiedUserRepository()
	mailer := &recordingMailer{}

	otp := services.NewOTPService(users, mailer)
	signup := services.NewSignupService(users, otp)
	passwords := services.NewPasswordService(users, otp)
	approvals := services.NewApprovalService(users, verified)

	e := echo.New()
	e.Validator = newTestValidator()
	e.Use(middleware.LoadSession(sessions))

	routes.RegisterAuthRoutes(e,
		controllers.NewAuthController(users, verified, signup, sessions),
		controllers.NewPasswordController(passwords),
		sessions, users)
	routes.RegisterBusinessRoutes(e,
		controllers.NewBusinessController(signup, sessions),
		controllers.NewApprovalController(approvals),
		sessions, users, verified)

	return &testApp{e: e, users: users, verified: verified, sessions: sessions, approve: approvals}
}

func (app *testApp) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.Response {
	t.Helper()
	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

// otpFor reads the persisted challenge, standing in for the email inbox.
func (app *testApp) otpFor(t *testing.T, email string) string {
	t.Helper()
	user, err := app.users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, user.OTPInfo)
	return user.OTPInfo.Code
}

const registerBody = `{
	"companyName": "Spice Garden Pvt Ltd",
	"yourName": "Asha Nair",
	"position": "Owner",
	"email": "asha@spicegarden.in",
	"phone": "+919812345678"
}`

const businessInfoBody = `{
	"brandName": "Spice Garden",
	"primaryCategory": "Restaurant",
	"outletType": "Single outlet",
	"businessAddress": {
		"addressOnMap": "12.9716,77.5946",
		"fullAddress": "14 MG Road, Bengaluru",
		"landmark": "Opposite Metro Station"
	},
	"termsAgreed": true
}`

const documentsBody = `{
	"ownerName": "Asha Nair",
	"panNumber": "abcde1234f",
	"hasGSTIN": false,
	"bankDetails": {
		"ifscCode": "hdfc0001234",
		"accountNumber": "50100123456789"
	},
	"isFssaiAvailable": false
}`

func TestRegisterValidationFailure(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/api/auth/register", `{"companyName": "Spice Garden"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Errors)
}

func TestRegisterIssuesSessionCookie(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/api/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	cookie := sessionCookieFrom(t, rec)

	sess, err := app.sessions.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, models.StepOTPPending, sess.CurrentSignupStep)
}

// Operation data rides at the top level of the envelope next to
// success/message, not nested under a data object.
func TestResponseEnvelopeIsFlat(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/api/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "data")
	assert.Equal(t, float64(models.StepOTPPending), raw["currentSignupStep"])
	assert.NotEmpty(t, raw["userId"])

	resp := decodeResponse(t, rec)
	assert.Equal(t, models.StepOTPPending, resp.CurrentSignupStep)
	assert.NotEmpty(t, resp.UserID)
}

func TestFullOnboardingFunnel(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	// Step 1-2: register.
	rec := app.do(http.MethodPost, "/api/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookie := sessionCookieFrom(t, rec)

	// Business info is gated until the OTP is verified.
	rec = app.do(http.MethodPost, "/api/business/add-info", businessInfoBody, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Wrong OTP is rejected without advancing.
	code := app.otpFor(t, "asha@spicegarden.in")
	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}
	rec = app.do(http.MethodPost, "/api/auth/verify-otp", fmt.Sprintf(`{"otp": %q}`, wrong), cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Step 2 -> 3: verify.
	rec = app.do(http.MethodPost, "/api/auth/verify-otp", fmt.Sprintf(`{"otp": %q}`, code), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	// Step 3 -> 4: business info.
	rec = app.do(http.MethodPost, "/api/business/add-info", businessInfoBody, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Step 4 -> 5: documents.
	rec = app.do(http.MethodPost, "/api/business/submit-documents", documentsBody, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = app.do(http.MethodGet, "/api/business/documents/info", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ABCDE1234F")

	// Admin approves the submitted account.
	admin, err := app.approve.SeedAdmin(ctx, "root", "admin-secret", "admin@tablekart.in")
	require.NoError(t, err)
	token, err := middleware.GenerateJWT(admin.ID.Hex(), true)
	require.NoError(t, err)

	user, err := app.users.FindByEmail(ctx, "asha@spicegarden.in")
	require.NoError(t, err)

	approveBody := fmt.Sprintf(`{"userId": %q, "username": "spicegarden", "password": "merchant-pass"}`,
		user.ID.Hex())
	rec = app.do(http.MethodPost, "/api/business/approve-user", approveBody,
		&http.Cookie{Name: middleware.TokenCookieName, Value: token})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The promoted merchant can now log in.
	rec = app.do(http.MethodPost, "/api/auth/login",
		`{"username": "spicegarden", "password": "merchant-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
}

func TestApproveRequiresAdmin(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	merchant := &models.VerifiedUser{
		Username: "plainuser",
		Email:    "plain@example.in",
		Password: "irrelevant",
	}
	require.NoError(t, app.verified.Create(ctx, merchant))
	token, err := middleware.GenerateJWT(merchant.ID.Hex(), false)
	require.NoError(t, err)

	rec := app.do(http.MethodPost, "/api/business/approve-user",
		`{"userId": "64f1c0ffee0000000000abcd", "username": "x", "password": "secret1"}`,
		&http.Cookie{Name: middleware.TokenCookieName, Value: token})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestForgotPasswordUnknownIdentifier(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/api/auth/forgot-password", `{"identifier": "nobody@example.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPasswordResetRewindsSignup(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	rec := app.do(http.MethodPost, "/api/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookie := sessionCookieFrom(t, rec)

	code := app.otpFor(t, "asha@spicegarden.in")
	rec = app.do(http.MethodPost, "/api/auth/verify-otp", fmt.Sprintf(`{"otp": %q}`, code), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodPost, "/api/auth/forgot-password", `{"identifier": "asha@spicegarden.in"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	userID := resp.UserID
	require.NotEmpty(t, userID)
	assert.NotEqual(t, "asha@spicegarden.in", resp.Email, "email must be masked")

	code = app.otpFor(t, "asha@spicegarden.in")
	body := fmt.Sprintf(`{"userId": %q, "otp": %q, "newPassword": "fresh-secret"}`, userID, code)
	rec = app.do(http.MethodPost, "/api/auth/reset-password", body)
	require.Equal(t, http.StatusOK, rec.Code)

	user, err := app.users.FindByEmail(ctx, "asha@spicegarden.in")
	require.NoError(t, err)
	assert.Equal(t, models.StepRegistered, user.CurrentSignupStep)
	assert.False(t, user.IsVerified)
}

func TestDeleteUserDestroysAccountAndSession(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	rec := app.do(http.MethodPost, "/api/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookie := sessionCookieFrom(t, rec)

	rec = app.do(http.MethodDelete, "/api/business/delete-user", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := app.users.FindByEmail(ctx, "asha@spicegarden.in")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = app.sessions.Get(ctx, cookie.Value)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

// failingSaveStore accepts the registration save, then fails every
// subsequent one.
type failingSaveStore struct {
	session.Store
	saves int
}

func (s *failingSaveStore) Save(ctx context.Context, sess *session.Session) error {
	s.saves++
	if s.saves > 1 {
		return assert.AnError
	}
	return s.Store.Save(ctx, sess)
}

func TestSessionSyncFailureDoesNotFailRequest(t *testing.T) {
	store := &failingSaveStore{Store: session.NewMemoryStore()}
	app := newTestAppWithSessions(t, store)

	var logs bytes.Buffer
	app.e.Logger.SetOutput(&logs)

	rec := app.do(http.MethodPost, "/api/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookie := sessionCookieFrom(t, rec)

	code := app.otpFor(t, "asha@spicegarden.in")
	rec = app.do(http.MethodPost, "/api/auth/verify-otp", fmt.Sprintf(`{"otp": %q}`, code), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Equal(t, models.StepInfoPending, resp.CurrentSignupStep)
	assert.Contains(t, logs.String(), "failed to refresh session step")
}

func TestLogoutRevokesToken(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	admin, err := app.approve.SeedAdmin(ctx, "root", "admin-secret", "admin@tablekart.in")
	require.NoError(t, err)
	token, err := middleware.GenerateJWT(admin.ID.Hex(), true)
	require.NoError(t, err)

	rec := app.do(http.MethodPost, "/api/auth/logout", "",
		&http.Cookie{Name: middleware.TokenCookieName, Value: token})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(http.MethodPost, "/api/business/approve-user",
		`{"userId": "64f1c0ffee0000000000abcd", "username": "x", "password": "secret1"}`,
		&http.Cookie{Name: middleware.TokenCookieName, Value: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
