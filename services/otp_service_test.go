package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
)

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	fail bool
}

func (m *fakeMailer) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return assert.AnError
	}
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) last(t *testing.T) sentEmail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no email was sent")
	return m.sent[len(m.sent)-1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func newTestUser(t *testing.T, users repositories.UserRepository, step int) *models.User {
	t.Helper()
	user := &models.User{
		CompanyName:       "Spice Garden Pvt Ltd",
		YourName:          "Asha Nair",
		Position:          "Owner",
		Email:             "asha@spicegarden.in",
		Phone:             "+919812345678",
		CurrentSignupStep: step,
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestOTPIssueStoresChallengeAndEmailsCode(t *testing.T) {
	users := repositories.NewMemoryUserRepository()
	mailer := &fakeMailer{}
	svc := NewOTPService(users, mailer)

	user := newTestUser(t, users, models.StepOTPPending)

	code, err := svc.Issue(context.Background(), user, PurposeVerification)
	require.NoError(t, err)
	require.Len(t, code, OTPLength)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "code %q is not numeric", code)
	}

	stored, err := users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.OTPInfo)
	assert.Equal(t, code, stored.OTPInfo.Code)
	assert.True(t, stored.OTPInfo.ExpiresAt.After(time.Now()))

	email := mailer.last(t)
	assert.Equal(t, user.Email, email.To)
	assert.Equal(t, "Your OTP Verification Code", email.Subject)
	assert.True(t, strings.Contains(email.Body, code), "email body does not carry the code")
}

func TestOTPIssueResetPurposeUsesResetEmail(t *testing.T) {
	users := repositories.NewMemoryUserRepository()
	mailer := &fakeMailer{}
	svc := NewOTPService(users, mailer)

	user := newTestUser(t, users, models.StepInfoPending)

	_, err := svc.Issue(context.Background(), user, PurposeReset)
	require.NoError(t, err)
	assert.Equal(t, "Password Reset OTP", mailer.last(t).Subject)
}

func TestOTPReissueInvalidatesPreviousCode(t *testing.T) {
	users := repositories.NewMemoryUserRepository()
	mailer := &fakeMailer{}
	svc := NewOTPService(users, mailer)

	user := newTestUser(t, users, models.StepOTPPending)

	first, err := svc.Issue(context.Background(), user, PurposeVerification)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), user, PurposeVerification)
	require.NoError(t, err)

	if first == second {
		t.Skip("generated codes collided; nothing to assert")
	}

	err = svc.Verify(context.Background(), user, first)
	assert.ErrorIs(t, err, ErrOTPMismatch)

	require.NoError(t, svc.Verify(context.Background(), user, second))
}

func TestOTPIssueMailFailureSurfaces(t *testing.T) {
	users := repositories.NewMemoryUserRepository()
	mailer := &fakeMailer{fail: true}
	svc := NewOTPService(users, mailer)

	user := newTestUser(t, users, models.StepOTPPending)

	_, err := svc.Issue(context.Background(), user, PurposeVerification)
	assert.Error(t, err)
}

func TestOTPVerifyChecksInOrder(t *testing.T) {
	users := repositories.NewMemoryUserRepository()
	svc := NewOTPService(users, &fakeMailer{})
	ctx := context.Background()

	user := newTestUser(t, users, models.StepOTPPending)

	// No challenge outstanding.
	assert.ErrorIs(t, svc.Verify(ctx, user, "123456"), ErrNoChallenge)

	// Wrong code.
	require.NoError(t, users.SetOTP(ctx, user.ID, &models.OTPInfo{
		Code:      "654321",
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}))
	user.OTPInfo = &models.OTPInfo{Code: "654321", ExpiresAt: time.Now().Add(5 * time.Minute)}
	assert.ErrorIs(t, svc.Verify(ctx, user, "111111"), ErrOTPMismatch)

	// Expired challenge: mismatch is reported before expiry.
	user.OTPInfo = &models.OTPInfo{Code: "654321", ExpiresAt: time.Now().Add(-time.Minute)}
	assert.ErrorIs(t, svc.Verify(ctx, user, "999999"), ErrOTPMismatch)
	assert.ErrorIs(t, svc.Verify(ctx, user, "654321"), ErrOTPExpired)
}

func TestOTPVerifySuccessClearsChallengeOnly(t *testing.T) {
	users := repositories.NewMemoryUserRepository()
	svc := NewOTPService(users, &fakeMailer{})
	ctx := context.Background()

	user := newTestUser(t, users, models.StepOTPPending)
	challenge := &models.OTPInfo{Code: "246810", ExpiresAt: time.Now().Add(5 * time.Minute)}
	require.NoError(t, users.SetOTP(ctx, user.ID, challenge))
	user.OTPInfo = challenge

	require.NoError(t, svc.Verify(ctx, user, "246810"))
	assert.Nil(t, user.OTPInfo)

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.OTPInfo)
	assert.Equal(t, models.StepOTPPending, stored.CurrentSignupStep, "verification must not advance the step")
	assert.False(t, stored.IsVerified)
}
