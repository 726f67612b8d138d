// services/otp_service.go
package services

import (
	"context"
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/utils"
)

// OTPLength is the fixed code length used everywhere a passcode is
// generated or checked.
const OTPLength = 6

const defaultOTPExpirationMinutes = 5

var (
	// ErrNoChallenge means no code is outstanding for the account.
	ErrNoChallenge = errors.New("no OTP challenge outstanding")
	// ErrOTPMismatch means the submitted code differs from the stored one.
	ErrOTPMismatch = errors.New("invalid OTP")
	// ErrOTPExpired means the stored code's expiry has passed.
	ErrOTPExpired = errors.New("OTP has expired")
)

// OTPPurpose selects the email sent alongside an issued code.
type OTPPurpose int

const (
	PurposeVerification OTPPurpose = iota
	PurposeReset
)

// OTPService issues and validates one-time passcodes stored on the
// provisional account. Successful verification clears the challenge but
// never advances the signup step; that is the caller's decision.
type OTPService struct {
	users  repositories.UserRepository
	mailer Mailer
	ttl    time.Duration
	logger *log.Logger
}

// NewOTPService creates an OTP service. TTL comes from
// OTP_EXPIRATION_MINUTES, defaulting to 5 minutes.
func NewOTPService(users repositories.UserRepository, mailer Mailer) *OTPService {
	ttl := time.Duration(defaultOTPExpirationMinutes) * time.Minute
	if v := os.Getenv("OTP_EXPIRATION_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			ttl = time.Duration(minutes) * time.Minute
		}
	}

	return &OTPService{
		users:  users,
		mailer: mailer,
		ttl:    ttl,
		logger: log.New(os.Stdout, "[OTP] ", log.LstdFlags),
	}
}

// TTL returns the configured challenge lifetime.
func (s *OTPService) TTL() time.Duration {
	return s.ttl
}

// Issue generates a fresh code, persists it on the account (overwriting and
// thereby invalidating any outstanding challenge) and emails it.
func (s *OTPService) Issue(ctx context.Context, user *models.User, purpose OTPPurpose) (string, error) {
	code, err := utils.GenerateNumericOTP(OTPLength)
	if err != nil {
		return "", err
	}

	challenge := &models.OTPInfo{
		Code:      code,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	if err := s.users.SetOTP(ctx, user.ID, challenge); err != nil {
		return "", err
	}
	user.OTPInfo = challenge

	var subject, body string
	switch purpose {
	case PurposeReset:
		subject = "Password Reset OTP"
		body = resetEmailBody(user.YourName, code, s.ttl)
	default:
		subject = "Your OTP Verification Code"
		body = verificationEmailBody(user.YourName, code, s.ttl)
	}

	if err := s.mailer.SendEmail(user.Email, subject, body); err != nil {
		s.logger.Printf("Failed to deliver OTP email to %s: %v", utils.MaskEmail(user.Email), err)
		return "", err
	}

	return code, nil
}

// Verify checks the submitted code against the outstanding challenge and
// clears the challenge on success.
func (s *OTPService) Verify(ctx context.Context, user *models.User, code string) error {
	if user.OTPInfo == nil || user.OTPInfo.Code == "" {
		return ErrNoChallenge
	}
	if user.OTPInfo.Code != code {
		return ErrOTPMismatch
	}
	if time.Now().After(user.OTPInfo.ExpiresAt) {
		return ErrOTPExpired
	}

	if err := s.users.ClearOTP(ctx, user.ID); err != nil {
		return err
	}
	user.OTPInfo = nil
	return nil
}
