// services/password_service.go
package services

import (
	"context"
	"log"
	"os"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/utils"
)

// PasswordService handles the pre-promotion reset flow. It only ever touches
// the provisional record's own credential field; a VerifiedUser's login
// password is never affected.
type PasswordService struct {
	users  repositories.UserRepository
	otp    *OTPService
	logger *log.Logger
}

// NewPasswordService creates the reset flow service.
func NewPasswordService(users repositories.UserRepository, otp *OTPService) *PasswordService {
	return &PasswordService{
		users:  users,
		otp:    otp,
		logger: log.New(os.Stdout, "[RESET] ", log.LstdFlags),
	}
}

// RequestReset finds the account by email or phone and issues a reset OTP.
func (s *PasswordService) RequestReset(ctx context.Context, identifier string) (*models.User, error) {
	user, err := s.users.FindByEmailOrPhone(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if _, err := s.otp.Issue(ctx, user, PurposeReset); err != nil {
		return nil, err
	}
	return user, nil
}

// ConfirmReset verifies the OTP and writes the new password digest. The
// account is rewound to step 1, unverified, forcing the funnel to be run
// again from OTP verification.
func (s *PasswordService) ConfirmReset(ctx context.Context, userID primitive.ObjectID, code, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.otp.Verify(ctx, user, code); err != nil {
		return err
	}

	digest, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.ResetCredentials(ctx, user.ID, digest); err != nil {
		return err
	}
	s.logger.Printf("Password reset completed for account %s", user.ID.Hex())
	return nil
}
