// services/approval_service.go
package services

import (
	"context"
	"errors"
	"log"
	"os"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/utils"
)

// ErrNotSubmitted means the provisional account has not reached the
// submitted-for-review step yet.
var ErrNotSubmitted = errors.New("account has not completed signup")

// ApprovalService promotes a fully-onboarded provisional account into a
// login-capable VerifiedUser. The provisional record is never mutated or
// deleted; it stays behind as the audit trail of the submitted data.
type ApprovalService struct {
	users    repositories.UserRepository
	verified repositories.VerifiedUserRepository
	logger   *log.Logger
}

// NewApprovalService creates the promotion flow.
func NewApprovalService(users repositories.UserRepository, verified repositories.VerifiedUserRepository) *ApprovalService {
	return &ApprovalService{
		users:    users,
		verified: verified,
		logger:   log.New(os.Stdout, "[APPROVAL] ", log.LstdFlags),
	}
}

// Approve creates a VerifiedUser for the given provisional account with the
// chosen credentials. Duplicate username, email or repeated approval of the
// same account surfaces as DuplicateKeyError with no record created.
func (s *ApprovalService) Approve(ctx context.Context, userID primitive.ObjectID, username, password string) (*models.VerifiedUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.CurrentSignupStep < models.StepSubmitted {
		return nil, ErrNotSubmitted
	}

	digest, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	verifiedUser := &models.VerifiedUser{
		UserID:   user.ID,
		Username: username,
		Password: digest,
		Email:    user.Email,
		IsAdmin:  false,
	}

	if err := s.verified.Create(ctx, verifiedUser); err != nil {
		return nil, err
	}

	s.logger.Printf("Approved account %s as %q", user.ID.Hex(), username)
	return verifiedUser, nil
}

// SeedAdmin creates an administrator account. It is invoked from the binary's
// -seed-admin flag, never over HTTP; there is no API path to the first admin.
func (s *ApprovalService) SeedAdmin(ctx context.Context, username, password, email string) (*models.VerifiedUser, error) {
	digest, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	admin := &models.VerifiedUser{
		// Admins have no provisional record behind them; a fresh id keeps
		// the userId uniqueness intact.
		UserID:   primitive.NewObjectID(),
		Username: username,
		Password: digest,
		Email:    email,
		IsAdmin:  true,
	}

	if err := s.verified.Create(ctx, admin); err != nil {
		return nil, err
	}

	s.logger.Printf("Seeded admin account %q", username)
	return admin, nil
}
