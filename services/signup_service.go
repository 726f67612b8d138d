// services/signup_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tablekart/merchant_backend/models"
	"github.com/tablekart/merchant_backend/repositories"
	"github.com/tablekart/merchant_backend/utils"
)

// ErrOutletCount is returned when a multi-outlet business reports fewer
// than two outlets.
var ErrOutletCount = errors.New("numberOfOutlets must be at least 2 for multiple outlets")

// OutletTypeMultiple is the outlet type requiring an explicit outlet count.
const OutletTypeMultiple = "Multiple outlets"

// StepNotReachedError is the step gate failure. It reports the step the
// account has actually reached so the caller can tell the user what is
// still missing. The gate is a floor: any actual step at or above the
// required one passes.
type StepNotReachedError struct {
	Required int
	Actual   int
}

func (e *StepNotReachedError) Error() string {
	return fmt.Sprintf("signup step %d required, current step is %d", e.Required, e.Actual)
}

// SignupService drives the onboarding funnel. Every transition persists the
// new step before returning; the session mirror is updated by callers.
type SignupService struct {
	users  repositories.UserRepository
	otp    *OTPService
	logger *log.Logger
}

// NewSignupService creates the signup state machine.
func NewSignupService(users repositories.UserRepository, otp *OTPService) *SignupService {
	return &SignupService{
		users:  users,
		otp:    otp,
		logger: log.New(os.Stdout, "[SIGNUP] ", log.LstdFlags),
	}
}

// Register creates a provisional account at step 2 and issues an OTP. It is
// idempotent with respect to "I already started": a verified account resumes
// at its recorded step, an unverified one gets a fresh OTP and is pinned
// back to step 2. Returns created=true only when a new account was written.
func (s *SignupService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, bool, error) {
	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err == nil {
		if existing.IsVerified {
			return existing, false, nil
		}

		if existing.CurrentSignupStep != models.StepOTPPending {
			if err := s.users.SetStep(ctx, existing.ID, models.StepOTPPending); err != nil {
				return nil, false, err
			}
			existing.CurrentSignupStep = models.StepOTPPending
		}
		if _, err := s.otp.Issue(ctx, existing, PurposeVerification); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, err
	}

	user := &models.User{
		CompanyName:       req.CompanyName,
		YourName:          req.YourName,
		Position:          req.Position,
		Email:             req.Email,
		Phone:             req.Phone,
		CurrentSignupStep: models.StepOTPPending,
	}

	// A concurrent register for the same email loses here on the unique
	// email index and surfaces as DuplicateKeyError.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}

	if _, err := s.otp.Issue(ctx, user, PurposeVerification); err != nil {
		return nil, false, err
	}

	s.logger.Printf("Registered new account %s", user.ID.Hex())
	return user, true, nil
}

// ConfirmOTP verifies the submitted code and, on success, marks the account
// verified and advances it to step 3.
func (s *SignupService) ConfirmOTP(ctx context.Context, userID primitive.ObjectID, code string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := requireStep(user, models.StepOTPPending); err != nil {
		return nil, err
	}

	if err := s.otp.Verify(ctx, user, code); err != nil {
		return nil, err
	}

	if err := s.users.SetVerified(ctx, user.ID, models.StepInfoPending); err != nil {
		return nil, err
	}
	user.IsVerified = true
	user.CurrentSignupStep = models.StepInfoPending
	return user, nil
}

// ResendOTP reissues the challenge. The step is held at 2 for accounts that
// have not passed verification; progress already recorded past step 2 is
// never regressed.
func (s *SignupService) ResendOTP(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := requireStep(user, models.StepOTPPending); err != nil {
		return nil, err
	}

	if _, err := s.otp.Issue(ctx, user, PurposeVerification); err != nil {
		return nil, err
	}
	return user, nil
}

// SubmitBusinessInfo writes the business profile and advances to step 4.
func (s *SignupService) SubmitBusinessInfo(ctx context.Context, userID primitive.ObjectID, req *models.BusinessInfoRequest) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := requireStep(user, models.StepInfoPending); err != nil {
		return nil, err
	}

	outlets := 1
	if req.OutletType == OutletTypeMultiple {
		if req.NumberOfOutlets < 2 {
			return nil, ErrOutletCount
		}
		outlets = req.NumberOfOutlets
	}

	info := &models.BusinessInfo{
		BrandName:       req.BrandName,
		PrimaryCategory: req.PrimaryCategory,
		OutletType:      req.OutletType,
		NumberOfOutlets: outlets,
		BusinessAddress: models.BusinessAddress{
			AddressOnMap: req.BusinessAddress.AddressOnMap,
			FullAddress:  req.BusinessAddress.FullAddress,
			Landmark:     req.BusinessAddress.Landmark,
		},
		TermsAgreed: req.TermsAgreed,
	}

	if err := s.users.SetBusinessInfo(ctx, user.ID, info, models.StepDocsPending); err != nil {
		return nil, err
	}
	user.BusinessInfo = info
	user.CurrentSignupStep = models.StepDocsPending
	return user, nil
}

// SubmitBusinessDocuments writes the normalized documents and advances to
// step 5. PAN uniqueness across submitted accounts is enforced by the store.
func (s *SignupService) SubmitBusinessDocuments(ctx context.Context, userID primitive.ObjectID, req *models.BusinessDocumentsRequest) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := requireStep(user, models.StepDocsPending); err != nil {
		return nil, err
	}

	docs := &models.BusinessDocuments{
		OwnerName: utils.SanitizeInput(req.OwnerName),
		PANNumber: utils.NormalizeCode(req.PANNumber),
		HasGSTIN:  req.HasGSTIN,
		BankDetails: models.BankDetails{
			IFSCCode:      utils.NormalizeCode(req.BankDetails.IFSCCode),
			AccountNumber: utils.SanitizeInput(req.BankDetails.AccountNumber),
		},
		IsFssaiAvailable:         req.IsFssaiAvailable,
		SubmittedForVerification: false,
	}
	if req.HasGSTIN {
		docs.GSTNumber = utils.NormalizeCode(req.GSTNumber)
	}
	if req.IsFssaiAvailable {
		docs.FssaiCertificateNumber = utils.SanitizeInput(req.FssaiCertificateNumber)
	}

	if err := s.users.SetBusinessDocuments(ctx, user.ID, docs, models.StepSubmitted); err != nil {
		return nil, err
	}
	user.BusinessDocuments = docs
	user.CurrentSignupStep = models.StepSubmitted
	return user, nil
}

// Withdraw deletes the provisional account outright. The caller is
// responsible for destroying the session.
func (s *SignupService) Withdraw(ctx context.Context, userID primitive.ObjectID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := requireStep(user, models.StepOTPPending); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}
	s.logger.Printf("Withdrew account %s", user.ID.Hex())
	return nil
}

func requireStep(user *models.User, required int) error {
	if required > user.CurrentSignupStep {
		return &StepNotReachedError{Required: required, Actual: user.CurrentSignupStep}
	}
	return nil
}
