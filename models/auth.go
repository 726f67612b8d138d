// models/auth.go

package models

// RegisterRequest starts (or resumes) the signup funnel.
type RegisterRequest struct {
	CompanyName string `json:"companyName" validate:"required"`
	YourName    string `json:"yourName" validate:"required"`
	Position    string `json:"position" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required"`
}

// LoginRequest authenticates a VerifiedUser by username.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

type ForgotPasswordRequest struct {
	Identifier string `json:"identifier" validate:"required"`
}

type ResetPasswordRequest struct {
	UserID      string `json:"userId" validate:"required"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

type BusinessAddressRequest struct {
	AddressOnMap string `json:"addressOnMap" validate:"required"`
	FullAddress  string `json:"fullAddress" validate:"required"`
	Landmark     string `json:"landmark"`
}

// BusinessInfoRequest is the step 3 payload.
type BusinessInfoRequest struct {
	BrandName       string                 `json:"brandName" validate:"required"`
	PrimaryCategory string                 `json:"primaryCategory" validate:"required"`
	OutletType      string                 `json:"outletType" validate:"required,oneof='Single outlet' 'Multiple outlets'"`
	NumberOfOutlets int                    `json:"numberOfOutlets" validate:"omitempty,min=1"`
	BusinessAddress BusinessAddressRequest `json:"businessAddress" validate:"required"`
	TermsAgreed     bool                   `json:"termsAgreed" validate:"eq=true"`
}

type BankDetailsRequest struct {
	IFSCCode      string `json:"ifscCode" validate:"required"`
	AccountNumber string `json:"accountNumber" validate:"required"`
}

// BusinessDocumentsRequest is the step 4 payload.
type BusinessDocumentsRequest struct {
	OwnerName              string             `json:"ownerName" validate:"required"`
	PANNumber              string             `json:"panNumber" validate:"required,len=10"`
	GSTNumber              string             `json:"gstNumber" validate:"required_if=HasGSTIN true"`
	HasGSTIN               bool               `json:"hasGSTIN"`
	BankDetails            BankDetailsRequest `json:"bankDetails" validate:"required"`
	FssaiCertificateNumber string             `json:"fssaiCertificateNumber" validate:"required_if=IsFssaiAvailable true"`
	IsFssaiAvailable       bool               `json:"isFssaiAvailable"`
}

// ApproveUserRequest promotes a submitted provisional account.
type ApproveUserRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}
