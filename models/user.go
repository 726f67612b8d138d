// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Signup step values for the onboarding funnel.
const (
	StepRegistered  = 1
	StepOTPPending  = 2
	StepInfoPending = 3
	StepDocsPending = 4
	StepSubmitted   = 5
)

// User is a provisional merchant account working its way through signup.
// Login credentials live on VerifiedUser; the password here is only ever
// written by the pre-promotion reset flow.
type User struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	CompanyName       string             `json:"companyName" bson:"companyName"`
	YourName          string             `json:"yourName" bson:"yourName"`
	Position          string             `json:"position" bson:"position"`
	Email             string             `json:"email" bson:"email"`
	Phone             string             `json:"phone" bson:"phone"`
	Password          string             `json:"-" bson:"password,omitempty"`
	CurrentSignupStep int                `json:"currentSignupStep" bson:"currentSignupStep"`
	IsVerified        bool               `json:"isVerified" bson:"isVerified"`
	OTPInfo           *OTPInfo           `json:"-" bson:"otp,omitempty"`
	BusinessInfo      *BusinessInfo      `json:"businessInfo,omitempty" bson:"businessInfo,omitempty"`
	BusinessDocuments *BusinessDocuments `json:"businessDocuments,omitempty" bson:"businessDocuments,omitempty"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// OTPInfo is the outstanding one-time passcode challenge on a user document.
type OTPInfo struct {
	Code      string    `json:"code" bson:"code"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}

// BusinessAddress model
type BusinessAddress struct {
	AddressOnMap string `json:"addressOnMap" bson:"addressOnMap"`
	FullAddress  string `json:"fullAddress" bson:"fullAddress"`
	Landmark     string `json:"landmark,omitempty" bson:"landmark,omitempty"`
}

// BusinessInfo is attached at the step 3 -> 4 transition.
type BusinessInfo struct {
	BrandName       string          `json:"brandName" bson:"brandName"`
	PrimaryCategory string          `json:"primaryCategory" bson:"primaryCategory"`
	OutletType      string          `json:"outletType" bson:"outletType"`
	NumberOfOutlets int             `json:"numberOfOutlets" bson:"numberOfOutlets"`
	BusinessAddress BusinessAddress `json:"businessAddress" bson:"businessAddress"`
	TermsAgreed     bool            `json:"termsAgreed" bson:"termsAgreed"`
}

// BankDetails model
type BankDetails struct {
	IFSCCode      string `json:"ifscCode" bson:"ifscCode"`
	AccountNumber string `json:"accountNumber" bson:"accountNumber"`
}

// BusinessDocuments is attached at the step 4 -> 5 transition.
type BusinessDocuments struct {
	OwnerName                string      `json:"ownerName" bson:"ownerName"`
	PANNumber                string      `json:"panNumber" bson:"panNumber"`
	GSTNumber                string      `json:"gstNumber,omitempty" bson:"gstNumber,omitempty"`
	HasGSTIN                 bool        `json:"hasGSTIN" bson:"hasGSTIN"`
	BankDetails              BankDetails `json:"bankDetails" bson:"bankDetails"`
	FssaiCertificateNumber   string      `json:"fssaiCertificateNumber,omitempty" bson:"fssaiCertificateNumber,omitempty"`
	IsFssaiAvailable         bool        `json:"isFssaiAvailable" bson:"isFssaiAvailable"`
	SubmittedForVerification bool        `json:"submittedForVerification" bson:"submittedForVerification"`
}
