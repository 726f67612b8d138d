// models/response.go
package models

// Response is the JSON envelope returned by every endpoint. The contract
// carries operation data as extra top-level fields next to success/message,
// so the optional fields below are emitted only when set.
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`

	ID                string             `json:"id,omitempty"`
	UserID            string             `json:"userId,omitempty"`
	Username          string             `json:"username,omitempty"`
	Email             string             `json:"email,omitempty"`
	YourName          string             `json:"yourName,omitempty"`
	CompanyName       string             `json:"companyName,omitempty"`
	CurrentSignupStep int                `json:"currentSignupStep,omitempty"`
	IsVerified        *bool              `json:"isVerified,omitempty"`
	IsAdmin           *bool              `json:"isAdmin,omitempty"`
	Token             string             `json:"token,omitempty"`
	BusinessInfo      *BusinessInfo      `json:"businessInfo,omitempty"`
	BusinessDocuments *BusinessDocuments `json:"businessDocuments,omitempty"`
	RetryAfter        string             `json:"retryAfter,omitempty"`
}

// FieldError reports a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Bool returns a pointer for the envelope's optional boolean fields.
func Bool(b bool) *bool {
	return &b
}
