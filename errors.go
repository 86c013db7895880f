package papertrail

import "errors"

// Sentinel errors for the credential issuance and verification core.
// Callers branch on these with errors.Is; the HTTP layer maps them to the
// deliberately coarse responses described in the handlers.
var (
	// ErrAccountNotFound is returned when no account exists for an email,
	// federated id, or account id.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidOtp covers a missing pending code, a mismatched code, and an
	// expired code. The three cases are logged distinctly but never
	// distinguished to the caller.
	ErrInvalidOtp = errors.New("invalid or expired OTP")

	// ErrDeliveryFailed indicates the delivery channel rejected the send.
	// The persisted OTP remains valid when this is returned.
	ErrDeliveryFailed = errors.New("could not send code")

	// ErrDuplicateAccount surfaces a store-level unique-constraint violation
	// on email or federated id (only reachable through an upsert race).
	ErrDuplicateAccount = errors.New("duplicate account")

	// ErrAccountNotVerified guards the session issuer against being handed an
	// account that never completed verification.
	ErrAccountNotVerified = errors.New("account not verified")
)

// Session validation failures. The authenticated-request guard collapses all
// of them into a single unauthorized response; the distinction exists for
// logging only.
var (
	ErrMissingToken   = errors.New("no bearer token presented")
	ErrMalformedToken = errors.New("malformed or unsigned token")
	ErrExpiredToken   = errors.New("token expired")
	ErrInvalidClaims  = errors.New("token missing identity claims")
)

// Error codes returned in JSON error bodies.
const (
	ErrCodeMissingField    = "missing_field"
	ErrCodeInvalidEmail    = "invalid_email"
	ErrCodeInvalidMode     = "invalid_mode"
	ErrCodeInvalidName     = "invalid_name"
	ErrCodeInvalidDob      = "invalid_dob"
	ErrCodeInvalidCode     = "invalid_code"
	ErrCodeAccountNotFound = "account_not_found"
	ErrCodeOtpRejected     = "invalid_or_expired_otp"
	ErrCodeDeliveryFailed  = "delivery_failed"
	ErrCodeUnauthorized    = "unauthorized"
)

// AuthError is a field-level failure reported to HTTP callers as JSON.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	return e.Message
}

// NewAuthError creates an AuthError with the given code, message and field.
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}
