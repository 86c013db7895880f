package papertrail

import (
	"regexp"
	"time"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	otpRegex   = regexp.MustCompile(`^[0-9]{6}$`)
)

// RequestOtpRequest is the request body for the request-OTP operation.
type RequestOtpRequest struct {
	Email string `json:"email"`
	Mode  string `json:"mode"`
	Name  string `json:"name,omitempty"`
	Dob   string `json:"dob,omitempty"`
}

// Validate checks the request before any store access. For signup mode it
// also parses the profile fields; login mode returns a nil profile.
func (req *RequestOtpRequest) Validate() (*Profile, *AuthError) {
	if req.Email == "" {
		return nil, NewAuthError(ErrCodeMissingField, "Email is required", "email")
	}
	if !emailRegex.MatchString(req.Email) {
		return nil, NewAuthError(ErrCodeInvalidEmail, "Invalid email address", "email")
	}

	switch OtpMode(req.Mode) {
	case OtpModeLogin:
		return nil, nil
	case OtpModeSignup:
		if req.Name == "" || req.Dob == "" {
			return nil, NewAuthError(ErrCodeMissingField, "Name and DOB are required for signup", "name")
		}
		if len(req.Name) < 2 {
			return nil, NewAuthError(ErrCodeInvalidName, "Name must be at least 2 characters", "name")
		}
		dob, err := time.Parse("2006-01-02", req.Dob)
		if err != nil {
			return nil, NewAuthError(ErrCodeInvalidDob, "Invalid date of birth", "dob")
		}
		return &Profile{Name: req.Name, DateOfBirth: &dob}, nil
	default:
		return nil, NewAuthError(ErrCodeInvalidMode, "Mode must be signup or login", "mode")
	}
}

// VerifyOtpRequest is the request body for the verify-OTP operation.
type VerifyOtpRequest struct {
	Email string `json:"email"`
	Otp   string `json:"otp"`
}

// Validate checks the request before any store access.
func (req *VerifyOtpRequest) Validate() *AuthError {
	if req.Email == "" || req.Otp == "" {
		return NewAuthError(ErrCodeMissingField, "Email and OTP are required", "email")
	}
	if !emailRegex.MatchString(req.Email) {
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email address", "email")
	}
	if !otpRegex.MatchString(req.Otp) {
		return NewAuthError(ErrCodeInvalidCode, "OTP must be 6 digits", "otp")
	}
	return nil
}
