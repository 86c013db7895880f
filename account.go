package papertrail

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account is the single identity entity. An account is created either by a
// signup-mode OTP request or by the first federated sign-in for an email, and
// the email is the sole merge key between those two paths.
type Account struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	DateOfBirth *time.Time  `json:"dob,omitempty"`
	FederatedID string      `json:"federated_id,omitempty"`
	Verified    bool        `json:"is_verified"`
	PendingOtp  *PendingOtp `json:"pending_otp,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// PendingOtp is the at-most-one outstanding passcode for an account.
// The code is stored as a bcrypt digest, never in the clear. A stale entry
// past ExpiresAt is rejected at verification time; it is not eagerly purged.
type PendingOtp struct {
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Profile carries the optional signup fields attached to an account at creation.
type Profile struct {
	Name        string
	DateOfBirth *time.Time
}

// AccountStore is the durable email -> account mapping this subsystem runs
// against. Implementations must guarantee per-email atomicity for
// EnsureAccount and SetPendingOtp so that two concurrent OTP requests for the
// same email cannot interleave into a half-written record.
type AccountStore interface {
	// GetByEmail retrieves the account for a normalized email.
	// Returns ErrAccountNotFound if no account exists.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByFederatedID retrieves the account linked to an external subject id.
	// Returns ErrAccountNotFound if no account is linked.
	GetByFederatedID(ctx context.Context, federatedID string) (*Account, error)

	// GetByID retrieves an account by its opaque id.
	GetByID(ctx context.Context, id string) (*Account, error)

	// EnsureAccount atomically finds or creates the account for an email.
	// The profile is only applied when a new account is created.
	EnsureAccount(ctx context.Context, email string, profile Profile) (acct *Account, created bool, err error)

	// SetPendingOtp atomically replaces the pending OTP on the account for an
	// email (nil clears it). Returns ErrAccountNotFound for an unknown email.
	SetPendingOtp(ctx context.Context, email string, otp *PendingOtp) (*Account, error)

	// Save persists the full account record (keyed by ID).
	Save(ctx context.Context, acct *Account) error
}

// NormalizeEmail lowers and trims an email address. All lookups and merges are
// case-insensitive on the email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewAccountID generates an opaque unique account id.
func NewAccountID() string {
	return uuid.NewString()
}

// HasPendingOtp reports whether an OTP is outstanding, expired or not.
func (a *Account) HasPendingOtp() bool {
	return a.PendingOtp != nil
}
