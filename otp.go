package papertrail

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// OtpMode selects the account-creation policy for an OTP request.
type OtpMode string

const (
	// OtpModeSignup creates the account if it does not exist yet.
	OtpModeSignup OtpMode = "signup"

	// OtpModeLogin requires an existing account and never creates one.
	OtpModeLogin OtpMode = "login"
)

// Default OTP policy values
const (
	OtpLength = 6
	OtpExpiry = 5 * time.Minute
)

// GenerateOtp generates a 6-digit numeric passcode drawn uniformly from
// [100000, 999999]. The width is fixed: no leading-zero collapse.
func GenerateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// OtpIssuer generates a passcode, persists it against an account and hands it
// to the delivery channel. The persisted code always wins over delivery:
// a send failure leaves the code valid and is surfaced as ErrDeliveryFailed.
type OtpIssuer struct {
	Store  AccountStore
	Sender OtpSender

	// Expiry for newly issued codes. Defaults to OtpExpiry.
	Expiry time.Duration
}

// Issue requests a fresh OTP for an email. In signup mode the account is
// created if absent, using the given profile. In login mode a missing account
// fails with ErrAccountNotFound and nothing is created. Exactly one
// outstanding OTP exists for the account after a successful call; any prior
// code becomes unusable.
func (iss *OtpIssuer) Issue(ctx context.Context, email string, mode OtpMode, profile *Profile) error {
	email = NormalizeEmail(email)

	switch mode {
	case OtpModeSignup:
		var p Profile
		if profile != nil {
			p = *profile
		}
		if _, _, err := iss.Store.EnsureAccount(ctx, email, p); err != nil {
			return err
		}
	case OtpModeLogin:
		if _, err := iss.Store.GetByEmail(ctx, email); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown otp mode %q", mode)
	}

	code, err := GenerateOtp()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash otp: %w", err)
	}

	expiry := iss.Expiry
	if expiry == 0 {
		expiry = OtpExpiry
	}
	otp := &PendingOtp{
		CodeHash:  string(hash),
		ExpiresAt: time.Now().Add(expiry),
	}

	// Persist before delivery so a delivery timeout never rolls back the code.
	if _, err := iss.Store.SetPendingOtp(ctx, email, otp); err != nil {
		return err
	}

	if err := iss.Sender.SendOtp(ctx, email, code); err != nil {
		slog.Warn("otp delivery failed", "email", email, "err", err)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// OtpVerifier checks a submitted passcode against the stored one for an email
// and consumes it on success.
type OtpVerifier struct {
	Store AccountStore
}

// Verify validates a submitted code. A missing pending code, a mismatch and an
// expired code all fail with the same ErrInvalidOtp so callers cannot tell
// which check failed; the cases are logged distinctly. On success the pending
// code is cleared, the account is marked verified and the saved account is
// returned for session issuance.
func (v *OtpVerifier) Verify(ctx context.Context, email, code string) (*Account, error) {
	email = NormalizeEmail(email)

	acct, err := v.Store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	switch {
	case acct.PendingOtp == nil:
		slog.Info("otp verify rejected: no pending code", "email", email)
		return nil, ErrInvalidOtp
	case !time.Now().Before(acct.PendingOtp.ExpiresAt):
		// Expiry leaves the stored code in place; only success clears it.
		slog.Info("otp verify rejected: code expired", "email", email)
		return nil, ErrInvalidOtp
	case bcrypt.CompareHashAndPassword([]byte(acct.PendingOtp.CodeHash), []byte(code)) != nil:
		slog.Info("otp verify rejected: code mismatch", "email", email)
		return nil, ErrInvalidOtp
	}

	acct, err = v.Store.SetPendingOtp(ctx, email, nil)
	if err != nil {
		return nil, err
	}
	acct.Verified = true
	if err := v.Store.Save(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}
