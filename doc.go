// Package papertrail implements the credential issuance and verification core
// for the Papertrail notes service: passwordless email-OTP sign-in, federated
// identity merging and stateless bearer sessions.
//
// # Architecture
//
// Account: the single identity entity, keyed by a case-insensitively unique
// email. Accounts are created by a signup-mode OTP request or by the first
// federated sign-in for an email.
//
// OTP: a 6-digit passcode with a 5 minute window. At most one passcode is
// outstanding per account; re-issuing always supersedes the prior code, and
// only a successful verification consumes it.
//
// Session: a signed HS256 JWT encoding account id and email. There is no
// server-side session table; logout is client-side token discard.
//
// # Basic Usage
//
// Wire the core against an account store and a delivery channel:
//
//	store := stores.NewMemoryAccountStore()
//	issuer := &papertrail.OtpIssuer{Store: store, Sender: &papertrail.ConsoleOtpSender{}}
//	verifier := &papertrail.OtpVerifier{Store: store}
//	merger := &papertrail.IdentityMerger{Store: store}
//	sessions := &papertrail.SessionIssuer{SecretKey: secret, Issuer: "papertrail"}
//	validator := &papertrail.SessionValidator{SecretKey: secret, Issuer: "papertrail"}
//
//	auth := &papertrail.AuthHandler{
//	    Issuer: issuer, Verifier: verifier, Merger: merger,
//	    Sessions: sessions, Store: store, FrontendURL: "http://localhost:8080",
//	}
//	guard := &papertrail.Middleware{Validator: validator}
//
//	mux.HandleFunc("/auth/request-otp", auth.HandleRequestOtp)
//	mux.HandleFunc("/auth/verify-otp", auth.HandleVerifyOtp)
//	mux.Handle("/auth/me", guard.EnsureAccount(http.HandlerFunc(auth.HandleMe)))
//
// # Store Implementations
//
// The stores package provides an in-memory implementation suitable for
// development and tests. Database-backed stores live in stores/gorm,
// stores/mongo and stores/gae; all of them provide the per-email atomicity
// the issuer relies on.
//
// # Security
//
// Passcodes are drawn uniformly from [100000, 999999] via crypto/rand and
// stored as bcrypt digests. Verification failures (missing, mismatched or
// expired code) are indistinguishable to the caller, and session validation
// failures collapse into a single unauthorized response at the guard.
// The signing secret is set once at process start and never rotated at
// runtime.
package papertrail
