package papertrail

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/alexedwards/scs/v2"
)

// AuthHandler exposes the credential issuance and verification operations
// over HTTP. All request bodies are explicit typed structs validated at the
// boundary before the core is reached.
type AuthHandler struct {
	Issuer   *OtpIssuer
	Verifier *OtpVerifier
	Merger   *IdentityMerger
	Sessions *SessionIssuer
	Store    AccountStore

	// FrontendURL is where federated callbacks redirect with the issued token.
	FrontendURL string

	// WebSession optionally mirrors the logged-in identity into a server-side
	// session for browser flows.
	WebSession *scs.SessionManager
}

// HandleRequestOtp handles POST /auth/request-otp.
func (h *AuthHandler) HandleRequestOtp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAuthError(w, NewAuthError("invalid_request", "Method not allowed", ""), http.StatusMethodNotAllowed)
		return
	}

	var req RequestOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, NewAuthError("parse_error", "Invalid post body", ""), http.StatusBadRequest)
		return
	}
	profile, authErr := req.Validate()
	if authErr != nil {
		writeAuthError(w, authErr, http.StatusBadRequest)
		return
	}

	err := h.Issuer.Issue(r.Context(), req.Email, OtpMode(req.Mode), profile)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "OTP sent successfully to email",
		})
	case errors.Is(err, ErrAccountNotFound):
		writeAuthError(w, NewAuthError(ErrCodeAccountNotFound, "No account found for this email. Please sign up first.", "email"), http.StatusNotFound)
	case errors.Is(err, ErrDeliveryFailed):
		// Provider detail stays in the logs; callers get the generic message.
		writeAuthError(w, NewAuthError(ErrCodeDeliveryFailed, "Could not send code", ""), http.StatusInternalServerError)
	default:
		log.Println("error issuing otp: ", err)
		writeAuthError(w, NewAuthError("server_error", "Failed to send OTP", ""), http.StatusInternalServerError)
	}
}

// HandleVerifyOtp handles POST /auth/verify-otp.
func (h *AuthHandler) HandleVerifyOtp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAuthError(w, NewAuthError("invalid_request", "Method not allowed", ""), http.StatusMethodNotAllowed)
		return
	}

	var req VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, NewAuthError("parse_error", "Invalid post body", ""), http.StatusBadRequest)
		return
	}
	if authErr := req.Validate(); authErr != nil {
		writeAuthError(w, authErr, http.StatusBadRequest)
		return
	}

	acct, err := h.Verifier.Verify(r.Context(), req.Email, req.Otp)
	switch {
	case err == nil:
		// verified, fall through to session issuance
	case errors.Is(err, ErrAccountNotFound):
		writeAuthError(w, NewAuthError(ErrCodeAccountNotFound, "No account found for this email", "email"), http.StatusNotFound)
		return
	case errors.Is(err, ErrInvalidOtp):
		writeAuthError(w, NewAuthError(ErrCodeOtpRejected, "Invalid or expired OTP", "otp"), http.StatusBadRequest)
		return
	default:
		log.Println("error verifying otp: ", err)
		writeAuthError(w, NewAuthError("server_error", "Failed to verify OTP", ""), http.StatusInternalServerError)
		return
	}

	token, err := h.Sessions.Issue(acct)
	if err != nil {
		log.Println("error issuing session token: ", err)
		writeAuthError(w, NewAuthError("server_error", "Failed to create session", ""), http.StatusInternalServerError)
		return
	}
	h.putWebSession(r, acct)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "OTP verified successfully",
		"token":   token,
		"account": accountPayload(acct),
	})
}

// HandleMe handles GET /auth/me. Mount it behind Middleware.EnsureAccount.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeAuthError(w, NewAuthError(ErrCodeUnauthorized, "Not authorized", ""), http.StatusUnauthorized)
		return
	}
	acct, err := h.Store.GetByID(r.Context(), claims.AccountID)
	if err != nil {
		writeAuthError(w, NewAuthError(ErrCodeAccountNotFound, "Account not found", ""), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, accountPayload(acct))
}

// HandleAssertion terminates a successful federated sign-in: it resolves the
// assertion to exactly one account, mints a session token and redirects the
// browser back to the frontend with the token embedded for the client to
// capture. It satisfies the oauth2 package's AssertionHandler contract.
func (h *AuthHandler) HandleAssertion(assertion FederatedAssertion, w http.ResponseWriter, r *http.Request) {
	acct, err := h.Merger.Resolve(r.Context(), assertion)
	if err != nil {
		log.Println("error resolving federated identity: ", err)
		h.RedirectFailure(w, r)
		return
	}
	token, err := h.Sessions.Issue(acct)
	if err != nil {
		log.Println("error issuing session token: ", err)
		h.RedirectFailure(w, r)
		return
	}
	h.putWebSession(r, acct)

	user, _ := json.Marshal(map[string]any{
		"id":    acct.ID,
		"name":  acct.Name,
		"email": acct.Email,
	})
	target := fmt.Sprintf("%s/auth/callback?token=%s&user=%s",
		h.FrontendURL, url.QueryEscape(token), url.QueryEscape(string(user)))
	http.Redirect(w, r, target, http.StatusFound)
}

// RedirectFailure sends the browser back to the frontend sign-in page after a
// failed federated flow.
func (h *AuthHandler) RedirectFailure(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.FrontendURL+"/auth?error=oauth_failed", http.StatusFound)
}

func (h *AuthHandler) putWebSession(r *http.Request, acct *Account) {
	if h.WebSession == nil {
		return
	}
	h.WebSession.Put(r.Context(), "accountId", acct.ID)
	h.WebSession.Put(r.Context(), "accountEmail", acct.Email)
}

// SessionClaimsGetter adapts a web session manager into the Middleware's
// session fallback.
func SessionClaimsGetter(session *scs.SessionManager) func(r *http.Request) *SessionClaims {
	return func(r *http.Request) *SessionClaims {
		id := session.GetString(r.Context(), "accountId")
		email := session.GetString(r.Context(), "accountEmail")
		if id == "" || email == "" {
			return nil
		}
		return &SessionClaims{AccountID: id, Email: email}
	}
}

func accountPayload(acct *Account) map[string]any {
	payload := map[string]any{
		"id":          acct.ID,
		"name":        acct.Name,
		"email":       acct.Email,
		"is_verified": acct.Verified,
	}
	if acct.DateOfBirth != nil {
		payload["dob"] = acct.DateOfBirth.Format(time.DateOnly)
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeAuthError(w http.ResponseWriter, err *AuthError, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(err)
}
