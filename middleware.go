package papertrail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type claimsContextKey struct{}

// Middleware is the authenticated-request guard consulted by every protected
// operation. It recovers the caller's identity from a bearer header, an auth
// cookie or an optional server-side web session, in that order of preference
// for API calls and the reverse for browser flows.
type Middleware struct {
	AuthTokenHeaderName string
	AuthTokenCookieName string

	// Validator verifies bearer tokens.
	Validator *SessionValidator

	// SessionGetter optionally recovers claims from a server-side web session
	// (for browser flows that do not resend the bearer token).
	SessionGetter func(r *http.Request) *SessionClaims

	// GetRedirURL, when set, makes EnsureAccount redirect unauthenticated
	// browsers to a login page instead of returning 401.
	GetRedirURL      func(r *http.Request) string
	CallbackURLParam string
}

// EnsureReasonableDefaults fills in default config values.
func (a *Middleware) EnsureReasonableDefaults() {
	if a.AuthTokenHeaderName == "" {
		a.AuthTokenHeaderName = "Authorization"
	}
	if a.CallbackURLParam == "" {
		a.CallbackURLParam = "callbackURL"
	}
}

// ClaimsFromRequest extracts and validates the caller identity on a request.
// All validation failures are reported to HTTP callers identically; the
// distinct sentinel errors exist for logging.
func (a *Middleware) ClaimsFromRequest(r *http.Request) (*SessionClaims, error) {
	a.EnsureReasonableDefaults()

	if a.SessionGetter != nil {
		if claims := a.SessionGetter(r); claims != nil {
			return claims, nil
		}
	}

	var tokens []string
	for _, header := range r.Header.Values(a.AuthTokenHeaderName) {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokens = append(tokens, strings.TrimSpace(parts[1]))
		}
	}
	if a.AuthTokenCookieName != "" {
		for _, cookie := range r.CookiesNamed(a.AuthTokenCookieName) {
			if cookie.Value != "" {
				tokens = append(tokens, cookie.Value)
			}
		}
	}
	if len(tokens) == 0 {
		return nil, ErrMissingToken
	}

	err := error(ErrMissingToken)
	for _, token := range tokens {
		var claims *SessionClaims
		claims, err = a.Validator.Validate(token)
		if err == nil {
			return claims, nil
		}
		slog.Warn("rejected bearer token", "err", err)
	}
	return nil, err
}

// ExtractAccount loads the caller identity into the request context when
// present. It performs no rejection; use EnsureAccount to enforce login.
func (a *Middleware) ExtractAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ClaimsFromRequest(r)
		if err == nil {
			r = r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims))
		}
		next.ServeHTTP(w, r)
	})
}

// EnsureAccount rejects requests without a valid identity. Every token
// failure collapses into the same unauthorized response.
func (a *Middleware) EnsureAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ClaimsFromRequest(r)
		if err != nil {
			if a.GetRedirURL != nil {
				if redirURL := a.GetRedirURL(r); redirURL != "" {
					encoded := strings.Replace(url.QueryEscape(r.URL.Path), "+", "%20", -1)
					http.Redirect(w, r, fmt.Sprintf("%s?%s=%s", redirURL, a.CallbackURLParam, encoded), http.StatusFound)
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"error": "Not authorized",
				"code":  ErrCodeUnauthorized,
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims)))
	})
}

// ClaimsFromContext returns the identity placed on the context by the
// middleware, or nil for an unauthenticated request.
func ClaimsFromContext(ctx context.Context) *SessionClaims {
	claims, _ := ctx.Value(claimsContextKey{}).(*SessionClaims)
	return claims
}
