package papertrail

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the validity window for bearer session tokens. The
// same window applies to OTP-path and federated-path sessions.
const DefaultSessionTTL = 24 * time.Hour

// SessionClaims is the authenticated identity carried by a session token.
type SessionClaims struct {
	AccountID string `json:"id"`
	Email     string `json:"email"`
}

// SessionIssuer mints signed, time-bounded bearer tokens encoding account
// identity. The secret key is process-wide state: set once at startup, held
// for the process lifetime, never rotated at runtime (rotation would
// invalidate every outstanding token).
type SessionIssuer struct {
	SecretKey string
	Issuer    string

	// TTL for issued tokens. Defaults to DefaultSessionTTL.
	TTL time.Duration
}

// Issue mints a token for a verified account. Handing an unverified account
// to Issue is a caller bug and fails with ErrAccountNotVerified.
func (s *SessionIssuer) Issue(acct *Account) (string, error) {
	if !acct.Verified {
		return "", ErrAccountNotVerified
	}

	ttl := s.TTL
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   acct.ID,
		"email": acct.Email,
		"iss":   s.Issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	})
	tokenString, err := token.SignedString([]byte(s.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// SessionValidator parses and verifies bearer tokens. There is no server-side
// session table; validity is signature plus expiry at verification time.
type SessionValidator struct {
	SecretKey string
	Issuer    string
}

// Validate checks a token string and returns the identity it encodes.
// Failures map onto ErrMissingToken, ErrMalformedToken, ErrExpiredToken and
// ErrInvalidClaims; the guard at the operation boundary collapses all four
// into one unauthorized response.
func (s *SessionValidator) Validate(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if !token.Valid {
		return nil, ErrMalformedToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	if s.Issuer != "" {
		if iss, _ := claims["iss"].(string); iss != s.Issuer {
			return nil, ErrInvalidClaims
		}
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		return nil, ErrInvalidClaims
	}
	return &SessionClaims{AccountID: sub, Email: email}, nil
}
