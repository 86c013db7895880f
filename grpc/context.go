// Package grpc guards gRPC services with the same session tokens the HTTP
// surface issues. An interceptor pulls the bearer token out of incoming
// metadata, validates it and places the claims on the handler context.
package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/papertrailhq/papertrail"
)

// DefaultMetadataKeyAuthorization is the default gRPC metadata key carrying
// the bearer session token.
const DefaultMetadataKeyAuthorization = "authorization"

type claimsContextKey struct{}

// Config holds the metadata key configuration for the auth interceptors.
type Config struct {
	// MetadataKeyAuthorization is the gRPC metadata key for the bearer
	// session token. Defaults to "authorization".
	MetadataKeyAuthorization string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyAuthorization: DefaultMetadataKeyAuthorization,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyAuthorization == "" {
		c.MetadataKeyAuthorization = DefaultMetadataKeyAuthorization
	}
}

// ClaimsFromContext extracts the validated session claims placed on the
// context by the interceptor. Returns nil if the call was unauthenticated.
func ClaimsFromContext(ctx context.Context) *papertrail.SessionClaims {
	claims, _ := ctx.Value(claimsContextKey{}).(*papertrail.SessionClaims)
	return claims
}

// ContextWithClaims returns a context carrying the given session claims.
func ContextWithClaims(ctx context.Context, claims *papertrail.SessionClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// TokenToOutgoingContext adds a bearer session token to outgoing gRPC
// metadata, for clients calling an interceptor-guarded service.
func TokenToOutgoingContext(ctx context.Context, token string) context.Context {
	return TokenToOutgoingContextWithKey(ctx, token, DefaultMetadataKeyAuthorization)
}

// TokenToOutgoingContextWithKey adds a bearer token with a custom metadata key.
func TokenToOutgoingContextWithKey(ctx context.Context, token string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, "Bearer "+token)
}

// IsAuthenticated returns true if the interceptor authenticated this call.
func IsAuthenticated(ctx context.Context) bool {
	return ClaimsFromContext(ctx) != nil
}

// tokenFromMetadata pulls the raw session token out of incoming metadata.
// Returns "" when the call carries no usable token.
func tokenFromMetadata(ctx context.Context, config *Config) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(config.MetadataKeyAuthorization)
	if len(values) == 0 {
		return ""
	}
	value := values[0]
	if strings.HasPrefix(value, "Bearer ") {
		return strings.TrimPrefix(value, "Bearer ")
	}
	return value
}
