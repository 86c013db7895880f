package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papertrailhq/papertrail"
)

// TokenValidator validates a raw session token and returns its claims.
// *papertrail.SessionValidator satisfies it.
type TokenValidator interface {
	Validate(token string) (*papertrail.SessionClaims, error)
}

// InterceptorConfig configures the auth interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// Validator checks the bearer token from metadata.
	Validator TokenValidator

	// RequireAuth when true rejects unauthenticated requests.
	// When false, requests proceed but ClaimsFromContext returns nil.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Only used when RequireAuth is true.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig(validator TokenValidator) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		Validator:     validator,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(validator TokenValidator, publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig(validator)
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig(validator TokenValidator) *InterceptorConfig {
	config := DefaultInterceptorConfig(validator)
	config.RequireAuth = false
	return config
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that validates the
// bearer session token from metadata and attaches its claims to the context.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	if config.Config == nil {
		config.Config = DefaultConfig()
	}
	config.Config.EnsureDefaults()

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		claims := extractClaims(ctx, config)

		if claims == nil && config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		if claims != nil {
			ctx = ContextWithClaims(ctx, claims)
		}

		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns a gRPC stream interceptor that validates the
// bearer session token from metadata.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	if config.Config == nil {
		config.Config = DefaultConfig()
	}
	config.Config.EnsureDefaults()

	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := ss.Context()
		claims := extractClaims(ctx, config)

		if claims == nil && config.RequireAuth && !config.PublicMethods[info.FullMethod] {
			return status.Error(codes.Unauthenticated, "authentication required")
		}
		if claims != nil {
			ss = &claimsServerStream{ServerStream: ss, ctx: ContextWithClaims(ctx, claims)}
		}

		return handler(srv, ss)
	}
}

// claimsServerStream overrides Context() so handlers see the claims.
type claimsServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *claimsServerStream) Context() context.Context { return s.ctx }

// extractClaims validates the metadata token. Invalid and absent tokens are
// treated the same: no claims.
func extractClaims(ctx context.Context, config *InterceptorConfig) *papertrail.SessionClaims {
	token := tokenFromMetadata(ctx, config.Config)
	if token == "" || config.Validator == nil {
		return nil
	}
	claims, err := config.Validator.Validate(token)
	if err != nil {
		return nil
	}
	return claims
}
