package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"shinydex/internal/apperr"
)

// UnaryInterceptor resolves a bearer token from the "authorization" metadata.
// Calls without one stay anonymous; methods that need a user reject them.
func UnaryInterceptor(v Verifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)

		var raw string
		for _, h := range md.Get("authorization") {
			if raw = BearerToken(h); raw != "" {
				break
			}
		}
		if raw == "" {
			return handler(ctx, req)
		}

		claims, err := v.Verify(ctx, raw)
		if err != nil {
			return nil, status.Error(apperr.GRPCCode(err), apperr.Message(err))
		}
		return handler(WithIdentity(ctx, claims.Identity()), req)
	}
}
