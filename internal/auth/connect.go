package auth

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"shinydex/internal/apperr"
	"shinydex/internal/constants"
)

// ConnectInterceptor is UnaryInterceptor for Connect handlers. Browsers calling
// through the API server may send the session cookie instead of a header.
func ConnectInterceptor(v Verifier) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			raw := BearerToken(req.Header().Get("Authorization"))
			if raw == "" {
				r := http.Request{Header: req.Header()}
				if ck, err := r.Cookie(constants.SessionCookie); err == nil {
					raw = ck.Value
				}
			}
			if raw == "" {
				return next(ctx, req)
			}

			claims, err := v.Verify(ctx, raw)
			if err != nil {
				return nil, connect.NewError(connect.Code(apperr.GRPCCode(err)), errors.New(apperr.Message(err)))
			}
			return next(WithIdentity(ctx, claims.Identity()), req)
		}
	}
}
