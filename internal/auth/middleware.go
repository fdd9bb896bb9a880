package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"shinydex/internal/apperr"
	"shinydex/internal/constants"
)

const CtxClaimsKey = "auth_claims"

// Verifier turns a raw token into claims and rejects revoked tokens.
type Verifier struct {
	Tokens TokenService
	Repo   *Repo // nil skips the token version check
}

func NewVerifier(tokens TokenService, repo *Repo) Verifier {
	return Verifier{Tokens: tokens, Repo: repo}
}

func (v Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims, err := v.Tokens.Parse(raw)
	if err != nil {
		return nil, apperr.Unauthenticated("invalid token")
	}
	if v.Repo != nil {
		current, ok, err := v.Repo.GetTokenVersion(ctx, claims.UserID)
		if err != nil {
			return nil, apperr.Internal("token version", err)
		}
		if !ok || current != claims.TokenVersion {
			return nil, apperr.Unauthenticated("invalid token")
		}
	}
	return claims, nil
}

// BearerToken extracts the token of an "Authorization: Bearer ..." value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// tokenFromRequest prefers the Authorization header, then the session cookie.
func tokenFromRequest(c *gin.Context) string {
	if t := BearerToken(c.GetHeader("Authorization")); t != "" {
		return t
	}
	if cookie, err := c.Cookie(constants.SessionCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

func attach(c *gin.Context, claims *Claims) {
	c.Set(CtxClaimsKey, claims)
	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), claims.Identity()))
}

// AuthMiddleware rejects requests without a valid token with 401.
func AuthMiddleware(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFromRequest(c)
		if raw == "" {
			apperr.Abort(c, apperr.Unauthenticated("not authenticated"))
			return
		}

		claims, err := v.Verify(c.Request.Context(), raw)
		if err != nil {
			apperr.Abort(c, err)
			return
		}

		attach(c, claims)
		c.Next()
	}
}

// OptionalMiddleware resolves the identity when a valid token is present and
// lets anonymous requests through otherwise.
func OptionalMiddleware(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := tokenFromRequest(c); raw != "" {
			if claims, err := v.Verify(c.Request.Context(), raw); err == nil {
				attach(c, claims)
			}
		}
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
