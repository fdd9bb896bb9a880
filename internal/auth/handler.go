package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"shinydex/internal/apperr"
	"shinydex/internal/constants"
)

type Handler struct {
	Repo   *Repo
	Tokens TokenService
	logger zerolog.Logger
}

func NewHandler(repo *Repo, tokens TokenService, logger zerolog.Logger) *Handler {
	return &Handler{Repo: repo, Tokens: tokens, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	required := AuthMiddleware(NewVerifier(h.Tokens, h.Repo))

	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/change-password", required, h.changePassword)
	rg.POST("/logout", required, h.logout)
	rg.GET("/me", required, h.me)
}

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid json"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if len(req.Username) < 3 || len(req.Username) > 30 {
		apperr.Respond(c, apperr.Validation("username must be 3-30 chars"))
		return
	}
	if !strings.Contains(req.Email, "@") || len(req.Email) > 255 {
		apperr.Respond(c, apperr.Validation("invalid email"))
		return
	}
	// bcrypt ignores anything past 72 bytes
	if len(req.Password) < 8 || len(req.Password) > 72 {
		apperr.Respond(c, apperr.Validation("password must be 8-72 chars"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error().Err(err).Msg("hash password")
		apperr.Respond(c, apperr.Internal("hash password", err))
		return
	}

	u := User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := h.Repo.CreateUser(c.Request.Context(), u); err != nil {
		if !errors.Is(err, apperr.ErrConflict) {
			h.logger.Error().Err(err).Str("username", u.Username).Msg("create user")
		}
		apperr.Respond(c, err)
		return
	}

	h.logger.Info().Str("user_id", u.ID).Str("username", u.Username).Msg("user registered")
	h.issue(c, http.StatusCreated, &u)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid json"))
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		apperr.Respond(c, apperr.Validation("email and password required"))
		return
	}

	u, err := h.Repo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		h.logger.Error().Err(err).Msg("lookup user")
		apperr.Respond(c, apperr.Internal("lookup user", err))
		return
	}
	// same answer for unknown email and wrong password
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		apperr.Respond(c, apperr.Unauthenticated("invalid credentials"))
		return
	}

	h.issue(c, http.StatusOK, u)
}

// issue signs a token for u, sets the session cookie and writes the login body.
func (h *Handler) issue(c *gin.Context, status int, u *User) {
	token, exp, err := h.Tokens.Sign(u)
	if err != nil {
		h.logger.Error().Err(err).Msg("sign token")
		apperr.Respond(c, apperr.Internal("sign token", err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.SessionCookie, token, int(time.Until(exp).Seconds()), "/", "", c.Request.TLS != nil, true)

	c.JSON(status, gin.H{
		"user": Identity{
			UserID:   u.ID,
			Username: u.Username,
			Email:    u.Email,
		},
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid json"))
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		apperr.Respond(c, apperr.Validation("old and new password required"))
		return
	}
	if len(req.NewPassword) < 8 || len(req.NewPassword) > 72 {
		apperr.Respond(c, apperr.Validation("password must be 8-72 chars"))
		return
	}

	claims := MustGetClaims(c)
	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || u == nil {
		apperr.Respond(c, apperr.Unauthenticated("invalid token"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)); err != nil {
		apperr.Respond(c, apperr.Unauthenticated("invalid credentials"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		apperr.Respond(c, apperr.Internal("hash password", err))
		return
	}

	if err := h.Repo.UpdatePasswordAndBumpTokenVersion(c.Request.Context(), u.ID, string(hash)); err != nil {
		h.logger.Error().Err(err).Str("user_id", u.ID).Msg("update password")
		apperr.Respond(c, err)
		return
	}

	clearSession(c)
	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

func (h *Handler) logout(c *gin.Context) {
	claims := MustGetClaims(c)
	if err := h.Repo.BumpTokenVersion(c.Request.Context(), claims.UserID); err != nil {
		h.logger.Error().Err(err).Str("user_id", claims.UserID).Msg("logout")
		apperr.Respond(c, err)
		return
	}

	clearSession(c)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) me(c *gin.Context) {
	id, _ := IdentityFrom(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user": id})
}

func clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
}
