package dexsync

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"shinydex/internal/apperr"
)

type Handler struct {
	Runner *Runner
}

func NewHandler(r *Runner) *Handler {
	return &Handler{Runner: r}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.start)        // POST /sync
	rg.GET("/status", h.status) // GET /sync/status
}

type startRequest struct {
	Generation int `json:"generation"`
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	// an empty body means "all generations"
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apperr.Respond(c, apperr.Validation("invalid body"))
		return
	}

	if err := h.Runner.Start(req.Generation); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "sync started",
		"status":  h.Runner.Status(),
	})
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.Runner.Status())
}
