package captures

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"shinydex/internal/apperr"
	"shinydex/internal/auth"
	"shinydex/pkg/models"
)

// Catalog resolves a pokemon id into the row a snapshot is taken from.
type Catalog interface {
	GetPokemon(ctx context.Context, id int) (*models.Pokemon, error)
}

type Handler struct {
	Ledger  *Ledger
	Catalog Catalog
}

func NewHandler(l *Ledger, cat Catalog) *Handler {
	return &Handler{Ledger: l, Catalog: cat}
}

// RegisterRoutes expects rg to already run auth.AuthMiddleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)                   // GET /captures
	rg.POST("", h.capture)               // POST /captures
	rg.GET("/stats", h.stats)            // GET /captures/stats
	rg.GET("/:pokemon_id", h.isCaptured) // GET /captures/:pokemon_id
	rg.DELETE("/:pokemon_id", h.release) // DELETE /captures/:pokemon_id
}

// Entry is the display shape of a capture, matching the catalog's sprite nesting.
type Entry struct {
	ID         int               `json:"id"`
	Name       string            `json:"name"`
	Sprites    entrySprites      `json:"sprites"`
	Types      []models.TypeSlot `json:"types"`
	IsShiny    bool              `json:"isShiny"`
	CapturedAt time.Time         `json:"capturedAt"`
}

type entrySprites struct {
	Other struct {
		OfficialArtwork struct {
			FrontDefault string `json:"front_default"`
		} `json:"official-artwork"`
	} `json:"other"`
}

func EntryOf(c models.Capture) Entry {
	e := Entry{
		ID:         c.PokemonID,
		Name:       c.PokemonName,
		Types:      c.PokemonTypes,
		IsShiny:    c.IsShiny,
		CapturedAt: c.CapturedAt,
	}
	e.Sprites.Other.OfficialArtwork.FrontDefault = c.PokemonImage
	if e.Types == nil {
		e.Types = []models.TypeSlot{}
	}
	return e
}

func (h *Handler) list(c *gin.Context) {
	rows, err := h.Ledger.List(c.Request.Context(), auth.UserIDFrom(c.Request.Context()))
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, EntryOf(r))
	}
	c.JSON(http.StatusOK, gin.H{"pokemon": out})
}

type captureReq struct {
	Pokemon   *models.Pokemon `json:"pokemon"`
	PokemonID int             `json:"pokemon_id"`
}

func (h *Handler) capture(c *gin.Context) {
	ctx := c.Request.Context()

	var req captureReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid json"))
		return
	}

	var snap Snapshot
	switch {
	case req.Pokemon != nil:
		snap = SnapshotOf(*req.Pokemon)
	case req.PokemonID != 0 && h.Catalog != nil:
		p, err := h.Catalog.GetPokemon(ctx, req.PokemonID)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		snap = SnapshotOf(*p)
	default:
		apperr.Respond(c, apperr.Validation("pokemon or pokemon_id required"))
		return
	}

	saved, err := h.Ledger.Capture(ctx, auth.UserIDFrom(ctx), snap)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"capture": EntryOf(saved)})
}

func pokemonIDParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Param("pokemon_id")))
	if err != nil {
		return 0, apperr.Validation("invalid pokemon id")
	}
	return id, nil
}

func (h *Handler) release(c *gin.Context) {
	id, err := pokemonIDParam(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	n, err := h.Ledger.Release(c.Request.Context(), auth.UserIDFrom(c.Request.Context()), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": n})
}

func (h *Handler) isCaptured(c *gin.Context) {
	id, err := pokemonIDParam(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	ok, err := h.Ledger.IsCaptured(c.Request.Context(), auth.UserIDFrom(c.Request.Context()), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pokemon_id": id, "captured": ok})
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.Ledger.Stats(c.Request.Context(), auth.UserIDFrom(c.Request.Context()))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
