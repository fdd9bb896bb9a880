package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"shinydex/internal/apperr"
	"shinydex/internal/generation"
)

// generationPageLimit is the default page size of the per-generation listing.
const generationPageLimit = 50

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)                         // GET /pokemon
	rg.GET("/types", h.types)                  // GET /pokemon/types
	rg.POST("/types", h.byType)                // POST /pokemon/types
	rg.GET("/generations", h.generations)      // GET /pokemon/generations
	rg.GET("/generation/:gen", h.byGeneration) // GET /pokemon/generation/:gen
	rg.GET("/search", h.search)                // GET /pokemon/search?q=
	rg.GET("/:id", h.getByID)                  // GET /pokemon/:id
}

func (h *Handler) list(c *gin.Context) {
	f, err := ParseFilter(c.Request.URL.Query())
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	page, err := h.Service.ListPokemon(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getByID(c *gin.Context) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Param("id")))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid pokemon id"))
		return
	}

	p, err := h.Service.GetPokemon(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) types(c *gin.Context) {
	types, err := h.Service.Types(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"types": types})
}

type byTypeRequest struct {
	Type  string `json:"type"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

func (h *Handler) byType(c *gin.Context) {
	var req byTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid body"))
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		apperr.Respond(c, apperr.Validation("type is required"))
		return
	}
	if req.Page < 0 || req.Limit < 0 {
		apperr.Respond(c, apperr.Validation("page and limit must be positive"))
		return
	}

	page, err := h.Service.ListPokemon(c.Request.Context(), Filter{
		Type:  req.Type,
		Page:  req.Page,
		Limit: req.Limit,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"type":       strings.ToLower(strings.TrimSpace(req.Type)),
		"pokemon":    page.Pokemon,
		"pagination": page.Pagination,
	})
}

func (h *Handler) byGeneration(c *gin.Context) {
	gen, err := strconv.Atoi(strings.TrimSpace(c.Param("gen")))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid generation, must be between 1 and 9"))
		return
	}
	if _, ok := generation.ByID(gen); !ok {
		apperr.Respond(c, apperr.Validation("invalid generation, must be between 1 and 9"))
		return
	}

	q := c.Request.URL.Query()
	q.Del("generation")
	if q.Get("limit") == "" {
		q.Set("limit", strconv.Itoa(generationPageLimit))
	}
	f, err := ParseFilter(q)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	f.Generations = []int{gen}

	page, err := h.Service.ListPokemon(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generation": gen,
		"pokemon":    page.Pokemon,
		"pagination": page.Pagination,
	})
}

func (h *Handler) generations(c *gin.Context) {
	gens, err := h.Service.Generations(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"generations": gens, "total": generation.Total})
}

func (h *Handler) search(c *gin.Context) {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		apperr.Respond(c, apperr.Validation("q is required"))
		return
	}

	out, err := h.Service.Search(c.Request.Context(), q)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pokemon": out})
}
