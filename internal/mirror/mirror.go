// Package mirror keeps an offline copy of the remote catalog: a JSON file of
// PokeAPI-shaped records exported from the local store, and a server that
// answers GET /pokemon/{id} from it so a sync can run without the network.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"shinydex/internal/pokeapi"
	"shinydex/pkg/models"
)

const DefaultPath = "data/mirror/pokemon.json"

// Source streams catalog rows in id order.
type Source interface {
	All(ctx context.Context, fn func(models.Pokemon) error) error
}

// Export writes every row of src to w as a JSON array and returns the count.
func Export(ctx context.Context, src Source, w io.Writer) (int, error) {
	out := []pokeapi.Pokemon{}
	err := src.All(ctx, func(p models.Pokemon) error {
		out = append(out, pokeapi.FromRecord(p))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read catalog: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 0, fmt.Errorf("encode mirror: %w", err)
	}
	return len(out), nil
}

// ExportFile is Export into path, creating parent directories.
func ExportFile(ctx context.Context, src Source, path string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := Export(ctx, src, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	return n, err
}

// Load reads a mirror file into an id index.
func Load(path string) (map[int]pokeapi.Pokemon, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mirror: %w", err)
	}
	var list []pokeapi.Pokemon
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("mirror %s is not valid JSON: %w", path, err)
	}
	byID := make(map[int]pokeapi.Pokemon, len(list))
	for _, p := range list {
		byID[p.ID] = p
	}
	return byID, nil
}

type Handler struct {
	byID   map[int]pokeapi.Pokemon
	logger zerolog.Logger
}

func NewHandler(byID map[int]pokeapi.Pokemon, logger zerolog.Logger) *Handler {
	return &Handler{byID: byID, logger: logger}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/pokemon/:id", h.get)
}

func (h *Handler) get(c *gin.Context) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pokemon id"})
		return
	}
	p, ok := h.byID[id]
	if !ok {
		h.logger.Debug().Int("pokemon_id", id).Msg("not in mirror")
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}
