package pokeapi

import (
	"strings"

	"shinydex/internal/generation"
	"shinydex/pkg/models"
)

// Pokemon is the subset of GET /pokemon/{id} the catalog keeps.
type Pokemon struct {
	ID             int                  `json:"id"`
	Name           string               `json:"name"`
	Height         int                  `json:"height"`
	Weight         int                  `json:"weight"`
	BaseExperience *int                 `json:"base_experience"`
	Types          []models.TypeSlot    `json:"types"`
	Abilities      []models.AbilitySlot `json:"abilities"`
	Stats          []models.Stat        `json:"stats"`
	Sprites        models.Sprites       `json:"sprites"`
}

// Record normalizes the remote payload into a catalog row.
func (p *Pokemon) Record() models.Pokemon {
	baseExp := 0
	if p.BaseExperience != nil && *p.BaseExperience > 0 {
		baseExp = *p.BaseExperience
	}

	types := p.Types
	if types == nil {
		types = []models.TypeSlot{}
	}
	abilities := p.Abilities
	if abilities == nil {
		abilities = []models.AbilitySlot{}
	}
	stats := p.Stats
	if stats == nil {
		stats = []models.Stat{}
	}

	return models.Pokemon{
		ID:             p.ID,
		Name:           strings.ToLower(strings.TrimSpace(p.Name)),
		Height:         p.Height,
		Weight:         p.Weight,
		BaseExperience: baseExp,
		Types:          types,
		Abilities:      abilities,
		Stats:          stats,
		Sprites:        p.Sprites,
		Generation:     generation.IDOf(p.ID),
	}
}

// FromRecord turns a catalog row back into the remote shape. The mirror server
// uses it to serve an offline copy of the source.
func FromRecord(r models.Pokemon) Pokemon {
	baseExp := r.BaseExperience
	return Pokemon{
		ID:             r.ID,
		Name:           r.Name,
		Height:         r.Height,
		Weight:         r.Weight,
		BaseExperience: &baseExp,
		Types:          r.Types,
		Abilities:      r.Abilities,
		Stats:          r.Stats,
		Sprites:        r.Sprites,
	}
}
