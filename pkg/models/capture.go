package models

import "time"

// Capture is one entry of a user's shiny living dex. Name, image and types are a
// snapshot taken at capture time and are not refreshed by later syncs.
type Capture struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	PokemonID    int        `json:"pokemon_id"`
	PokemonName  string     `json:"pokemon_name"`
	PokemonImage string     `json:"pokemon_image,omitempty"`
	PokemonTypes []TypeSlot `json:"pokemon_types"`
	IsShiny      bool       `json:"is_shiny"`
	CapturedAt   time.Time  `json:"captured_at"`
}
