package models

import "time"

// NamedResource is the {name, url} pair the remote source uses for references.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

type AbilitySlot struct {
	Ability  NamedResource `json:"ability"`
	IsHidden bool          `json:"is_hidden"`
	Slot     int           `json:"slot"`
}

type Stat struct {
	BaseStat int           `json:"base_stat"`
	Effort   int           `json:"effort"`
	Stat     NamedResource `json:"stat"`
}

type SpritePair struct {
	FrontDefault *string `json:"front_default"`
	FrontShiny   *string `json:"front_shiny"`
}

type OtherSprites struct {
	OfficialArtwork SpritePair  `json:"official-artwork"`
	Home            *SpritePair `json:"home,omitempty"`
	Showdown        *SpritePair `json:"showdown,omitempty"`
}

type Sprites struct {
	FrontDefault *string      `json:"front_default"`
	FrontShiny   *string      `json:"front_shiny"`
	Other        OtherSprites `json:"other"`
}

// Pokemon is one catalog row. Generation is always derived from ID.
type Pokemon struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Height         int           `json:"height"`
	Weight         int           `json:"weight"`
	BaseExperience int           `json:"base_experience"`
	Types          []TypeSlot    `json:"types"`
	Abilities      []AbilitySlot `json:"abilities"`
	Stats          []Stat        `json:"stats"`
	Sprites        Sprites       `json:"sprites"`
	Generation     int           `json:"generation"`
	UpdatedAt      time.Time     `json:"updated_at,omitempty"`
}

// ArtworkURL picks the official artwork, falling back to the plain front sprite.
func (p Pokemon) ArtworkURL() string {
	if u := p.Sprites.Other.OfficialArtwork.FrontDefault; u != nil && *u != "" {
		return *u
	}
	if u := p.Sprites.FrontDefault; u != nil {
		return *u
	}
	return ""
}

// TypeNames lists type names in slot order.
func (p Pokemon) TypeNames() []string {
	out := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		out = append(out, t.Type.Name)
	}
	return out
}
