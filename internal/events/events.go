package events

import "time"

const (
	TypeCaptureAdd     = "capture.add"
	TypeCaptureRelease = "capture.release"
	TypeSyncProgress   = "sync.progress"
	TypeSyncDone       = "sync.done"
	TypeSyncFailed     = "sync.failed"
)

// Publisher is what producers need from the hub.
type Publisher interface {
	BroadcastJSON(v any)
}

type CaptureEvent struct {
	Type        string    `json:"type"` // "capture.add" or "capture.release"
	UserID      string    `json:"user_id"`
	PokemonID   int       `json:"pokemon_id"`
	PokemonName string    `json:"pokemon_name,omitempty"`
	At          time.Time `json:"at"`
}

type SyncEvent struct {
	Type       string    `json:"type"` // "sync.progress", "sync.done" or "sync.failed"
	Generation int       `json:"generation,omitempty"`
	Name       string    `json:"name,omitempty"`
	Range      string    `json:"range,omitempty"`
	Count      int       `json:"count"`
	Total      int       `json:"total,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}
