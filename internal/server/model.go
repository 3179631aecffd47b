package server

import (
	"github.com/google/uuid"

	"github.com/divVerent/midinotate/internal/report"
	"github.com/divVerent/midinotate/internal/session"
	"github.com/divVerent/midinotate/internal/transcribe"
)

type ErrorResponse struct {
	Error string `json:"detail"`
}

type TrackInfo struct {
	ID         int                   `json:"id"`
	Name       string                `json:"name,omitempty"`
	Instrument transcribe.Instrument `json:"instrument"`
	Notes      int                   `json:"notes"`
}

type SessionResponse struct {
	ID     uuid.UUID     `json:"id"`
	State  session.State `json:"state"`
	Tracks []TrackInfo   `json:"tracks"`
}

type ConfigResponse struct {
	Base   transcribe.Config         `json:"base"`
	Tracks map[int]transcribe.Config `json:"tracks"`
}

// ConfigRequest edits the options of a session. A base replaces the config
// of every track without one of its own; track overlays are applied on top.
type ConfigRequest struct {
	Base   *transcribe.Config         `json:"base,omitempty"`
	Tracks map[int]transcribe.Overlay `json:"tracks,omitempty"`
}

type ApplyResponse struct {
	Revision    uuid.UUID               `json:"revision"`
	Summary     report.Summary          `json:"summary"`
	Diagnostics []transcribe.Diagnostic `json:"diagnostics"`
}

type RevisionResponse struct {
	Revision uuid.UUID         `json:"revision"`
	Score    *transcribe.Score `json:"score"`
}
