package sightings

import (
	"time"

	"pawhub/internal/domain/geo"
	"pawhub/internal/domain/tags"
)

// State del ciclo de vida de un sighting.
// uploaded -> classified -> pending_selection -> resolved | abandoned
type State string

const (
	StateUploaded         State = "uploaded"
	StateClassified       State = "classified"
	StatePendingSelection State = "pending_selection"
	StateResolved         State = "resolved"
	StateAbandoned        State = "abandoned"
)

func ParseState(s string) (State, bool) {
	switch State(s) {
	case StateUploaded, StateClassified, StatePendingSelection, StateResolved, StateAbandoned:
		return State(s), true
	default:
		return "", false
	}
}

func (s State) Terminal() bool {
	return s == StateResolved || s == StateAbandoned
}

// Resolvable indica si se puede salir del estado vía resolve/abandon.
func (s State) Resolvable() bool {
	return s == StateClassified || s == StatePendingSelection
}

var resolvableStates = []State{StateClassified, StatePendingSelection}

// Sighting es un avistamiento reportado: una foto + ubicación + momento.
// ProfileID nil = pendiente. Una vez resuelto, ProfileID no cambia más.
type Sighting struct {
	ID             string
	ReporterUserID string

	Location geo.Point
	MediaID  string

	ProfileID *string

	// Snapshot de la clasificación al momento del avistamiento
	Species       string
	Breed         string
	BreedAnalysis tags.Set

	State    State
	Degraded []string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// Snapshot es lo que se guarda al pasar a classified.
type Snapshot struct {
	Species       string
	Breed         string
	BreedAnalysis tags.Set
	Degraded      []string
}

// Transition es un cambio de estado condicionado (compare-and-set).
type Transition struct {
	To        State
	ProfileID *string
	At        time.Time
}
