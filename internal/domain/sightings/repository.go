package sightings

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("sighting not found")
	// ErrStateConflict lo devuelve el repo cuando el estado actual no es el esperado.
	ErrStateConflict = errors.New("sighting state conflict")
)

type Repository interface {
	Create(ctx context.Context, s Sighting) error
	GetByID(ctx context.Context, id string) (Sighting, error)

	// MarkClassified guarda el snapshot y pasa uploaded -> classified.
	MarkClassified(ctx context.Context, id string, snap Snapshot) (Sighting, error)

	// Transition cambia de estado solo si el actual está en from (atómico).
	// Devuelve ErrStateConflict si no.
	Transition(ctx context.Context, id string, from []State, t Transition) (Sighting, error)

	// ListByReporter filtra por estado si state != "".
	ListByReporter(ctx context.Context, reporterUserID string, state State) ([]Sighting, error)
}
