package events

import (
	"context"
	"time"
)

type Type string

const (
	TypeSightingCreated   Type = "sighting.created"
	TypeSightingResolved  Type = "sighting.resolved"
	TypeSightingAbandoned Type = "sighting.abandoned"
)

// Event es el mensaje publicado hacia otros servicios (notificaciones, misiones).
type Event struct {
	Type           Type      `json:"type"`
	SightingID     string    `json:"sighting_id"`
	ReporterUserID string    `json:"reporter_user_id"`
	ProfileID      string    `json:"profile_id,omitempty"`
	State          string    `json:"state"`
	ProfileCreated bool      `json:"profile_created,omitempty"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop no publica nada (modo dev / sin broker).
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
