package profiles

import (
	"context"
	"errors"

	"pawhub/internal/domain/geo"
)

var (
	ErrNotFound = errors.New("profile not found")
)

type Repository interface {
	Create(ctx context.Context, p Profile) error
	Update(ctx context.Context, p Profile) error
	GetByID(ctx context.Context, id string) (Profile, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Profile, error)

	// Within devuelve perfiles con ubicación a distancia de gran círculo <= radiusKm.
	// Sin orden garantizado.
	Within(ctx context.Context, center geo.Point, radiusKm float64, filter Filter) ([]Located, error)
}
