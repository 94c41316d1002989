package media

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("media not found")
)

type Repository interface {
	Create(ctx context.Context, m Media) error
	GetByID(ctx context.Context, id string) (Media, error)
	SetEmbedding(ctx context.Context, id string, embedding []float64) error
	// SetProfile asigna dueño solo si la media no tiene perfil todavía.
	SetProfile(ctx context.Context, id, profileID string) error
	ListByProfile(ctx context.Context, profileID string) ([]Media, error)
}

// Indexer recibe media con embedding o con dueño nuevo para mantener
// sincronizado un vector store externo. Opcional.
type Indexer interface {
	Index(ctx context.Context, m Media) error
}
