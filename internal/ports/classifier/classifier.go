package classifier

import (
	"context"
	"errors"

	"pawhub/internal/domain/tags"
)

var (
	ErrClassificationUnavailable = errors.New("classification unavailable")
	ErrEmbeddingUnavailable      = errors.New("embedding unavailable")
)

// Image referencia una imagen ya almacenada. Si URL está vacía se usa Data.
type Image struct {
	URL         string
	Data        []byte
	ContentType string
	SizeBytes   int64
}

func (i Image) Empty() bool {
	return i.URL == "" && len(i.Data) == 0
}

// Classification es la respuesta de especie/raza del servicio de modelos.
type Classification struct {
	Species     string
	Breed       string
	FeatureTags tags.Set
	Confidence  float64
}

// Classifier es el colaborador externo (servicio de modelos).
// Classify falla con ErrClassificationUnavailable y Embed con
// ErrEmbeddingUnavailable (envueltos) ante timeout o respuesta no-2xx.
type Classifier interface {
	Classify(ctx context.Context, img Image) (Classification, error)
	Embed(ctx context.Context, img Image) ([]float64, error)
}
