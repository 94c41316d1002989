package media

import "time"

// Media es una imagen subida más sus artefactos derivados.
type Media struct {
	ID          string
	ImageURL    string
	ContentType string
	SizeBytes   int64

	// Embedding es nil hasta que el servicio de modelos responde.
	Embedding []float64

	// ProfileID nil = imagen todavía sin perfil (pendiente de resolución).
	ProfileID *string

	UploadedAt time.Time
}

func (m Media) HasEmbedding() bool {
	return len(m.Embedding) > 0
}
