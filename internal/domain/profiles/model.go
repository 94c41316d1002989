package profiles

import (
	"time"

	"pawhub/internal/domain/geo"
	"pawhub/internal/domain/tags"
)

// Type distingue mascotas con dueño de animales callejeros.
// @Enum pet, stray
type Type string

const (
	TypePet   Type = "pet"
	TypeStray Type = "stray"
)

func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypePet, TypeStray:
		return Type(s), true
	default:
		return "", false
	}
}

// Profile es la identidad de un animal conocido (mascota o callejero).
// Nunca se borra; ubicación y rasgos se refrescan con el tiempo.
type Profile struct {
	ID   string
	Name string
	Type Type

	Species string
	Breed   string // derivado del clasificador o cargado por el dueño

	// OwnerUserID nil = callejero / sin dueño.
	OwnerUserID *string

	// Location nil = sin ubicación conocida (no aparece en búsquedas por radio).
	Location *geo.Point

	BreedAnalysis tags.Set

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Profile) OwnedBy(userID string) bool {
	return p.OwnerUserID != nil && *p.OwnerUserID == userID
}

// Located es un perfil devuelto por una búsqueda por radio.
type Located struct {
	Profile    Profile
	DistanceKm float64
}

// Filter restringe búsquedas por tipo. Types vacío = todos.
type Filter struct {
	Types []Type
}

func (f Filter) Allows(t Type) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, x := range f.Types {
		if x == t {
			return true
		}
	}
	return false
}
