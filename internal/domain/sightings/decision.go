package sightings

// Decision es Attach | CreateNew. Se consume en Resolver.Resolve.
type Decision interface {
	action() string
}

// Attach vincula el sighting a un perfil existente.
type Attach struct {
	ProfileID string
}

// CreateNew crea un perfil callejero nuevo a partir del sighting.
// Species/Breed vacíos toman lo que dijo el clasificador.
type CreateNew struct {
	Name    string
	Species string
	Breed   string
}

func (Attach) action() string    { return "select_existing" }
func (CreateNew) action() string { return "create_new" }
