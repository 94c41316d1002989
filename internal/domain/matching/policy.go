package matching

import "errors"

var (
	ErrInvalidPolicy = errors.New("invalid matching policy")
)

// Mode es la política de ranking.
type Mode string

const (
	// ModeSuggest muestra todo lo cercano para que decida una persona.
	ModeSuggest Mode = "suggest"
	// ModeAutoMatch devuelve a lo sumo un candidato casi seguro.
	ModeAutoMatch Mode = "auto_match"
)

type Weights struct {
	Image   float64
	Feature float64
}

// Combine mezcla ambos puntajes. Con pesos > 0 es estrictamente creciente en cada uno.
func (w Weights) Combine(image, feature float64) float64 {
	return w.Image*image + w.Feature*feature
}

type ModePolicy struct {
	Limit    int
	RadiusKm float64
	// MinScore solo se aplica si Strict.
	MinScore float64
	Strict   bool
}

type Policy struct {
	Weights   Weights
	Suggest   ModePolicy
	AutoMatch ModePolicy
}

func DefaultPolicy() Policy {
	return Policy{
		Weights: Weights{Image: 0.7, Feature: 0.3},
		Suggest: ModePolicy{
			Limit:    10,
			RadiusKm: 10,
		},
		AutoMatch: ModePolicy{
			Limit:    1,
			RadiusKm: 20,
			MinScore: 0.90,
			Strict:   true,
		},
	}
}

func (p Policy) Validate() error {
	if p.Weights.Image < 0 || p.Weights.Feature < 0 || p.Weights.Image+p.Weights.Feature <= 0 {
		return ErrInvalidPolicy
	}
	for _, m := range []ModePolicy{p.Suggest, p.AutoMatch} {
		if m.Limit < 1 || m.RadiusKm <= 0 {
			return ErrInvalidPolicy
		}
		if m.MinScore < 0 || m.MinScore > 1 {
			return ErrInvalidPolicy
		}
	}
	if p.AutoMatch.Limit != 1 {
		return ErrInvalidPolicy
	}
	return nil
}

func (p Policy) For(mode Mode) ModePolicy {
	if mode == ModeAutoMatch {
		return p.AutoMatch
	}
	return p.Suggest
}

// ConfidenceLabel etiqueta un puntaje combinado para mostrar.
func ConfidenceLabel(score float64) string {
	switch {
	case score > 0.8:
		return "high"
	case score > 0.7:
		return "medium"
	default:
		return "low"
	}
}
