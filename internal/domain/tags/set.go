package tags

import "strings"

// Set es un conjunto de rasgos (breed_analysis).
// Conserva el orden de inserción para mostrar, pero se compara como conjunto.
type Set struct {
	items []string
	index map[string]struct{}
}

// New normaliza (trim + lower) y colapsa duplicados. Vacíos se ignoran.
func New(values ...string) Set {
	var s Set
	for _, v := range values {
		s.Add(v)
	}
	return s
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func (s *Set) Add(v string) {
	v = normalize(v)
	if v == "" {
		return
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[v]; ok {
		return
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s Set) Has(v string) bool {
	_, ok := s.index[normalize(v)]
	return ok
}

func (s Set) Len() int { return len(s.items) }

// Values devuelve una copia en orden de inserción.
func (s Set) Values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Equal compara como conjunto (ignora orden).
func (s Set) Equal(o Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, v := range s.items {
		if !o.Has(v) {
			return false
		}
	}
	return true
}

// Jaccard devuelve |a∩b| / |a∪b|. Dos conjuntos vacíos valen 0:
// ausencia de información no cuenta como coincidencia.
func Jaccard(a, b Set) float64 {
	if a.Len() == 0 && b.Len() == 0 {
		return 0
	}
	inter := 0
	for _, v := range a.items {
		if b.Has(v) {
			inter++
		}
	}
	union := a.Len() + b.Len() - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
