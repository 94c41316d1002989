package memory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"

	"pawhub/internal/domain/sightings"
)

type sightingRepo struct {
	mu   sync.RWMutex
	byID map[string]sightings.Sighting
}

func NewSightingRepo() sightings.Repository {
	return &sightingRepo{
		byID: make(map[string]sightings.Sighting),
	}
}

func (r *sightingRepo) Create(ctx context.Context, s sightings.Sighting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(s.ID) == "" {
		return errors.New("sighting id required")
	}
	if _, exists := r.byID[s.ID]; exists {
		return errors.New("sighting already exists")
	}
	r.byID[s.ID] = cloneSighting(s)
	return nil
}

func (r *sightingRepo) GetByID(ctx context.Context, id string) (sightings.Sighting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return sightings.Sighting{}, sightings.ErrNotFound
	}
	return cloneSighting(s), nil
}

func (r *sightingRepo) MarkClassified(ctx context.Context, id string, snap sightings.Snapshot) (sightings.Sighting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return sightings.Sighting{}, sightings.ErrNotFound
	}
	if s.State != sightings.StateUploaded {
		return sightings.Sighting{}, sightings.ErrStateConflict
	}
	s.Species = snap.Species
	s.Breed = snap.Breed
	s.BreedAnalysis = snap.BreedAnalysis
	s.Degraded = append([]string(nil), snap.Degraded...)
	s.State = sightings.StateClassified
	r.byID[id] = s
	return cloneSighting(s), nil
}

// Transition es atómica bajo el lock de escritura.
func (r *sightingRepo) Transition(ctx context.Context, id string, from []sightings.State, t sightings.Transition) (sightings.Sighting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return sightings.Sighting{}, sightings.ErrNotFound
	}
	if !slices.Contains(from, s.State) {
		return sightings.Sighting{}, sightings.ErrStateConflict
	}

	s.State = t.To
	s.UpdatedAt = t.At
	if t.To.Terminal() {
		at := t.At
		s.ResolvedAt = &at
	}
	if t.ProfileID != nil {
		pid := *t.ProfileID
		s.ProfileID = &pid
	}
	r.byID[id] = s
	return cloneSighting(s), nil
}

func (r *sightingRepo) ListByReporter(ctx context.Context, reporterUserID string, state sightings.State) ([]sightings.Sighting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]sightings.Sighting, 0)
	for _, s := range r.byID {
		if s.ReporterUserID != reporterUserID {
			continue
		}
		if state != "" && s.State != state {
			continue
		}
		out = append(out, cloneSighting(s))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func cloneSighting(s sightings.Sighting) sightings.Sighting {
	if s.ProfileID != nil {
		p := *s.ProfileID
		s.ProfileID = &p
	}
	if s.ResolvedAt != nil {
		t := *s.ResolvedAt
		s.ResolvedAt = &t
	}
	s.Degraded = append([]string(nil), s.Degraded...)
	return s
}
