package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"pawhub/internal/domain/geo"
	"pawhub/internal/domain/profiles"
)

type profileRepo struct {
	mu   sync.RWMutex
	byID map[string]profiles.Profile
}

func NewProfileRepo() profiles.Repository {
	return &profileRepo{
		byID: make(map[string]profiles.Profile),
	}
}

func (r *profileRepo) Create(ctx context.Context, p profiles.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		return errors.New("profile id required")
	}
	if _, exists := r.byID[p.ID]; exists {
		return errors.New("profile already exists")
	}
	r.byID[p.ID] = cloneProfile(p)
	return nil
}

func (r *profileRepo) Update(ctx context.Context, p profiles.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID]; !exists {
		return profiles.ErrNotFound
	}
	r.byID[p.ID] = cloneProfile(p)
	return nil
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (profiles.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (r *profileRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]profiles.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]profiles.Profile, 0)
	for _, p := range r.byID {
		if p.OwnedBy(ownerUserID) {
			out = append(out, cloneProfile(p))
		}
	}

	// Orden estable por created_at asc (solo para consistencia en dev)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Within recorre todo: el bounding box descarta barato y s2 decide.
func (r *profileRepo) Within(ctx context.Context, center geo.Point, radiusKm float64, filter profiles.Filter) ([]profiles.Located, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	box := geo.BoundsAround(center, radiusKm)
	out := make([]profiles.Located, 0)
	for _, p := range r.byID {
		if p.Location == nil || !filter.Allows(p.Type) || !box.Contains(*p.Location) {
			continue
		}
		d := geo.DistanceKm(center, *p.Location)
		if d > radiusKm {
			continue
		}
		out = append(out, profiles.Located{Profile: cloneProfile(p), DistanceKm: d})
	}
	return out, nil
}

func cloneProfile(p profiles.Profile) profiles.Profile {
	if p.OwnerUserID != nil {
		o := *p.OwnerUserID
		p.OwnerUserID = &o
	}
	if p.Location != nil {
		l := *p.Location
		p.Location = &l
	}
	return p
}
