package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"pawhub/internal/domain/matching"
	"pawhub/internal/domain/media"
)

// mediaRepo también sirve como EmbeddingStore: calcula coseno en memoria.
type mediaRepo struct {
	mu   sync.RWMutex
	byID map[string]media.Media
}

type MediaRepo interface {
	media.Repository
	matching.EmbeddingStore
}

func NewMediaRepo() MediaRepo {
	return &mediaRepo{
		byID: make(map[string]media.Media),
	}
}

func (r *mediaRepo) Create(ctx context.Context, m media.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("media id required")
	}
	if _, exists := r.byID[m.ID]; exists {
		return errors.New("media already exists")
	}
	r.byID[m.ID] = cloneMedia(m)
	return nil
}

func (r *mediaRepo) GetByID(ctx context.Context, id string) (media.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return media.Media{}, media.ErrNotFound
	}
	return cloneMedia(m), nil
}

func (r *mediaRepo) SetEmbedding(ctx context.Context, id string, embedding []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return media.ErrNotFound
	}
	m.Embedding = append([]float64(nil), embedding...)
	r.byID[id] = m
	return nil
}

func (r *mediaRepo) SetProfile(ctx context.Context, id, profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return media.ErrNotFound
	}
	if m.ProfileID != nil {
		return nil
	}
	pid := profileID
	m.ProfileID = &pid
	r.byID[id] = m
	return nil
}

func (r *mediaRepo) ListByProfile(ctx context.Context, profileID string) ([]media.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]media.Media, 0)
	for _, m := range r.byID {
		if m.ProfileID != nil && *m.ProfileID == profileID {
			out = append(out, cloneMedia(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out, nil
}

func (r *mediaRepo) BestMatches(ctx context.Context, query []float64, profileIDs []string) (map[string]matching.ImageMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(profileIDs))
	for _, id := range profileIDs {
		want[id] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]matching.ImageMatch)
	for _, m := range r.byID {
		if m.ProfileID == nil || !m.HasEmbedding() {
			continue
		}
		pid := *m.ProfileID
		if _, ok := want[pid]; !ok {
			continue
		}
		score := matching.ImageSimilarity(query, m.Embedding)
		if cur, ok := out[pid]; ok && cur.Score >= score {
			continue
		}
		out[pid] = matching.ImageMatch{MediaID: m.ID, ImageURL: m.ImageURL, Score: score}
	}
	return out, nil
}

func cloneMedia(m media.Media) media.Media {
	if m.ProfileID != nil {
		p := *m.ProfileID
		m.ProfileID = &p
	}
	if m.Embedding != nil {
		m.Embedding = append([]float64(nil), m.Embedding...)
	}
	return m
}
