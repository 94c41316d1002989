package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"pawhub/internal/domain/geo"
	"pawhub/internal/domain/media"
	"pawhub/internal/domain/profiles"
	"pawhub/internal/domain/sightings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestProfileRepo_WithinCrossesAntimeridian(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepo()

	east := geo.Point{Lat: 0, Lng: 179.99}
	west := geo.Point{Lat: 0, Lng: -179.99}
	far := geo.Point{Lat: 0, Lng: 170}
	require.NoError(t, repo.Create(ctx, profiles.Profile{ID: "east", Type: profiles.TypeStray, Location: &east}))
	require.NoError(t, repo.Create(ctx, profiles.Profile{ID: "west", Type: profiles.TypePet, Location: &west}))
	require.NoError(t, repo.Create(ctx, profiles.Profile{ID: "far", Type: profiles.TypeStray, Location: &far}))
	require.NoError(t, repo.Create(ctx, profiles.Profile{ID: "nowhere", Type: profiles.TypeStray}))

	got, err := repo.Within(ctx, east, 5, profiles.Filter{})
	require.NoError(t, err)

	ids := map[string]float64{}
	for _, l := range got {
		ids[l.Profile.ID] = l.DistanceKm
	}
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "east")
	assert.Contains(t, ids, "west")
	assert.InDelta(t, 2.22, ids["west"], 0.05)

	strays, err := repo.Within(ctx, east, 5, profiles.Filter{Types: []profiles.Type{profiles.TypeStray}})
	require.NoError(t, err)
	require.Len(t, strays, 1)
	assert.Equal(t, "east", strays[0].Profile.ID)
}

func TestProfileRepo_UpdateMissing(t *testing.T) {
	err := NewProfileRepo().Update(context.Background(), profiles.Profile{ID: "x"})
	assert.ErrorIs(t, err, profiles.ErrNotFound)
}

func TestMediaRepo_SetProfileOnlyWhenUnowned(t *testing.T) {
	ctx := context.Background()
	repo := NewMediaRepo()
	require.NoError(t, repo.Create(ctx, media.Media{ID: "m1"}))

	require.NoError(t, repo.SetProfile(ctx, "m1", "p1"))
	require.NoError(t, repo.SetProfile(ctx, "m1", "p2"))

	m, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "p1", *m.ProfileID)

	assert.ErrorIs(t, repo.SetProfile(ctx, "missing", "p1"), media.ErrNotFound)
}

func TestMediaRepo_BestMatchesTakesMaximum(t *testing.T) {
	ctx := context.Background()
	repo := NewMediaRepo()
	at := time.Now()

	require.NoError(t, repo.Create(ctx, media.Media{ID: "a", ImageURL: "u/a", ProfileID: strPtr("p1"), Embedding: []float64{0, 1}, UploadedAt: at}))
	require.NoError(t, repo.Create(ctx, media.Media{ID: "b", ImageURL: "u/b", ProfileID: strPtr("p1"), Embedding: []float64{1, 0}, UploadedAt: at}))
	require.NoError(t, repo.Create(ctx, media.Media{ID: "c", ProfileID: strPtr("p2"), UploadedAt: at}))
	require.NoError(t, repo.Create(ctx, media.Media{ID: "d", ProfileID: strPtr("p3"), Embedding: []float64{1, 0}, UploadedAt: at}))

	got, err := repo.BestMatches(ctx, []float64{1, 0}, []string{"p1", "p2"})
	require.NoError(t, err)

	require.Contains(t, got, "p1")
	assert.Equal(t, "b", got["p1"].MediaID)
	assert.Equal(t, "u/b", got["p1"].ImageURL)
	assert.InDelta(t, 1.0, got["p1"].Score, 1e-9)
	assert.NotContains(t, got, "p2", "profile without embeddings")
	assert.NotContains(t, got, "p3", "profile not requested")
}

func TestMediaRepo_EmbeddingIsCopied(t *testing.T) {
	ctx := context.Background()
	repo := NewMediaRepo()
	require.NoError(t, repo.Create(ctx, media.Media{ID: "m1"}))

	emb := []float64{1, 2, 3}
	require.NoError(t, repo.SetEmbedding(ctx, "m1", emb))
	emb[0] = 99

	m, _ := repo.GetByID(ctx, "m1")
	assert.Equal(t, []float64{1, 2, 3}, m.Embedding)
}

func TestSightingRepo_TransitionIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewSightingRepo()
	require.NoError(t, repo.Create(ctx, sightings.Sighting{ID: "s1", ReporterUserID: "u1", State: sightings.StateUploaded}))

	_, err := repo.MarkClassified(ctx, "s1", sightings.Snapshot{Species: "dog"})
	require.NoError(t, err)
	_, err = repo.MarkClassified(ctx, "s1", sightings.Snapshot{})
	assert.ErrorIs(t, err, sightings.ErrStateConflict)

	from := []sightings.State{sightings.StateClassified, sightings.StatePendingSelection}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)
	for _, pid := range []string{"p1", "p2", "p3", "p4"} {
		wg.Add(1)
		go func(pid string) {
			defer wg.Done()
			_, err := repo.Transition(ctx, "s1", from, sightings.Transition{To: sightings.StateResolved, ProfileID: strPtr(pid), At: time.Now()})
			if err == nil {
				mu.Lock()
				wins = append(wins, pid)
				mu.Unlock()
			}
		}(pid)
	}
	wg.Wait()

	require.Len(t, wins, 1)
	s, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sightings.StateResolved, s.State)
	assert.Equal(t, wins[0], *s.ProfileID)
	assert.NotNil(t, s.ResolvedAt)
	assert.Equal(t, "dog", s.Species)
}

func TestSightingRepo_ListByReporterFiltersState(t *testing.T) {
	ctx := context.Background()
	repo := NewSightingRepo()
	now := time.Now()
	require.NoError(t, repo.Create(ctx, sightings.Sighting{ID: "a", ReporterUserID: "u1", State: sightings.StateClassified, CreatedAt: now}))
	require.NoError(t, repo.Create(ctx, sightings.Sighting{ID: "b", ReporterUserID: "u1", State: sightings.StateResolved, CreatedAt: now.Add(time.Minute)}))
	require.NoError(t, repo.Create(ctx, sightings.Sighting{ID: "c", ReporterUserID: "u2", State: sightings.StateClassified, CreatedAt: now}))

	all, err := repo.ListByReporter(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)

	pending, err := repo.ListByReporter(ctx, "u1", sightings.StateClassified)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ID)
}
