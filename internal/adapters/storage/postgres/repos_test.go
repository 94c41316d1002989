package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"pawhub/internal/domain/geo"
	"pawhub/internal/domain/media"
	"pawhub/internal/domain/profiles"
	"pawhub/internal/domain/sightings"
	"pawhub/internal/domain/tags"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// arrayConverter deja pasar slices tal cual, como hace pgx/stdlib.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	switch v.(type) {
	case []string, []float64:
		return v, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var (
	ts = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	profileCols  = []string{"id", "name", "type", "species", "breed", "owner_user_id", "latitude", "longitude", "breed_analysis", "created_at", "updated_at"}
	sightingCols = []string{"id", "reporter_user_id", "latitude", "longitude", "media_id", "profile_id", "species", "breed", "breed_analysis", "state", "degraded", "created_at", "updated_at", "resolved_at"}
)

func TestProfilesRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfilesRepo(db)

	mock.ExpectQuery(`SELECT .* FROM profiles WHERE id = \$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow("p1", "Luna", "pet", "dog", "beagle", "owner-1", -34.6, -58.4, "{black,white}", ts, ts))

	p, err := repo.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, profiles.TypePet, p.Type)
	require.NotNil(t, p.OwnerUserID)
	assert.Equal(t, "owner-1", *p.OwnerUserID)
	require.NotNil(t, p.Location)
	assert.Equal(t, geo.Point{Lat: -34.6, Lng: -58.4}, *p.Location)
	assert.True(t, p.BreedAnalysis.Equal(tags.New("white", "black")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfilesRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfilesRepo(db)

	mock.ExpectQuery(`FROM profiles WHERE id`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, profiles.ErrNotFound)
}

func TestProfilesRepo_WithinAppliesExactDistance(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfilesRepo(db)
	center := geo.Point{Lat: 0, Lng: 0}
	b := geo.BoundsAround(center, 10)

	// la esquina del rectángulo queda fuera del círculo
	mock.ExpectQuery(`FROM profiles\s+WHERE latitude IS NOT NULL.*longitude BETWEEN \$3 AND \$4.*type = ANY\(\$5\)`).
		WithArgs(b.MinLat, b.MaxLat, b.MinLng, b.MaxLng, []string{"stray"}).
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow("in", "A", "stray", "dog", "", nil, 0.05, 0.0, "{}", ts, ts).
			AddRow("corner", "B", "stray", "dog", "", nil, b.MaxLat*0.99, b.MaxLng*0.99, "{}", ts, ts))

	got, err := repo.Within(context.Background(), center, 10, profiles.Filter{Types: []profiles.Type{profiles.TypeStray}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "in", got[0].Profile.ID)
	assert.Nil(t, got[0].Profile.OwnerUserID)
	assert.InDelta(t, 5.56, got[0].DistanceKm, 0.05)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfilesRepo_WithinWrapsAntimeridian(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfilesRepo(db)

	mock.ExpectQuery(`\(longitude >= \$3 OR longitude <= \$4\)`).
		WillReturnRows(sqlmock.NewRows(profileCols))

	_, err := repo.Within(context.Background(), geo.Point{Lat: 0, Lng: 179.99}, 5, profiles.Filter{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfilesRepo_UpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfilesRepo(db)

	mock.ExpectExec(`UPDATE profiles`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), profiles.Profile{ID: "x"})
	assert.ErrorIs(t, err, profiles.ErrNotFound)
}

func TestMediaRepo_BestMatchesSingleBatchQuery(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMediaRepo(db)

	mock.ExpectQuery(`FROM media\s+WHERE profile_id = ANY\(\$1\) AND embedding IS NOT NULL`).
		WithArgs([]string{"p1", "p2"}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "image_url", "profile_id", "embedding"}).
			AddRow("m1", "u/1", "p1", "{0,1}").
			AddRow("m2", "u/2", "p1", "{1,0}").
			AddRow("m3", "u/3", "p2", "{-1,0}"))

	got, err := repo.BestMatches(context.Background(), []float64{1, 0}, []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, "m2", got["p1"].MediaID)
	assert.InDelta(t, 1.0, got["p1"].Score, 1e-9)
	assert.Equal(t, 0.0, got["p2"].Score, "negative cosine clamps to 0")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepo_BestMatchesNoProfilesSkipsQuery(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMediaRepo(db)

	got, err := repo.BestMatches(context.Background(), []float64{1}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepo_SetProfileKeepsExistingOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMediaRepo(db)

	mock.ExpectExec(`UPDATE media SET profile_id = COALESCE\(profile_id, \$2\) WHERE id = \$1`).
		WithArgs("m1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE media SET profile_id`).
		WithArgs("missing", "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetProfile(context.Background(), "m1", "p1"))
	assert.ErrorIs(t, repo.SetProfile(context.Background(), "missing", "p1"), media.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSightingsRepo_TransitionCompareAndSet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSightingsRepo(db)
	pid := "p1"

	mock.ExpectQuery(`UPDATE sightings.*WHERE id = \$1 AND state = ANY\(\$6\)\s+RETURNING`).
		WithArgs("s1", "resolved", &pid, ts, sqlmock.AnyArg(), []string{"classified", "pending_selection"}).
		WillReturnRows(sqlmock.NewRows(sightingCols).
			AddRow("s1", "u1", 1.0, 2.0, "m1", "p1", "dog", "", "{}", "resolved", "{embedding}", ts, ts, ts))

	s, err := repo.Transition(context.Background(), "s1",
		[]sightings.State{sightings.StateClassified, sightings.StatePendingSelection},
		sightings.Transition{To: sightings.StateResolved, ProfileID: &pid, At: ts})
	require.NoError(t, err)
	assert.Equal(t, sightings.StateResolved, s.State)
	assert.Equal(t, "p1", *s.ProfileID)
	assert.Equal(t, []string{"embedding"}, s.Degraded)
	require.NotNil(t, s.ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSightingsRepo_TransitionConflictVsMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSightingsRepo(db)
	from := []sightings.State{sightings.StateClassified}

	mock.ExpectQuery(`UPDATE sightings`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT 1 FROM sightings WHERE id = \$1`).WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	_, err := repo.Transition(context.Background(), "s1", from, sightings.Transition{To: sightings.StateAbandoned, At: ts})
	assert.ErrorIs(t, err, sightings.ErrStateConflict)

	mock.ExpectQuery(`UPDATE sightings`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT 1 FROM sightings`).WithArgs("s2").WillReturnError(sql.ErrNoRows)

	_, err = repo.Transition(context.Background(), "s2", from, sightings.Transition{To: sightings.StateAbandoned, At: ts})
	assert.ErrorIs(t, err, sightings.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSightingsRepo_MarkClassified(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSightingsRepo(db)

	mock.ExpectQuery(`UPDATE sightings.*WHERE id = \$1 AND state = \$7`).
		WithArgs("s1", "cat", "", []string{"orange"}, []string{}, "classified", "uploaded").
		WillReturnRows(sqlmock.NewRows(sightingCols).
			AddRow("s1", "u1", 1.0, 2.0, "m1", nil, "cat", "", "{orange}", "classified", "{}", ts, ts, nil))

	s, err := repo.MarkClassified(context.Background(), "s1", sightings.Snapshot{Species: "cat", BreedAnalysis: tags.New("orange")})
	require.NoError(t, err)
	assert.Equal(t, sightings.StateClassified, s.State)
	assert.Nil(t, s.ProfileID)
	assert.Nil(t, s.ResolvedAt)
	assert.True(t, s.BreedAnalysis.Has("orange"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
