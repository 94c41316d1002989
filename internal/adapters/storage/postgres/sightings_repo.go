package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pawhub/internal/domain/geo"
	"pawhub/internal/domain/sightings"
	"pawhub/internal/domain/tags"
)

type SightingsRepo struct {
	db *sql.DB
}

func NewSightingsRepo(db *sql.DB) *SightingsRepo {
	return &SightingsRepo{db: db}
}

const sightingColumns = `
	id, reporter_user_id, latitude, longitude, media_id, profile_id,
	species, breed, breed_analysis, state, degraded,
	created_at, updated_at, resolved_at`

func (r *SightingsRepo) Create(ctx context.Context, s sightings.Sighting) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sightings (`+sightingColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		s.ID,
		s.ReporterUserID,
		s.Location.Lat,
		s.Location.Lng,
		s.MediaID,
		s.ProfileID,
		s.Species,
		s.Breed,
		s.BreedAnalysis.Values(),
		string(s.State),
		nonNil(s.Degraded),
		s.CreatedAt,
		s.UpdatedAt,
		s.ResolvedAt,
	)
	return err
}

func (r *SightingsRepo) GetByID(ctx context.Context, id string) (sightings.Sighting, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sightingColumns+` FROM sightings WHERE id = $1`, id)
	s, err := scanSighting(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sightings.Sighting{}, sightings.ErrNotFound
		}
		return sightings.Sighting{}, err
	}
	return s, nil
}

func (r *SightingsRepo) MarkClassified(ctx context.Context, id string, snap sightings.Snapshot) (sightings.Sighting, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE sightings
		SET
			species = $2,
			breed = $3,
			breed_analysis = $4,
			degraded = $5,
			state = $6
		WHERE id = $1 AND state = $7
		RETURNING `+sightingColumns,
		id,
		snap.Species,
		snap.Breed,
		snap.BreedAnalysis.Values(),
		nonNil(snap.Degraded),
		string(sightings.StateClassified),
		string(sightings.StateUploaded),
	)
	s, err := scanSighting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sightings.Sighting{}, r.missOrConflict(ctx, id)
	}
	return s, err
}

// Transition es un compare-and-set: solo actualiza si state está en from.
func (r *SightingsRepo) Transition(ctx context.Context, id string, from []sightings.State, t sightings.Transition) (sightings.Sighting, error) {
	fromArgs := make([]string, 0, len(from))
	for _, f := range from {
		fromArgs = append(fromArgs, string(f))
	}
	var resolvedAt *time.Time
	if t.To.Terminal() {
		at := t.At
		resolvedAt = &at
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE sightings
		SET
			state = $2,
			profile_id = COALESCE($3, profile_id),
			updated_at = $4,
			resolved_at = COALESCE($5, resolved_at)
		WHERE id = $1 AND state = ANY($6)
		RETURNING `+sightingColumns,
		id,
		string(t.To),
		t.ProfileID,
		t.At,
		resolvedAt,
		fromArgs,
	)
	s, err := scanSighting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sightings.Sighting{}, r.missOrConflict(ctx, id)
	}
	return s, err
}

func (r *SightingsRepo) ListByReporter(ctx context.Context, reporterUserID string, state sightings.State) ([]sightings.Sighting, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sightingColumns+`
		FROM sightings
		WHERE reporter_user_id = $1 AND ($2 = '' OR state = $2)
		ORDER BY created_at DESC
	`, reporterUserID, string(state))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]sightings.Sighting, 0)
	for rows.Next() {
		s, err := scanSighting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// missOrConflict distingue "no existe" de "estado distinto al esperado"
// cuando un UPDATE condicionado no tocó filas.
func (r *SightingsRepo) missOrConflict(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM sightings WHERE id = $1`, id).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return sightings.ErrNotFound
	case err != nil:
		return err
	default:
		return sightings.ErrStateConflict
	}
}

func scanSighting(s rowScanner) (sightings.Sighting, error) {
	var (
		out        sightings.Sighting
		lat, lng   float64
		profileID  sql.NullString
		features   []string
		degraded   []string
		state      string
		resolvedAt sql.NullTime
	)
	m := arrays()
	if err := s.Scan(
		&out.ID,
		&out.ReporterUserID,
		&lat,
		&lng,
		&out.MediaID,
		&profileID,
		&out.Species,
		&out.Breed,
		m.SQLScanner(&features),
		&state,
		m.SQLScanner(&degraded),
		&out.CreatedAt,
		&out.UpdatedAt,
		&resolvedAt,
	); err != nil {
		return sightings.Sighting{}, err
	}

	out.Location = geo.Point{Lat: lat, Lng: lng}
	out.State = sightings.State(state)
	out.BreedAnalysis = tags.New(features...)
	out.Degraded = degraded
	if profileID.Valid {
		p := profileID.String
		out.ProfileID = &p
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		out.ResolvedAt = &t
	}
	return out, nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
