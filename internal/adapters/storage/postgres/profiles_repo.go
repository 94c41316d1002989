package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"pawhub/internal/domain/geo"
	"pawhub/internal/domain/profiles"
	"pawhub/internal/domain/tags"
)

type ProfilesRepo struct {
	db *sql.DB
}

func NewProfilesRepo(db *sql.DB) *ProfilesRepo {
	return &ProfilesRepo{db: db}
}

const profileColumns = `
	id, name, type, species, breed, owner_user_id,
	latitude, longitude, breed_analysis,
	created_at, updated_at`

func (r *ProfilesRepo) Create(ctx context.Context, p profiles.Profile) error {
	lat, lng := nullPoint(p.Location)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		p.ID,
		p.Name,
		string(p.Type),
		p.Species,
		p.Breed,
		p.OwnerUserID,
		lat,
		lng,
		p.BreedAnalysis.Values(),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *ProfilesRepo) Update(ctx context.Context, p profiles.Profile) error {
	lat, lng := nullPoint(p.Location)
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET
			name = $2,
			species = $3,
			breed = $4,
			latitude = $5,
			longitude = $6,
			breed_analysis = $7,
			updated_at = $8
		WHERE id = $1
	`,
		p.ID,
		p.Name,
		p.Species,
		p.Breed,
		lat,
		lng,
		p.BreedAnalysis.Values(),
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return profiles.ErrNotFound
	}
	return nil
}

func (r *ProfilesRepo) GetByID(ctx context.Context, id string) (profiles.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return profiles.Profile{}, profiles.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profiles.Profile{}, profiles.ErrNotFound
		}
		return profiles.Profile{}, err
	}
	return p, nil
}

func (r *ProfilesRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]profiles.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE owner_user_id = $1
		ORDER BY created_at ASC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]profiles.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Within prefiltra por el rectángulo del casquete (usa el índice lat/lng)
// y aplica la distancia exacta de gran círculo en Go.
func (r *ProfilesRepo) Within(ctx context.Context, center geo.Point, radiusKm float64, filter profiles.Filter) ([]profiles.Located, error) {
	b := geo.BoundsAround(center, radiusKm)

	lngCond := `longitude BETWEEN $3 AND $4`
	if b.LngWraps {
		lngCond = `(longitude >= $3 OR longitude <= $4)`
	}

	types := filter.Types
	if len(types) == 0 {
		types = []profiles.Type{profiles.TypePet, profiles.TypeStray}
	}
	typeArgs := make([]string, 0, len(types))
	for _, t := range types {
		typeArgs = append(typeArgs, string(t))
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		  AND latitude BETWEEN $1 AND $2
		  AND `+lngCond+`
		  AND type = ANY($5)
	`, b.MinLat, b.MaxLat, b.MinLng, b.MaxLng, typeArgs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]profiles.Located, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		if p.Location == nil {
			continue
		}
		d := geo.DistanceKm(center, *p.Location)
		if d > radiusKm {
			continue
		}
		out = append(out, profiles.Located{Profile: p, DistanceKm: d})
	}
	return out, rows.Err()
}

func scanProfile(s rowScanner) (profiles.Profile, error) {
	var (
		p        profiles.Profile
		typ      string
		owner    sql.NullString
		lat, lng sql.NullFloat64
		features []string
	)
	m := arrays()
	if err := s.Scan(
		&p.ID,
		&p.Name,
		&typ,
		&p.Species,
		&p.Breed,
		&owner,
		&lat,
		&lng,
		m.SQLScanner(&features),
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return profiles.Profile{}, err
	}

	p.Type = profiles.Type(typ)
	if owner.Valid {
		o := owner.String
		p.OwnerUserID = &o
	}
	if lat.Valid && lng.Valid {
		p.Location = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	p.BreedAnalysis = tags.New(features...)
	return p, nil
}

func nullPoint(p *geo.Point) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Lat, Valid: true}, sql.NullFloat64{Float64: p.Lng, Valid: true}
}
