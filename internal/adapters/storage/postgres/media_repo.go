package postgres

import (
	"context"
	"database/sql"
	"errors"

	"pawhub/internal/domain/matching"
	"pawhub/internal/domain/media"
)

// MediaRepo implementa media.Repository y matching.EmbeddingStore.
// Los embeddings viven en una columna double precision[]; el coseno se
// calcula en Go sobre una sola consulta batch por ranking.
type MediaRepo struct {
	db *sql.DB
}

func NewMediaRepo(db *sql.DB) *MediaRepo {
	return &MediaRepo{db: db}
}

const mediaColumns = `id, image_url, content_type, size_bytes, embedding, profile_id, uploaded_at`

func (r *MediaRepo) Create(ctx context.Context, m media.Media) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media (`+mediaColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		m.ID,
		m.ImageURL,
		m.ContentType,
		m.SizeBytes,
		nullEmbedding(m.Embedding),
		m.ProfileID,
		m.UploadedAt,
	)
	return err
}

func (r *MediaRepo) GetByID(ctx context.Context, id string) (media.Media, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id)
	m, err := scanMedia(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return media.Media{}, media.ErrNotFound
		}
		return media.Media{}, err
	}
	return m, nil
}

func (r *MediaRepo) SetEmbedding(ctx context.Context, id string, embedding []float64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE media SET embedding = $2 WHERE id = $1`, id, nullEmbedding(embedding))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return media.ErrNotFound
	}
	return nil
}

// SetProfile no pisa un dueño existente.
func (r *MediaRepo) SetProfile(ctx context.Context, id, profileID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE media SET profile_id = COALESCE(profile_id, $2) WHERE id = $1
	`, id, profileID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return media.ErrNotFound
	}
	return nil
}

func (r *MediaRepo) ListByProfile(ctx context.Context, profileID string) ([]media.Media, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+mediaColumns+`
		FROM media
		WHERE profile_id = $1
		ORDER BY uploaded_at ASC
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]media.Media, 0)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MediaRepo) BestMatches(ctx context.Context, query []float64, profileIDs []string) (map[string]matching.ImageMatch, error) {
	out := make(map[string]matching.ImageMatch)
	if len(profileIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, image_url, profile_id, embedding
		FROM media
		WHERE profile_id = ANY($1) AND embedding IS NOT NULL
	`, profileIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := arrays()
	for rows.Next() {
		var (
			id, url, pid string
			emb          []float64
		)
		if err := rows.Scan(&id, &url, &pid, m.SQLScanner(&emb)); err != nil {
			return nil, err
		}
		score := matching.ImageSimilarity(query, emb)
		if cur, ok := out[pid]; ok && cur.Score >= score {
			continue
		}
		out[pid] = matching.ImageMatch{MediaID: id, ImageURL: url, Score: score}
	}
	return out, rows.Err()
}

func scanMedia(s rowScanner) (media.Media, error) {
	var (
		m     media.Media
		emb   []float64
		owner sql.NullString
	)
	if err := s.Scan(
		&m.ID,
		&m.ImageURL,
		&m.ContentType,
		&m.SizeBytes,
		arrays().SQLScanner(&emb),
		&owner,
		&m.UploadedAt,
	); err != nil {
		return media.Media{}, err
	}
	if len(emb) > 0 {
		m.Embedding = emb
	}
	if owner.Valid {
		o := owner.String
		m.ProfileID = &o
	}
	return m, nil
}

// nullEmbedding manda NULL en vez de '{}' cuando no hay vector.
func nullEmbedding(v []float64) any {
	if len(v) == 0 {
		return nil
	}
	return v
}
