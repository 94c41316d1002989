package matching

import (
	"context"
	"sort"

	"pawhub/internal/domain/geo"
	"pawhub/internal/domain/profiles"
	"pawhub/internal/domain/tags"
	"pawhub/internal/platform/logger"
	"pawhub/internal/platform/metrics"
)

// GeoIndex responde "perfiles dentro de R km de P".
type GeoIndex interface {
	Within(ctx context.Context, center geo.Point, radiusKm float64, filter profiles.Filter) ([]profiles.Located, error)
}

// ImageMatch es la mejor imagen de un perfil contra el vector consultado.
type ImageMatch struct {
	MediaID  string
	ImageURL string
	Score    float64 // [0,1]
}

// EmbeddingStore calcula, por perfil, la máxima similitud coseno contra
// cualquiera de sus embeddings, en una sola consulta batch.
// Perfiles sin embeddings no aparecen en el map.
type EmbeddingStore interface {
	BestMatches(ctx context.Context, query []float64, profileIDs []string) (map[string]ImageMatch, error)
}

type Warning string

const (
	WarningStorageUnavailable Warning = "storage_unavailable"
)

type Query struct {
	Vector      []float64
	FeatureTags tags.Set
	Point       geo.Point
	// RadiusKm 0 = radio por defecto del modo.
	RadiusKm float64
	Filter   profiles.Filter
}

type Candidate struct {
	Profile       profiles.Profile
	CombinedScore float64
	ImageScore    float64
	FeatureScore  float64
	DistanceKm    float64

	MatchingMediaID  string
	MatchingImageURL string
	Confidence       string
}

type Ranking struct {
	Mode       Mode
	RadiusKm   float64
	Candidates []Candidate
	Warnings   []Warning
}

type Ranker struct {
	geo    GeoIndex
	emb    EmbeddingStore
	policy Policy
	log    logger.Logger
}

func NewRanker(geoIndex GeoIndex, emb EmbeddingStore, policy Policy, log logger.Logger) *Ranker {
	if log == nil {
		log = logger.Nop()
	}
	return &Ranker{
		geo:    geoIndex,
		emb:    emb,
		policy: policy,
		log:    log.With(map[string]any{"module": "matching"}),
	}
}

func (r *Ranker) Policy() Policy { return r.policy }

// Rank ordena los perfiles cercanos por puntaje combinado.
// No falla: si GeoIndex o EmbeddingStore fallan devuelve lista vacía con warning.
//
// Perfiles sin embeddings solo aparecen si comparten rasgos (feature_score > 0),
// con image_score 0.
func (r *Ranker) Rank(ctx context.Context, q Query, mode Mode) Ranking {
	mp := r.policy.For(mode)
	radius := q.RadiusKm
	if radius <= 0 {
		radius = mp.RadiusKm
	}
	out := Ranking{Mode: mode, RadiusKm: radius, Candidates: []Candidate{}}

	located, err := r.geo.Within(ctx, q.Point, radius, q.Filter)
	if err != nil {
		return r.degraded(out, "geo index query failed", err)
	}
	if len(located) == 0 {
		return out
	}

	var images map[string]ImageMatch
	if len(q.Vector) > 0 && r.emb != nil {
		ids := make([]string, 0, len(located))
		for _, l := range located {
			ids = append(ids, l.Profile.ID)
		}
		images, err = r.emb.BestMatches(ctx, q.Vector, ids)
		if err != nil {
			return r.degraded(out, "embedding store query failed", err)
		}
	}

	cands := make([]Candidate, 0, len(located))
	for _, l := range located {
		im, hasImage := images[l.Profile.ID]
		feature := tags.Jaccard(q.FeatureTags, l.Profile.BreedAnalysis)
		if !hasImage && feature == 0 {
			continue
		}

		imageScore := clampUnit(im.Score)
		combined := r.policy.Weights.Combine(imageScore, feature)
		if mp.Strict && combined < mp.MinScore {
			continue
		}

		cands = append(cands, Candidate{
			Profile:          l.Profile,
			CombinedScore:    combined,
			ImageScore:       imageScore,
			FeatureScore:     feature,
			DistanceKm:       l.DistanceKm,
			MatchingMediaID:  im.MediaID,
			MatchingImageURL: im.ImageURL,
			Confidence:       ConfidenceLabel(combined),
		})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		return a.Profile.ID < b.Profile.ID
	})

	if mp.Limit > 0 && len(cands) > mp.Limit {
		cands = cands[:mp.Limit]
	}
	out.Candidates = cands
	return out
}

func (r *Ranker) degraded(out Ranking, msg string, err error) Ranking {
	metrics.RankingWarningsTotal.WithLabelValues(string(WarningStorageUnavailable)).Inc()
	r.log.Warn(msg, map[string]any{"error": err, "mode": string(out.Mode)})
	out.Warnings = append(out.Warnings, WarningStorageUnavailable)
	return out
}
