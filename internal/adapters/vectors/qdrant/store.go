package qdrant

import (
	"context"
	"errors"
	"fmt"

	"pawhub/internal/domain/matching"
	"pawhub/internal/domain/media"
	"pawhub/internal/platform/logger"

	pb "github.com/qdrant/go-client/qdrant"
)

const (
	payloadProfileID = "profile_id"
	payloadImageURL  = "image_url"

	// defaultPageSize es el tamaño de página del Scroll; se pagina hasta
	// leer todas las fotos de los perfiles dentro del radio.
	defaultPageSize = 256
)

var ErrQdrantNotConfigured = errors.New("qdrant not configured")

type Config struct {
	Host       string
	Port       int
	Collection string
	Dimension  int
}

// pointScroller es la parte del cliente que usa BestMatches.
type pointScroller interface {
	ScrollAndOffset(ctx context.Context, req *pb.ScrollPoints) ([]*pb.RetrievedPoint, *pb.PointId, error)
}

// Store guarda un punto por Media (payload profile_id, image_url) y
// responde BestMatches paginando los puntos de los perfiles candidatos.
// Implementa matching.EmbeddingStore y media.Indexer.
type Store struct {
	client     *pb.Client
	points     pointScroller
	collection string
	dimension  int
	pageSize   uint32
	log        logger.Logger
}

var (
	_ matching.EmbeddingStore = (*Store)(nil)
	_ media.Indexer           = (*Store)(nil)
)

func NewStore(ctx context.Context, cfg Config, log logger.Logger) (*Store, error) {
	if cfg.Host == "" || cfg.Collection == "" || cfg.Dimension <= 0 {
		return nil, ErrQdrantNotConfigured
	}
	if log == nil {
		log = logger.Nop()
	}

	client, err := pb.NewClient(&pb.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	s := &Store{
		client:     client,
		points:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		pageSize:   defaultPageSize,
		log:        log.With(map[string]any{"module": "qdrant", "collection": cfg.Collection}),
	}
	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ensure collection %q: %w", cfg.Collection, err)
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: pb.NewVectorsConfig(&pb.VectorParams{
			Size:     uint64(s.dimension),
			Distance: pb.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}
	s.log.Info("collection created", map[string]any{"dimension": s.dimension})
	return nil
}

// Index hace upsert del punto de la media; se vuelve a llamar cuando cambia el dueño.
func (s *Store) Index(ctx context.Context, m media.Media) error {
	if !m.HasEmbedding() {
		return nil
	}
	if len(m.Embedding) != s.dimension {
		return fmt.Errorf("qdrant index media %s: dimension %d, want %d", m.ID, len(m.Embedding), s.dimension)
	}

	_, err := s.client.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*pb.PointStruct{pointFor(m)},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert media %s: %w", m.ID, err)
	}
	return nil
}

func (s *Store) BestMatches(ctx context.Context, query []float64, profileIDs []string) (map[string]matching.ImageMatch, error) {
	if len(profileIDs) == 0 {
		return map[string]matching.ImageMatch{}, nil
	}

	req := &pb.ScrollPoints{
		CollectionName: s.collection,
		Filter: &pb.Filter{
			Must: []*pb.Condition{
				pb.NewMatchKeywords(payloadProfileID, profileIDs...),
			},
		},
		WithPayload: pb.NewWithPayload(true),
		WithVectors: pb.NewWithVectors(true),
		Limit:       pb.PtrOf(s.pageSize),
	}

	var hits []hit
	for {
		points, next, err := s.points.ScrollAndOffset(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("qdrant scroll: %w", err)
		}
		for _, p := range points {
			payload := p.GetPayload()
			hits = append(hits, hit{
				mediaID:   p.GetId().GetUuid(),
				profileID: payload[payloadProfileID].GetStringValue(),
				imageURL:  payload[payloadImageURL].GetStringValue(),
				vector:    toFloat64(denseData(p.GetVectors().GetVector())),
			})
		}
		if next == nil {
			break
		}
		req.Offset = next
	}
	return bestPerProfile(query, hits), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

type hit struct {
	mediaID   string
	profileID string
	imageURL  string
	vector    []float64
}

func bestPerProfile(query []float64, hits []hit) map[string]matching.ImageMatch {
	out := make(map[string]matching.ImageMatch)
	for _, h := range hits {
		if h.profileID == "" || len(h.vector) == 0 {
			continue
		}
		score := matching.ImageSimilarity(query, h.vector)
		if cur, ok := out[h.profileID]; ok && cur.Score >= score {
			continue
		}
		out[h.profileID] = matching.ImageMatch{MediaID: h.mediaID, ImageURL: h.imageURL, Score: score}
	}
	return out
}

func pointFor(m media.Media) *pb.PointStruct {
	payload := map[string]any{
		payloadImageURL: m.ImageURL,
	}
	if m.ProfileID != nil {
		payload[payloadProfileID] = *m.ProfileID
	}
	return &pb.PointStruct{
		Id:      pb.NewIDUUID(m.ID),
		Vectors: pb.NewVectors(toFloat32(m.Embedding)...),
		Payload: pb.NewValueMap(payload),
	}
}

// denseData prefiere el campo dense; servidores viejos solo llenan data.
func denseData(v *pb.VectorOutput) []float32 {
	if d := v.GetDense(); d != nil {
		return d.GetData()
	}
	return v.GetData()
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
