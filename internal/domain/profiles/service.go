package profiles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pawhub/internal/domain/analysis"
	"pawhub/internal/domain/geo"
	"pawhub/internal/domain/media"
	"pawhub/internal/domain/tags"
	"pawhub/internal/platform/logger"
	"pawhub/internal/ports/classifier"

	"github.com/google/uuid"
)

// DefaultNearbyRadiusKm se usa cuando la consulta no trae radio.
const DefaultNearbyRadiusKm = 10.0

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

// Analyzer es lo que el servicio necesita de analysis.Analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, img classifier.Image) analysis.Result
}

type Service struct {
	repo     Repository
	media    media.Repository
	analyzer Analyzer
	indexer  media.Indexer
	log      logger.Logger
	now      func() time.Time
}

type Deps struct {
	Repo     Repository
	Media    media.Repository
	Analyzer Analyzer      // opcional: sin él, Register ignora la imagen
	Indexer  media.Indexer // opcional
	Log      logger.Logger
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     d.Repo,
		media:    d.Media,
		analyzer: d.Analyzer,
		indexer:  d.Indexer,
		log:      log.With(map[string]any{"module": "profiles"}),
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Species  string
	Breed    string
	Location *geo.Point

	// Image opcional: si viene se clasifica y se guarda como media del perfil.
	Image *classifier.Image
}

// Register da de alta una mascota con dueño.
// Species/Breed vacíos se completan con la clasificación de la imagen si existe.
func (s *Service) Register(ctx context.Context, ownerUserID string, in RegisterInput) (Profile, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" || strings.TrimSpace(in.Name) == "" {
		return Profile{}, ErrInvalidInput
	}
	if in.Location != nil {
		if err := in.Location.Validate(); err != nil {
			return Profile{}, ErrInvalidInput
		}
	}

	var res analysis.Result
	hasImage := in.Image != nil && !in.Image.Empty()
	if hasImage && s.analyzer != nil {
		res = s.analyzer.Analyze(ctx, *in.Image)
	}

	species := strings.TrimSpace(in.Species)
	breed := strings.TrimSpace(in.Breed)
	var features tags.Set
	if res.Classification != nil {
		if species == "" {
			species = res.Classification.Species
		}
		if breed == "" {
			breed = res.Classification.Breed
		}
		features = res.Classification.FeatureTags
	}
	if species == "" {
		return Profile{}, ErrInvalidInput
	}

	now := s.now()
	owner := ownerUserID
	p := Profile{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(in.Name),
		Type:          TypePet,
		Species:       species,
		Breed:         breed,
		OwnerUserID:   &owner,
		Location:      in.Location,
		BreedAnalysis: features,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Profile{}, err
	}

	if hasImage && s.media != nil {
		if err := s.storeImage(ctx, p.ID, *in.Image, res.Embedding); err != nil {
			// el perfil ya existe; la imagen se puede volver a subir
			s.log.Error("store pet image failed", map[string]any{"profile_id": p.ID, "error": err})
		}
	}
	return p, nil
}

func (s *Service) storeImage(ctx context.Context, profileID string, img classifier.Image, embedding []float64) error {
	owner := profileID
	m := media.Media{
		ID:          uuid.NewString(),
		ImageURL:    img.URL,
		ContentType: img.ContentType,
		SizeBytes:   img.SizeBytes,
		Embedding:   embedding,
		ProfileID:   &owner,
		UploadedAt:  s.now(),
	}
	if err := s.media.Create(ctx, m); err != nil {
		return fmt.Errorf("create media: %w", err)
	}
	if s.indexer != nil && m.HasEmbedding() {
		if err := s.indexer.Index(ctx, m); err != nil {
			s.log.Warn("index media failed", map[string]any{"media_id": m.ID, "error": err})
		}
	}
	return nil
}

type StrayInput struct {
	Name          string
	Species       string
	Breed         string
	Location      geo.Point
	BreedAnalysis tags.Set
}

// CreateStray crea un perfil sin dueño (lo usa el resolver de sightings).
func (s *Service) CreateStray(ctx context.Context, in StrayInput) (Profile, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Species) == "" {
		return Profile{}, ErrInvalidInput
	}
	if err := in.Location.Validate(); err != nil {
		return Profile{}, ErrInvalidInput
	}

	now := s.now()
	loc := in.Location
	p := Profile{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(in.Name),
		Type:          TypeStray,
		Species:       strings.TrimSpace(in.Species),
		Breed:         strings.TrimSpace(in.Breed),
		OwnerUserID:   nil,
		Location:      &loc,
		BreedAnalysis: in.BreedAnalysis,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Profile, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

// Nearby lista perfiles dentro del radio, ordenados por distancia.
func (s *Service) Nearby(ctx context.Context, center geo.Point, radiusKm float64, filter Filter) ([]Located, error) {
	if err := center.Validate(); err != nil || radiusKm <= 0 {
		return nil, ErrInvalidInput
	}
	out, err := s.repo.Within(ctx, center, radiusKm, filter)
	if err != nil {
		return nil, err
	}
	sortByDistance(out)
	return out, nil
}

type LostInput struct {
	Location geo.Point
	// BreedAnalysis nil = no tocar.
	BreedAnalysis []string
}

// MarkLost refresca ubicación (y opcionalmente rasgos) de una mascota perdida
// para que los sightings cercanos la encuentren.
func (s *Service) MarkLost(ctx context.Context, profileID, callerUserID string, in LostInput) (Profile, error) {
	if err := in.Location.Validate(); err != nil {
		return Profile{}, ErrInvalidInput
	}
	p, err := s.GetByID(ctx, profileID)
	if err != nil {
		return Profile{}, err
	}
	if p.Type != TypePet || !p.OwnedBy(strings.TrimSpace(callerUserID)) {
		return Profile{}, ErrForbidden
	}

	loc := in.Location
	p.Location = &loc
	if in.BreedAnalysis != nil {
		p.BreedAnalysis = tags.New(in.BreedAnalysis...)
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func sortByDistance(items []Located) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DistanceKm < items[j].DistanceKm
	})
}
