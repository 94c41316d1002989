package sightings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pawhub/internal/domain/analysis"
	"pawhub/internal/domain/geo"
	"pawhub/internal/domain/matching"
	"pawhub/internal/domain/media"
	"pawhub/internal/domain/profiles"
	"pawhub/internal/platform/logger"
	"pawhub/internal/platform/metrics"
	"pawhub/internal/ports/classifier"
	"pawhub/internal/ports/events"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidState = errors.New("invalid state")
	ErrForbidden    = errors.New("forbidden")
	// ErrStorage: no se pudo persistir Media/Sighting (única falla fatal de Create).
	ErrStorage = errors.New("storage unavailable")
	// ErrRankingUnavailable: auto-match no decide a ciegas si la búsqueda falló.
	ErrRankingUnavailable = errors.New("ranking unavailable")
)

type Analyzer interface {
	Analyze(ctx context.Context, img classifier.Image) analysis.Result
}

type Ranker interface {
	Rank(ctx context.Context, q matching.Query, mode matching.Mode) matching.Ranking
}

type ProfileStore interface {
	GetByID(ctx context.Context, id string) (profiles.Profile, error)
	CreateStray(ctx context.Context, in profiles.StrayInput) (profiles.Profile, error)
}

type Deps struct {
	Sightings Repository
	Media     media.Repository
	Profiles  ProfileStore
	Analyzer  Analyzer
	Ranker    Ranker

	Indexer   media.Indexer    // opcional
	Publisher events.Publisher // opcional
	Log       logger.Logger
}

// Resolver es dueño exclusivo de la transición pendiente -> resuelto.
type Resolver struct {
	sightings Repository
	media     media.Repository
	profiles  ProfileStore
	analyzer  Analyzer
	ranker    Ranker
	indexer   media.Indexer
	publisher events.Publisher
	log       logger.Logger

	locks *keyedMutex
	now   func() time.Time
}

func NewResolver(d Deps) *Resolver {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	pub := d.Publisher
	if pub == nil {
		pub = events.Nop{}
	}
	return &Resolver{
		sightings: d.Sightings,
		media:     d.Media,
		profiles:  d.Profiles,
		analyzer:  d.Analyzer,
		ranker:    d.Ranker,
		indexer:   d.Indexer,
		publisher: pub,
		log:       log.With(map[string]any{"module": "sightings"}),
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

type CreateInput struct {
	ReporterUserID string
	Image          classifier.Image
	Location       geo.Point
	// RadiusKm 0 = radio por defecto de suggest.
	RadiusKm float64
}

type CreateResult struct {
	Sighting       Sighting
	Classification *classifier.Classification
	Candidates     []matching.Candidate
	RadiusKm       float64

	// ResolutionAvailable false = no hubo ranking (embedding no disponible).
	ResolutionAvailable bool
	Degraded            []string
	Warnings            []string
}

// Create registra el sighting y devuelve candidatos en modo suggest.
// Las fallas del clasificador y de la búsqueda degradan el resultado;
// solo falla si no se puede persistir Media o Sighting.
func (r *Resolver) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	reporter := strings.TrimSpace(in.ReporterUserID)
	if reporter == "" || in.Image.Empty() {
		return CreateResult{}, ErrInvalidInput
	}
	if err := in.Location.Validate(); err != nil {
		return CreateResult{}, ErrInvalidInput
	}
	if in.RadiusKm < 0 {
		return CreateResult{}, ErrInvalidInput
	}

	now := r.now()
	m := media.Media{
		ID:          uuid.NewString(),
		ImageURL:    strings.TrimSpace(in.Image.URL),
		ContentType: in.Image.ContentType,
		SizeBytes:   in.Image.SizeBytes,
		UploadedAt:  now,
	}
	if err := r.media.Create(ctx, m); err != nil {
		return CreateResult{}, fmt.Errorf("%w: create media: %v", ErrStorage, err)
	}

	s := Sighting{
		ID:             uuid.NewString(),
		ReporterUserID: reporter,
		Location:       in.Location,
		MediaID:        m.ID,
		State:          StateUploaded,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.sightings.Create(ctx, s); err != nil {
		return CreateResult{}, fmt.Errorf("%w: create sighting: %v", ErrStorage, err)
	}

	log := r.log.With(map[string]any{"sighting_id": s.ID, "media_id": m.ID})

	res := r.analyze(ctx, in.Image)

	// Lo que ya se obtuvo se guarda aunque el request se haya cancelado.
	pctx := context.WithoutCancel(ctx)

	if len(res.Embedding) > 0 {
		if err := r.media.SetEmbedding(pctx, m.ID, res.Embedding); err != nil {
			log.Error("persist embedding failed", map[string]any{"error": err})
		} else {
			m.Embedding = res.Embedding
			r.index(pctx, m, log)
		}
	}

	snap := Snapshot{Degraded: stepsToStrings(res.Degraded)}
	if res.Classification != nil {
		snap.Species = res.Classification.Species
		snap.Breed = res.Classification.Breed
		snap.BreedAnalysis = res.Classification.FeatureTags
	}

	s, err := r.sightings.MarkClassified(pctx, s.ID, snap)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: mark classified: %v", ErrStorage, err)
	}

	out := CreateResult{
		Sighting:       s,
		Classification: res.Classification,
		Candidates:     []matching.Candidate{},
		Degraded:       snap.Degraded,
		Warnings:       []string{},
	}

	if len(res.Embedding) > 0 && r.ranker != nil {
		ranking := r.ranker.Rank(ctx, matching.Query{
			Vector:      res.Embedding,
			FeatureTags: snap.BreedAnalysis,
			Point:       s.Location,
			RadiusKm:    in.RadiusKm,
		}, matching.ModeSuggest)

		out.Candidates = ranking.Candidates
		out.RadiusKm = ranking.RadiusKm
		out.ResolutionAvailable = true
		for _, w := range ranking.Warnings {
			out.Warnings = append(out.Warnings, string(w))
		}

		moved, err := r.sightings.Transition(pctx, s.ID, []State{StateClassified}, Transition{
			To: StatePendingSelection,
			At: r.now(),
		})
		switch {
		case err == nil:
			out.Sighting = moved
		case errors.Is(err, ErrStateConflict):
			// ya lo resolvió/abandonó otro request; devolvemos el estado actual
			if cur, gerr := r.sightings.GetByID(pctx, s.ID); gerr == nil {
				out.Sighting = cur
			}
		default:
			return CreateResult{}, fmt.Errorf("%w: mark pending: %v", ErrStorage, err)
		}
	}

	metrics.SightingsCreatedTotal.WithLabelValues(string(out.Sighting.State)).Inc()
	r.publish(pctx, events.TypeSightingCreated, out.Sighting, false)

	log.Info("sighting created", map[string]any{
		"state":      string(out.Sighting.State),
		"candidates": len(out.Candidates),
		"degraded":   out.Degraded,
	})
	return out, nil
}

func (r *Resolver) analyze(ctx context.Context, img classifier.Image) analysis.Result {
	if r.analyzer == nil {
		return analysis.NewAnalyzer(nil, 0, r.log).Analyze(ctx, img)
	}
	return r.analyzer.Analyze(ctx, img)
}

type ResolveResult struct {
	Sighting       Sighting
	Profile        profiles.Profile
	ProfileCreated bool
}

// Resolve aplica la decisión. A lo sumo una llamada concurrente gana;
// las demás reciben ErrInvalidState.
func (r *Resolver) Resolve(ctx context.Context, sightingID, callerUserID string, d Decision) (ResolveResult, error) {
	if d == nil {
		return ResolveResult{}, ErrInvalidInput
	}
	out, err := r.resolve(ctx, sightingID, callerUserID, d)
	metrics.ResolutionsTotal.WithLabelValues(d.action(), outcome(err)).Inc()
	return out, err
}

func (r *Resolver) resolve(ctx context.Context, sightingID, callerUserID string, d Decision) (ResolveResult, error) {
	sightingID = strings.TrimSpace(sightingID)
	callerUserID = strings.TrimSpace(callerUserID)

	switch v := d.(type) {
	case Attach:
		if strings.TrimSpace(v.ProfileID) == "" {
			return ResolveResult{}, ErrInvalidInput
		}
	case CreateNew:
		if strings.TrimSpace(v.Name) == "" {
			return ResolveResult{}, ErrInvalidInput
		}
	default:
		return ResolveResult{}, ErrInvalidInput
	}

	unlock := r.locks.Lock(sightingID)
	defer unlock()

	s, err := r.load(ctx, sightingID, callerUserID)
	if err != nil {
		return ResolveResult{}, err
	}

	var (
		p       profiles.Profile
		created bool
	)
	switch v := d.(type) {
	case Attach:
		p, err = r.profiles.GetByID(ctx, strings.TrimSpace(v.ProfileID))
		if err != nil {
			if errors.Is(err, profiles.ErrNotFound) {
				return ResolveResult{}, fmt.Errorf("%w: profile %s", ErrNotFound, v.ProfileID)
			}
			return ResolveResult{}, err
		}
	case CreateNew:
		species := firstNonEmpty(v.Species, s.Species)
		if species == "" {
			return ResolveResult{}, ErrInvalidInput
		}
		p, err = r.profiles.CreateStray(ctx, profiles.StrayInput{
			Name:          v.Name,
			Species:       species,
			Breed:         firstNonEmpty(v.Breed, s.Breed),
			Location:      s.Location,
			BreedAnalysis: s.BreedAnalysis,
		})
		if err != nil {
			if errors.Is(err, profiles.ErrInvalidInput) {
				return ResolveResult{}, ErrInvalidInput
			}
			return ResolveResult{}, err
		}
		created = true
	}

	// La media del sighting pasa a ser evidencia del perfil. Se vincula antes
	// del CAS: SetProfile solo asigna dueño a media sin dueño, y si falla el
	// sighting sigue pendiente y se puede reintentar.
	if err := r.media.SetProfile(ctx, s.MediaID, p.ID); err != nil {
		return ResolveResult{}, fmt.Errorf("%w: link media %s: %v", ErrStorage, s.MediaID, err)
	}

	pid := p.ID
	s, err = r.sightings.Transition(ctx, s.ID, resolvableStates, Transition{
		To:        StateResolved,
		ProfileID: &pid,
		At:        r.now(),
	})
	if err != nil {
		if errors.Is(err, ErrStateConflict) {
			return ResolveResult{}, ErrInvalidState
		}
		return ResolveResult{}, err
	}

	log := r.log.With(map[string]any{"sighting_id": s.ID, "profile_id": p.ID})

	if m, err := r.media.GetByID(ctx, s.MediaID); err == nil && m.HasEmbedding() {
		r.index(ctx, m, log)
	}

	r.publish(ctx, events.TypeSightingResolved, s, created)
	log.Info("sighting resolved", map[string]any{"action": d.action(), "profile_created": created})

	return ResolveResult{Sighting: s, Profile: p, ProfileCreated: created}, nil
}

// Abandon cierra un sighting pendiente sin perfil.
func (r *Resolver) Abandon(ctx context.Context, sightingID, callerUserID string) (Sighting, error) {
	sightingID = strings.TrimSpace(sightingID)
	unlock := r.locks.Lock(sightingID)
	defer unlock()

	s, err := r.load(ctx, sightingID, strings.TrimSpace(callerUserID))
	if err != nil {
		return Sighting{}, err
	}

	s, err = r.sightings.Transition(ctx, s.ID, resolvableStates, Transition{
		To: StateAbandoned,
		At: r.now(),
	})
	if err != nil {
		if errors.Is(err, ErrStateConflict) {
			return Sighting{}, ErrInvalidState
		}
		return Sighting{}, err
	}

	r.publish(ctx, events.TypeSightingAbandoned, s, false)
	return s, nil
}

type AutoMatchResult struct {
	ResolveResult
	Matched   bool
	Candidate *matching.Candidate
}

// AutoMatch decide sin intervención humana: vincula si un candidato supera
// la barra de auto-match, si no crea un perfil nuevo.
func (r *Resolver) AutoMatch(ctx context.Context, sightingID, callerUserID string) (AutoMatchResult, error) {
	s, err := r.load(ctx, strings.TrimSpace(sightingID), strings.TrimSpace(callerUserID))
	if err != nil {
		return AutoMatchResult{}, err
	}
	if r.ranker == nil {
		return AutoMatchResult{}, ErrRankingUnavailable
	}

	m, err := r.media.GetByID(ctx, s.MediaID)
	if err != nil {
		return AutoMatchResult{}, err
	}
	// Sin embedding ningún candidato llega a la barra; no decidimos a ciegas.
	if !m.HasEmbedding() {
		return AutoMatchResult{}, ErrRankingUnavailable
	}

	ranking := r.ranker.Rank(ctx, matching.Query{
		Vector:      m.Embedding,
		FeatureTags: s.BreedAnalysis,
		Point:       s.Location,
	}, matching.ModeAutoMatch)
	if len(ranking.Warnings) > 0 {
		return AutoMatchResult{}, ErrRankingUnavailable
	}

	if len(ranking.Candidates) > 0 {
		c := ranking.Candidates[0]
		res, err := r.Resolve(ctx, s.ID, s.ReporterUserID, Attach{ProfileID: c.Profile.ID})
		if err != nil {
			return AutoMatchResult{}, err
		}
		return AutoMatchResult{ResolveResult: res, Matched: true, Candidate: &c}, nil
	}

	species := firstNonEmpty(s.Species, "unknown")
	res, err := r.Resolve(ctx, s.ID, s.ReporterUserID, CreateNew{
		Name:    "Stray " + species,
		Species: species,
	})
	if err != nil {
		return AutoMatchResult{}, err
	}
	return AutoMatchResult{ResolveResult: res}, nil
}

func (r *Resolver) Get(ctx context.Context, sightingID string) (Sighting, error) {
	sightingID = strings.TrimSpace(sightingID)
	if sightingID == "" {
		return Sighting{}, ErrNotFound
	}
	return r.sightings.GetByID(ctx, sightingID)
}

func (r *Resolver) ListByReporter(ctx context.Context, reporterUserID string, state State) ([]Sighting, error) {
	reporterUserID = strings.TrimSpace(reporterUserID)
	if reporterUserID == "" {
		return nil, ErrInvalidInput
	}
	return r.sightings.ListByReporter(ctx, reporterUserID, state)
}

// load trae el sighting y valida dueño y estado (en ese orden).
func (r *Resolver) load(ctx context.Context, sightingID, callerUserID string) (Sighting, error) {
	if sightingID == "" {
		return Sighting{}, ErrNotFound
	}
	s, err := r.sightings.GetByID(ctx, sightingID)
	if err != nil {
		return Sighting{}, err
	}
	if callerUserID == "" || s.ReporterUserID != callerUserID {
		return Sighting{}, ErrForbidden
	}
	if !s.State.Resolvable() {
		return Sighting{}, ErrInvalidState
	}
	return s, nil
}

func (r *Resolver) index(ctx context.Context, m media.Media, log logger.Logger) {
	if r.indexer == nil {
		return
	}
	if err := r.indexer.Index(ctx, m); err != nil {
		log.Warn("index media failed", map[string]any{"media_id": m.ID, "error": err})
	}
}

func (r *Resolver) publish(ctx context.Context, t events.Type, s Sighting, created bool) {
	e := events.Event{
		Type:           t,
		SightingID:     s.ID,
		ReporterUserID: s.ReporterUserID,
		State:          string(s.State),
		ProfileCreated: created,
		Latitude:       s.Location.Lat,
		Longitude:      s.Location.Lng,
		OccurredAt:     r.now(),
	}
	if s.ProfileID != nil {
		e.ProfileID = *s.ProfileID
	}
	if err := r.publisher.Publish(ctx, e); err != nil {
		r.log.Warn("publish event failed", map[string]any{"type": string(t), "sighting_id": s.ID, "error": err})
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}

func stepsToStrings(steps []analysis.Step) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, string(s))
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
