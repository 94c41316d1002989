package sightings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pawhub/internal/domain/geo"
	"pawhub/internal/domain/matching"
	"pawhub/internal/middleware"
	"pawhub/internal/ports/classifier"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Resolver) {
	r.Route("/sightings", func(sr chi.Router) {
		sr.Post("/", createSightingHandler(svc))
		sr.Get("/mine", listMySightingsHandler(svc))
		sr.Get("/{sightingID}", getSightingHandler(svc))
		sr.Post("/{sightingID}/resolve", resolveSightingHandler(svc))
		sr.Post("/{sightingID}/abandon", abandonSightingHandler(svc))
		sr.Post("/{sightingID}/auto-match", autoMatchSightingHandler(svc))
	})
}

type createSightingRequest struct {
	ImageURL    string   `json:"image_url"`
	ContentType string   `json:"content_type"`
	SizeBytes   int64    `json:"size_bytes"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	RadiusKm    float64  `json:"radius_km,omitempty"`
}

type classificationResponse struct {
	Species       string   `json:"species"`
	Breed         string   `json:"breed"`
	BreedAnalysis []string `json:"breed_analysis"`
	Confidence    float64  `json:"confidence"`
}

type sightingResponse struct {
	ID             string     `json:"id"`
	ReporterUserID string     `json:"reporter_user_id"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	MediaID        string     `json:"media_id"`
	ProfileID      *string    `json:"profile_id"`
	Species        string     `json:"species,omitempty"`
	Breed          string     `json:"breed,omitempty"`
	BreedAnalysis  []string   `json:"breed_analysis"`
	State          State      `json:"state"`
	Degraded       []string   `json:"degraded,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

type candidateResponse struct {
	ProfileID        string  `json:"profile_id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Species          string  `json:"species"`
	Breed            string  `json:"breed"`
	CombinedScore    float64 `json:"combined_score"`
	ImageScore       float64 `json:"image_score"`
	FeatureScore     float64 `json:"feature_score"`
	DistanceKm       float64 `json:"distance_km"`
	MatchingMediaID  string  `json:"matching_media_id,omitempty"`
	MatchingImageURL string  `json:"matching_image_url,omitempty"`
	Confidence       string  `json:"confidence"`
}

type createSightingResponse struct {
	Sighting            sightingResponse        `json:"sighting"`
	Classification      *classificationResponse `json:"classification,omitempty"`
	MatchingProfiles    []candidateResponse     `json:"matching_profiles"`
	SearchRadiusKm      float64                 `json:"search_radius_km,omitempty"`
	ResolutionAvailable bool                    `json:"resolution_available"`
	Warnings            []string                `json:"warnings"`
	Degraded            []string                `json:"degraded"`
}

// createSightingHandler godoc
// @Summary Reportar un avistamiento
// @Description Guarda la foto y la ubicación, clasifica la imagen y devuelve perfiles cercanos parecidos. Si el servicio de modelos falla el avistamiento se guarda igual (degraded).
// @Tags sightings
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param payload body createSightingRequest true "Imagen y ubicación"
// @Success 201 {object} createSightingResponse
// @Failure 400 {string} string "invalid json / invalid input"
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "internal error"
// @Router /sightings [post]
func createSightingHandler(svc *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createSightingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Latitude == nil || req.Longitude == nil {
			http.Error(w, "latitude and longitude required", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.ImageURL) == "" {
			http.Error(w, "image_url required", http.StatusBadRequest)
			return
		}

		out, err := svc.Create(r.Context(), CreateInput{
			ReporterUserID: claims.UserID,
			Image: classifier.Image{
				URL:         req.ImageURL,
				ContentType: req.ContentType,
				SizeBytes:   req.SizeBytes,
			},
			Location: geo.Point{Lat: *req.Latitude, Lng: *req.Longitude},
			RadiusKm: req.RadiusKm,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		res := createSightingResponse{
			Sighting:            toSightingResponse(out.Sighting),
			MatchingProfiles:    toCandidateResponses(out.Candidates),
			SearchRadiusKm:      out.RadiusKm,
			ResolutionAvailable: out.ResolutionAvailable,
			Warnings:            out.Warnings,
			Degraded:            out.Degraded,
		}
		if c := out.Classification; c != nil {
			res.Classification = &classificationResponse{
				Species:       c.Species,
				Breed:         c.Breed,
				BreedAnalysis: c.FeatureTags.Values(),
				Confidence:    c.Confidence,
			}
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// getSightingHandler godoc
// @Summary Obtener un avistamiento
// @Tags sightings
// @Produce json
// @Param sightingID path string true "ID del avistamiento"
// @Success 200 {object} sightingResponse
// @Failure 404 {string} string "not found"
// @Router /sightings/{sightingID} [get]
func getSightingHandler(svc *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.Get(r.Context(), chi.URLParam(r, "sightingID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSightingResponse(s))
	}
}

// listMySightingsHandler godoc
// @Summary Listar mis avistamientos
// @Tags sightings
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param state query string false "Filtrar por estado"
// @Success 200 {array} sightingResponse
// @Failure 400 {string} string "invalid state"
// @Failure 401 {string} string "unauthorized"
// @Router /sightings/mine [get]
func listMySightingsHandler(svc *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var state State
		if raw := strings.TrimSpace(r.URL.Query().Get("state")); raw != "" {
			st, ok := ParseState(raw)
			if !ok {
				http.Error(w, "invalid state", http.StatusBadRequest)
				return
			}
			state = st
		}

		items, err := svc.ListByReporter(r.Context(), claims.UserID, state)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]sightingResponse, 0, len(items))
		for _, s := range items {
			out = append(out, toSightingResponse(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type newProfileData struct {
	Name    string `json:"name"`
	Species string `json:"species"`
	Breed   string `json:"breed"`
}

type resolveSightingRequest struct {
	Action         string          `json:"action"`
	ProfileID      string          `json:"profile_id,omitempty"`
	NewProfileData *newProfileData `json:"new_profile_data,omitempty"`
}

type resolveSightingResponse struct {
	Sighting       sightingResponse `json:"sighting"`
	ProfileID      string           `json:"profile_id"`
	ProfileName    string           `json:"profile_name"`
	ProfileCreated bool             `json:"profile_created"`
	Matched        *bool            `json:"matched,omitempty"`
}

// resolveSightingHandler godoc
// @Summary Resolver un avistamiento
// @Description Vincula el avistamiento a un perfil existente (select_existing) o crea un perfil callejero nuevo (create_new). Solo quien reportó puede resolver.
// @Tags sightings
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param sightingID path string true "ID del avistamiento"
// @Param payload body resolveSightingRequest true "Decisión"
// @Success 200 {object} resolveSightingResponse
// @Failure 400 {string} string "invalid json / invalid input"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "sighting already resolved or abandoned"
// @Router /sightings/{sightingID}/resolve [post]
func resolveSightingHandler(svc *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req resolveSightingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var d Decision
		switch strings.TrimSpace(req.Action) {
		case Attach{}.action():
			d = Attach{ProfileID: req.ProfileID}
		case CreateNew{}.action():
			if req.NewProfileData == nil {
				http.Error(w, "new_profile_data required", http.StatusBadRequest)
				return
			}
			d = CreateNew{
				Name:    req.NewProfileData.Name,
				Species: req.NewProfileData.Species,
				Breed:   req.NewProfileData.Breed,
			}
		default:
			http.Error(w, "action must be select_existing or create_new", http.StatusBadRequest)
			return
		}

		out, err := svc.Resolve(r.Context(), chi.URLParam(r, "sightingID"), claims.UserID, d)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResolveResponse(out))
	}
}

// abandonSightingHandler godoc
// @Summary Abandonar un avistamiento
// @Tags sightings
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param sightingID path string true "ID del avistamiento"
// @Success 200 {object} sightingResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "sighting already resolved or abandoned"
// @Router /sightings/{sightingID}/abandon [post]
func abandonSightingHandler(svc *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		s, err := svc.Abandon(r.Context(), chi.URLParam(r, "sightingID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSightingResponse(s))
	}
}

// autoMatchSightingHandler godoc
// @Summary Resolver automáticamente
// @Description Vincula al mejor candidato si supera el umbral de auto-match; si no, crea un perfil callejero. Sin embedding o con el ranking degradado responde 503 y no decide.
// @Tags sightings
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param sightingID path string true "ID del avistamiento"
// @Success 200 {object} resolveSightingResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "sighting already resolved or abandoned"
// @Failure 503 {string} string "ranking unavailable"
// @Router /sightings/{sightingID}/auto-match [post]
func autoMatchSightingHandler(svc *Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		out, err := svc.AutoMatch(r.Context(), chi.URLParam(r, "sightingID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		res := toResolveResponse(out.ResolveResult)
		matched := out.Matched
		res.Matched = &matched
		writeJSON(w, http.StatusOK, res)
	}
}

func toSightingResponse(s Sighting) sightingResponse {
	return sightingResponse{
		ID:             s.ID,
		ReporterUserID: s.ReporterUserID,
		Latitude:       s.Location.Lat,
		Longitude:      s.Location.Lng,
		MediaID:        s.MediaID,
		ProfileID:      s.ProfileID,
		Species:        s.Species,
		Breed:          s.Breed,
		BreedAnalysis:  s.BreedAnalysis.Values(),
		State:          s.State,
		Degraded:       s.Degraded,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		ResolvedAt:     s.ResolvedAt,
	}
}

func toCandidateResponses(cs []matching.Candidate) []candidateResponse {
	out := make([]candidateResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, candidateResponse{
			ProfileID:        c.Profile.ID,
			Name:             c.Profile.Name,
			Type:             string(c.Profile.Type),
			Species:          c.Profile.Species,
			Breed:            c.Profile.Breed,
			CombinedScore:    c.CombinedScore,
			ImageScore:       c.ImageScore,
			FeatureScore:     c.FeatureScore,
			DistanceKm:       c.DistanceKm,
			MatchingMediaID:  c.MatchingMediaID,
			MatchingImageURL: c.MatchingImageURL,
			Confidence:       c.Confidence,
		})
	}
	return out
}

func toResolveResponse(r ResolveResult) resolveSightingResponse {
	return resolveSightingResponse{
		Sighting:       toSightingResponse(r.Sighting),
		ProfileID:      r.Profile.ID,
		ProfileName:    r.Profile.Name,
		ProfileCreated: r.ProfileCreated,
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidState):
		http.Error(w, "sighting already resolved or abandoned", http.StatusConflict)
	case errors.Is(err, ErrRankingUnavailable):
		http.Error(w, "ranking unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON está duplicado en cada módulo para no crear un paquete "utils".
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
