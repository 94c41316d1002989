package profiles

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pawhub/internal/domain/geo"
	"pawhub/internal/middleware"
	"pawhub/internal/ports/classifier"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/profiles", func(pr chi.Router) {
		pr.Post("/", registerProfileHandler(svc))
		pr.Get("/mine", listMyProfilesHandler(svc))
		pr.Get("/nearby", nearbyProfilesHandler(svc))
		pr.Get("/{profileID}", getProfileHandler(svc))
		pr.Post("/{profileID}/lost", markLostHandler(svc))
	})
}

type registerProfileRequest struct {
	Name        string   `json:"name"`
	Species     string   `json:"species"`
	Breed       string   `json:"breed"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	SizeBytes   int64    `json:"size_bytes,omitempty"`
}

type profileResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          Type      `json:"type"`
	Species       string    `json:"species"`
	Breed         string    `json:"breed"`
	OwnerUserID   *string   `json:"owner_user_id"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	BreedAnalysis []string  `json:"breed_analysis"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type nearbyProfileResponse struct {
	profileResponse
	DistanceKm float64 `json:"distance_km"`
}

// registerProfileHandler godoc
// @Summary Registrar mascota
// @Description Crea un perfil de mascota con dueño = usuario autenticado. Si viene image_url se clasifica y se guarda como evidencia del perfil.
// @Tags profiles
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param payload body registerProfileRequest true "Datos de la mascota"
// @Success 201 {object} profileResponse
// @Failure 400 {string} string "invalid json / invalid input"
// @Failure 401 {string} string "unauthorized"
// @Router /profiles [post]
func registerProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req registerProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := RegisterInput{
			Name:    req.Name,
			Species: req.Species,
			Breed:   req.Breed,
		}
		if (req.Latitude == nil) != (req.Longitude == nil) {
			http.Error(w, "latitude and longitude go together", http.StatusBadRequest)
			return
		}
		if req.Latitude != nil {
			in.Location = &geo.Point{Lat: *req.Latitude, Lng: *req.Longitude}
		}
		if u := strings.TrimSpace(req.ImageURL); u != "" {
			in.Image = &classifier.Image{URL: u, ContentType: req.ContentType, SizeBytes: req.SizeBytes}
		}

		p, err := svc.Register(r.Context(), claims.UserID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toProfileResponse(p))
	}
}

// getProfileHandler godoc
// @Summary Obtener perfil
// @Tags profiles
// @Produce json
// @Param profileID path string true "ID del perfil"
// @Success 200 {object} profileResponse
// @Failure 404 {string} string "not found"
// @Router /profiles/{profileID} [get]
func getProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "profileID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileResponse(p))
	}
}

// listMyProfilesHandler godoc
// @Summary Listar mis mascotas
// @Tags profiles
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Success 200 {array} profileResponse
// @Failure 401 {string} string "unauthorized"
// @Router /profiles/mine [get]
func listMyProfilesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]profileResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toProfileResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// nearbyProfilesHandler godoc
// @Summary Perfiles cercanos
// @Description Perfiles con ubicación dentro del radio, ordenados por distancia.
// @Tags profiles
// @Produce json
// @Param latitude query number true "Latitud"
// @Param longitude query number true "Longitud"
// @Param radius_km query number false "Radio en km (default 10)"
// @Param type query string false "pet | stray (se puede repetir)"
// @Success 200 {array} nearbyProfileResponse
// @Failure 400 {string} string "invalid query"
// @Router /profiles/nearby [get]
func nearbyProfilesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		lat, err1 := strconv.ParseFloat(q.Get("latitude"), 64)
		lng, err2 := strconv.ParseFloat(q.Get("longitude"), 64)
		if err1 != nil || err2 != nil {
			http.Error(w, "latitude and longitude required", http.StatusBadRequest)
			return
		}

		radius := DefaultNearbyRadiusKm
		if raw := strings.TrimSpace(q.Get("radius_km")); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				http.Error(w, "invalid radius_km", http.StatusBadRequest)
				return
			}
			radius = v
		}

		var filter Filter
		for _, raw := range q["type"] {
			for _, part := range strings.Split(raw, ",") {
				t, ok := ParseType(strings.TrimSpace(part))
				if !ok {
					http.Error(w, "invalid type", http.StatusBadRequest)
					return
				}
				filter.Types = append(filter.Types, t)
			}
		}

		items, err := svc.Nearby(r.Context(), geo.Point{Lat: lat, Lng: lng}, radius, filter)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]nearbyProfileResponse, 0, len(items))
		for _, l := range items {
			out = append(out, nearbyProfileResponse{
				profileResponse: toProfileResponse(l.Profile),
				DistanceKm:      l.DistanceKm,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type markLostRequest struct {
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	BreedAnalysis []string `json:"breed_analysis,omitempty"`
}

// markLostHandler godoc
// @Summary Marcar mascota como perdida
// @Description Actualiza la última ubicación conocida (y opcionalmente rasgos) para que los avistamientos cercanos la encuentren. Solo el dueño.
// @Tags profiles
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param profileID path string true "ID del perfil"
// @Param payload body markLostRequest true "Última ubicación"
// @Success 200 {object} profileResponse
// @Failure 400 {string} string "invalid json / invalid input"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /profiles/{profileID}/lost [post]
func markLostHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req markLostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Latitude == nil || req.Longitude == nil {
			http.Error(w, "latitude and longitude required", http.StatusBadRequest)
			return
		}

		p, err := svc.MarkLost(r.Context(), chi.URLParam(r, "profileID"), claims.UserID, LostInput{
			Location:      geo.Point{Lat: *req.Latitude, Lng: *req.Longitude},
			BreedAnalysis: req.BreedAnalysis,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileResponse(p))
	}
}

func toProfileResponse(p Profile) profileResponse {
	res := profileResponse{
		ID:            p.ID,
		Name:          p.Name,
		Type:          p.Type,
		Species:       p.Species,
		Breed:         p.Breed,
		OwnerUserID:   p.OwnerUserID,
		BreedAnalysis: p.BreedAnalysis.Values(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.Location != nil {
		lat, lng := p.Location.Lat, p.Location.Lng
		res.Latitude, res.Longitude = &lat, &lng
	}
	return res
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
