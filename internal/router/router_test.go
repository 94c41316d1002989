package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"pawhub/internal/domain/tags"
	"pawhub/internal/ports/classifier"
	"pawhub/internal/router"
)

// stubClassifier devuelve la misma clasificación y embedding para cualquier imagen.
type stubClassifier struct {
	failEmbed bool
}

func (stubClassifier) Classify(_ context.Context, _ classifier.Image) (classifier.Classification, error) {
	return classifier.Classification{
		Species:     "dog",
		Breed:       "beagle",
		FeatureTags: tags.New("beagle", "tricolor"),
		Confidence:  0.92,
	}, nil
}

func (s stubClassifier) Embed(_ context.Context, _ classifier.Image) ([]float64, error) {
	if s.failEmbed {
		return nil, errors.New("model down")
	}
	return []float64{0.1, 0.2, 0.3, 0.4}, nil
}

func TestHTTP_EndToEnd_SightingResolvesToPet(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{Classifier: stubClassifier{}}))
	defer ts.Close()

	ownerID := "owner-1"
	reporterID := "reporter-1"

	// 1) Owner registra mascota con foto y ubicación
	petID := createProfile(t, ts.URL, ownerID, map[string]any{
		"name":      "Milo",
		"latitude":  -34.6037,
		"longitude": -58.3816,
		"image_url": "https://img.example/milo.jpg",
	})

	// 2) Owner la marca como perdida
	{
		st, body := doReq(t, ts.URL, "POST", "/profiles/"+petID+"/lost", ownerID, map[string]any{
			"latitude":  -34.6040,
			"longitude": -58.3820,
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 mark lost, got %d body=%s", st, string(body))
		}
	}

	// 3) Otro usuario reporta un avistamiento cerca
	var created struct {
		Sighting struct {
			ID    string `json:"id"`
			State string `json:"state"`
		} `json:"sighting"`
		MatchingProfiles []struct {
			ProfileID     string  `json:"profile_id"`
			CombinedScore float64 `json:"combined_score"`
		} `json:"matching_profiles"`
		ResolutionAvailable bool     `json:"resolution_available"`
		Degraded            []string `json:"degraded"`
	}
	{
		st, body := doReq(t, ts.URL, "POST", "/sightings", reporterID, map[string]any{
			"image_url": "https://img.example/street.jpg",
			"latitude":  -34.6050,
			"longitude": -58.3830,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 create sighting, got %d body=%s", st, string(body))
		}
		if err := json.Unmarshal(body, &created); err != nil {
			t.Fatalf("decode create sighting: %v body=%s", err, string(body))
		}
	}
	if created.Sighting.State != "pending_selection" || !created.ResolutionAvailable {
		t.Fatalf("expected pending_selection with resolution available, got %+v", created)
	}
	if len(created.Degraded) != 0 {
		t.Fatalf("expected no degraded steps, got %v", created.Degraded)
	}
	if len(created.MatchingProfiles) == 0 || created.MatchingProfiles[0].ProfileID != petID {
		t.Fatalf("expected pet %s as top candidate, got %+v", petID, created.MatchingProfiles)
	}
	sightingID := created.Sighting.ID

	// 4) Otro usuario no puede resolver el avistamiento ajeno
	{
		st, _ := doReq(t, ts.URL, "POST", "/sightings/"+sightingID+"/resolve", "intruder", map[string]any{
			"action":     "select_existing",
			"profile_id": petID,
		})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 resolve by other user, got %d", st)
		}
	}

	// 5) El reporter elige la mascota
	{
		st, body := doReq(t, ts.URL, "POST", "/sightings/"+sightingID+"/resolve", reporterID, map[string]any{
			"action":     "select_existing",
			"profile_id": petID,
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 resolve, got %d body=%s", st, string(body))
		}
		var resp struct {
			ProfileID      string `json:"profile_id"`
			ProfileCreated bool   `json:"profile_created"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.ProfileID != petID || resp.ProfileCreated {
			t.Fatalf("unexpected resolve response body=%s", string(body))
		}
	}

	// 6) Un segundo resolve choca con el estado terminal
	{
		st, _ := doReq(t, ts.URL, "POST", "/sightings/"+sightingID+"/resolve", reporterID, map[string]any{
			"action":           "create_new",
			"new_profile_data": map[string]any{"name": "Otro"},
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 second resolve, got %d", st)
		}
	}

	// 7) Cualquiera puede consultar el avistamiento
	{
		st, body := doReq(t, ts.URL, "GET", "/sightings/"+sightingID, "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 get sighting, got %d body=%s", st, string(body))
		}
	}

	// 8) El reporter lo ve como resuelto
	{
		st, body := doReq(t, ts.URL, "GET", "/sightings/mine?state=resolved", reporterID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list mine, got %d body=%s", st, string(body))
		}
		var items []struct {
			ID        string `json:"id"`
			ProfileID string `json:"profile_id"`
		}
		_ = json.Unmarshal(body, &items)
		if len(items) != 1 || items[0].ID != sightingID || items[0].ProfileID != petID {
			t.Fatalf("unexpected mine body=%s", string(body))
		}
	}
}

func TestHTTP_CreateSighting_DegradedWhenEmbeddingFails(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{Classifier: stubClassifier{failEmbed: true}}))
	defer ts.Close()

	st, body := doReq(t, ts.URL, "POST", "/sightings", "reporter-1", map[string]any{
		"image_url": "https://img.example/street.jpg",
		"latitude":  10.0,
		"longitude": 20.0,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 even when degraded, got %d body=%s", st, string(body))
	}

	var resp struct {
		Sighting struct {
			ID    string `json:"id"`
			State string `json:"state"`
		} `json:"sighting"`
		ResolutionAvailable bool     `json:"resolution_available"`
		Degraded            []string `json:"degraded"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.Sighting.State != "classified" || resp.ResolutionAvailable {
		t.Fatalf("expected classified without resolution, body=%s", string(body))
	}
	if len(resp.Degraded) != 1 || resp.Degraded[0] != "embedding" {
		t.Fatalf("expected embedding degraded, got %v", resp.Degraded)
	}

	// Sin embedding auto-match no decide ni crea un callejero
	st, body = doReq(t, ts.URL, "POST", "/sightings/"+resp.Sighting.ID+"/auto-match", "reporter-1", nil)
	if st != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 auto-match without embedding, got %d body=%s", st, string(body))
	}
	st, body = doReq(t, ts.URL, "GET", "/sightings/"+resp.Sighting.ID, "", nil)
	if st != http.StatusOK || !bytes.Contains(body, []byte(`"state":"classified"`)) {
		t.Fatalf("expected sighting still classified, got %d body=%s", st, string(body))
	}
}

func TestHTTP_CreateSighting_RequiresUser(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	st, _ := doReq(t, ts.URL, "POST", "/sightings", "", map[string]any{
		"image_url": "https://img.example/street.jpg",
		"latitude":  10.0,
		"longitude": 20.0,
	})
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", st)
	}
}

func TestHTTP_Health_And_Metrics(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	for _, path := range []string{"/health", "/metrics"} {
		st, body := doReq(t, ts.URL, "GET", path, "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 on %s, got %d body=%s", path, st, string(body))
		}
	}
}

func createProfile(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/profiles", userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create profile, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("create profile: missing id body=%s", string(body))
	}
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}
