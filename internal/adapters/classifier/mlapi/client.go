package mlapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"pawhub/internal/domain/tags"
	"pawhub/internal/platform/httpclient"
	"pawhub/internal/ports/classifier"
)

var (
	ErrMLNotConfigured = errors.New("ml api not configured")
)

const (
	identifyPath = "/identify-pet/"
	embedPath    = "/generate-embedding/"

	DefaultTimeout = 30 * time.Second
)

// Config del servicio de modelos. Normalmente sale de env vars (ML_API_*).
type Config struct {
	BaseURL string
	APIKey  string

	// Timeout por request HTTP; analysis también pone su propio deadline.
	Timeout time.Duration

	// Dimension esperada del embedding. 0 = no validar.
	Dimension int
}

// Client implementa classifier.Classifier contra el servicio HTTP de modelos.
type Client struct {
	http      *httpclient.Client
	dimension int
}

var _ classifier.Classifier = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, ErrMLNotConfigured
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	headers := map[string]string{}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		// El servicio acepta cualquiera de los dos; mandamos ambos.
		headers["Authorization"] = "Bearer " + key
		headers["X-API-Token"] = key
	}

	hc, err := httpclient.New(httpclient.Options{
		BaseURL: base,
		Timeout: timeout,
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, dimension: cfg.Dimension}, nil
}

type imageRequest struct {
	URL         string `json:"url,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

type identifyResponse struct {
	Species       string   `json:"species"`
	Breed         string   `json:"breed"`
	BreedAnalysis []string `json:"breed_analysis"`
	Confidence    float64  `json:"confidence"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (c *Client) Classify(ctx context.Context, img classifier.Image) (classifier.Classification, error) {
	req, err := toRequest(img)
	if err != nil {
		return classifier.Classification{}, fmt.Errorf("%w: %v", classifier.ErrClassificationUnavailable, err)
	}

	var out identifyResponse
	if err := c.http.PostJSON(ctx, identifyPath, req, &out); err != nil {
		return classifier.Classification{}, fmt.Errorf("%w: %v", classifier.ErrClassificationUnavailable, err)
	}

	species := strings.ToLower(strings.TrimSpace(out.Species))
	if species == "" {
		return classifier.Classification{}, fmt.Errorf("%w: response missing species", classifier.ErrClassificationUnavailable)
	}

	return classifier.Classification{
		Species:     species,
		Breed:       strings.TrimSpace(out.Breed),
		FeatureTags: tags.New(out.BreedAnalysis...),
		Confidence:  out.Confidence,
	}, nil
}

func (c *Client) Embed(ctx context.Context, img classifier.Image) ([]float64, error) {
	req, err := toRequest(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", classifier.ErrEmbeddingUnavailable, err)
	}

	var out embeddingResponse
	if err := c.http.PostJSON(ctx, embedPath, req, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", classifier.ErrEmbeddingUnavailable, err)
	}

	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", classifier.ErrEmbeddingUnavailable)
	}
	if c.dimension > 0 && len(out.Embedding) != c.dimension {
		return nil, fmt.Errorf("%w: dimension %d, want %d", classifier.ErrEmbeddingUnavailable, len(out.Embedding), c.dimension)
	}
	return out.Embedding, nil
}

func toRequest(img classifier.Image) (imageRequest, error) {
	if u := strings.TrimSpace(img.URL); u != "" {
		return imageRequest{URL: u}, nil
	}
	if len(img.Data) == 0 {
		return imageRequest{}, errors.New("image has no url nor data")
	}
	return imageRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(img.Data),
		ContentType: img.ContentType,
	}, nil
}
