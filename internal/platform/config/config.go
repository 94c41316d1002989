package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port  int    `env:"PORT" envDefault:"8080"`
	DBDSN string `env:"DB_DSN"`

	MLAPIBaseURL       string        `env:"ML_API_BASE_URL"`
	MLAPIKey           string        `env:"ML_API_KEY"`
	MLAPITimeout       time.Duration `env:"ML_API_TIMEOUT" envDefault:"30s"`
	EmbeddingDimension int           `env:"EMBEDDING_DIMENSION" envDefault:"512"`

	QdrantHost       string `env:"QDRANT_HOST"`
	QdrantPort       int    `env:"QDRANT_PORT" envDefault:"6334"`
	QdrantCollection string `env:"QDRANT_COLLECTION" envDefault:"pawhub_media"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"pawhub.sightings"`

	MatchImageWeight   float64 `env:"MATCH_IMAGE_WEIGHT" envDefault:"0.7"`
	MatchFeatureWeight float64 `env:"MATCH_FEATURE_WEIGHT" envDefault:"0.3"`
	SuggestLimit       int     `env:"SUGGEST_LIMIT" envDefault:"10"`
	SuggestRadiusKm    float64 `env:"SUGGEST_RADIUS_KM" envDefault:"10"`
	AutoMatchThreshold float64 `env:"AUTOMATCH_THRESHOLD" envDefault:"0.9"`
	AutoMatchRadiusKm  float64 `env:"AUTOMATCH_RADIUS_KM" envDefault:"20"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	AppName   string `env:"APP_NAME" envDefault:"pawhub"`
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("PORT must be between 1 and 65535")
	}
	if c.MLAPITimeout <= 0 {
		return errors.New("ML_API_TIMEOUT must be positive")
	}
	if c.EmbeddingDimension <= 0 {
		return errors.New("EMBEDDING_DIMENSION must be positive")
	}
	if c.MatchImageWeight < 0 || c.MatchFeatureWeight < 0 {
		return errors.New("MATCH_*_WEIGHT cannot be negative")
	}
	if sum := c.MatchImageWeight + c.MatchFeatureWeight; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("MATCH_IMAGE_WEIGHT + MATCH_FEATURE_WEIGHT must be 1, got %v", sum)
	}
	if c.SuggestLimit < 1 {
		return errors.New("SUGGEST_LIMIT must be at least 1")
	}
	if c.SuggestRadiusKm <= 0 || c.AutoMatchRadiusKm <= 0 {
		return errors.New("SUGGEST_RADIUS_KM and AUTOMATCH_RADIUS_KM must be positive")
	}
	if c.AutoMatchThreshold <= 0 || c.AutoMatchThreshold > 1 {
		return errors.New("AUTOMATCH_THRESHOLD must be in (0,1]")
	}
	if c.QdrantHost != "" && (c.QdrantPort <= 0 || c.QdrantCollection == "") {
		return errors.New("QDRANT_PORT and QDRANT_COLLECTION are required when QDRANT_HOST is set")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load lee .env (si existe) y el entorno, y valida.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
