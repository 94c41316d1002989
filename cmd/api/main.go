// @title PawHub Sightings API
// @version 1.0
// @description Avistamientos de animales: clasificación, búsqueda de perfiles cercanos y resolución.
// @BasePath /
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pawhub/internal/adapters/classifier/mlapi"
	"pawhub/internal/adapters/events/rabbitmq"
	pg "pawhub/internal/adapters/storage/postgres"
	"pawhub/internal/adapters/vectors/qdrant"
	"pawhub/internal/domain/matching"
	"pawhub/internal/platform/config"
	"pawhub/internal/platform/logger"
	"pawhub/internal/ports/classifier"
	"pawhub/internal/ports/events"
	"pawhub/internal/router"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pawhub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn("close resource failed", map[string]any{"error": err})
			}
		}
	}()

	opts := router.Options{
		AuthVerifier:    nil, // sin verifier para modo dev
		AnalysisTimeout: cfg.MLAPITimeout,
		Logger:          log,
	}

	// Si no hay DB_DSN, in-memory (para dev/handoff)
	if cfg.DBDSN != "" {
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		closers = append(closers, db)
		if err := migrate(ctx, db); err != nil {
			return err
		}
		opts.DB = db
		log.Info("using postgres storage", nil)
	} else {
		log.Warn("DB_DSN not set, using in-memory storage", nil)
	}

	if clf, err := newClassifier(cfg); err != nil {
		return err
	} else if clf != nil {
		opts.Classifier = clf
	} else {
		log.Warn("ML_API_BASE_URL not set, every sighting will be degraded", nil)
	}

	if cfg.QdrantHost != "" {
		store, err := qdrant.NewStore(ctx, qdrant.Config{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			Collection: cfg.QdrantCollection,
			Dimension:  cfg.EmbeddingDimension,
		}, log)
		if err != nil {
			return fmt.Errorf("connect qdrant: %w", err)
		}
		closers = append(closers, store)
		opts.Vectors = store
	}

	if cfg.AMQPURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		closers = append(closers, pub)
		opts.Publisher = events.Publisher(pub)
	}

	policy := policyFrom(cfg)
	if err := policy.Validate(); err != nil {
		return err
	}
	opts.Policy = &policy

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.NewRouter(opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.MLAPITimeout + 15*time.Second, // classify+embed bloquean el POST /sightings
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrate(ctx context.Context, db *sql.DB) error {
	mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := pg.Migrate(mctx, db); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

func newClassifier(cfg *config.Config) (classifier.Classifier, error) {
	if cfg.MLAPIBaseURL == "" {
		return nil, nil
	}
	c, err := mlapi.NewClient(mlapi.Config{
		BaseURL:   cfg.MLAPIBaseURL,
		APIKey:    cfg.MLAPIKey,
		Timeout:   cfg.MLAPITimeout,
		Dimension: cfg.EmbeddingDimension,
	})
	if err != nil {
		return nil, fmt.Errorf("ml api client: %w", err)
	}
	return c, nil
}

func policyFrom(cfg *config.Config) matching.Policy {
	p := matching.DefaultPolicy()
	p.Weights = matching.Weights{Image: cfg.MatchImageWeight, Feature: cfg.MatchFeatureWeight}
	p.Suggest.Limit = cfg.SuggestLimit
	p.Suggest.RadiusKm = cfg.SuggestRadiusKm
	p.AutoMatch.RadiusKm = cfg.AutoMatchRadiusKm
	p.AutoMatch.MinScore = cfg.AutoMatchThreshold
	return p
}
