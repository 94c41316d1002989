package router

import (
	"database/sql"
	"net/http"
	"time"

	mem "pawhub/internal/adapters/storage/memory"
	pg "pawhub/internal/adapters/storage/postgres"
	"pawhub/internal/domain/analysis"
	"pawhub/internal/domain/matching"
	"pawhub/internal/domain/media"
	"pawhub/internal/domain/profiles"
	"pawhub/internal/domain/sightings"
	"pawhub/internal/middleware"
	"pawhub/internal/platform/logger"
	"pawhub/internal/platform/metrics"
	"pawhub/internal/ports/auth"
	"pawhub/internal/ports/classifier"
	"pawhub/internal/ports/events"

	_ "pawhub/internal/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// VectorStore guarda embeddings fuera de la base relacional (p. ej. Qdrant).
type VectorStore interface {
	matching.EmbeddingStore
	media.Indexer
}

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	Classifier      classifier.Classifier // nil: todo sighting queda degradado
	AnalysisTimeout time.Duration
	Policy          *matching.Policy // nil: matching.DefaultPolicy()

	Vectors   VectorStore      // opcional: si no, los embeddings viven en el repo de media
	Publisher events.Publisher // opcional
	Logger    logger.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	policy := matching.DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLog(log))

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	metrics.Register()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	var (
		profileRepo  profiles.Repository
		mediaRepo    media.Repository
		sightingRepo sightings.Repository
		embeddings   matching.EmbeddingStore
	)

	if opts.DB != nil {
		pm := pg.NewMediaRepo(opts.DB)
		profileRepo = pg.NewProfilesRepo(opts.DB)
		mediaRepo = pm
		sightingRepo = pg.NewSightingsRepo(opts.DB)
		embeddings = pm
	} else {
		mm := mem.NewMediaRepo()
		profileRepo = mem.NewProfileRepo()
		mediaRepo = mm
		sightingRepo = mem.NewSightingRepo()
		embeddings = mm
	}

	var indexer media.Indexer
	if opts.Vectors != nil {
		embeddings = opts.Vectors
		indexer = opts.Vectors
	}

	analyzer := analysis.NewAnalyzer(opts.Classifier, opts.AnalysisTimeout, log)

	// Services por módulo
	profilesSvc := profiles.NewService(profiles.Deps{
		Repo:     profileRepo,
		Media:    mediaRepo,
		Analyzer: analyzer,
		Indexer:  indexer,
		Log:      log,
	})
	ranker := matching.NewRanker(profileRepo, embeddings, policy, log)
	resolver := sightings.NewResolver(sightings.Deps{
		Sightings: sightingRepo,
		Media:     mediaRepo,
		Profiles:  profilesSvc,
		Analyzer:  analyzer,
		Ranker:    ranker,
		Indexer:   indexer,
		Publisher: opts.Publisher,
		Log:       log,
	})

	// Rutas por módulo
	profiles.RegisterRoutes(r, profilesSvc)
	sightings.RegisterRoutes(r, resolver)

	return r
}
