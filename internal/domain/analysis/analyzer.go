package analysis

import (
	"context"
	"time"

	"pawhub/internal/platform/logger"
	"pawhub/internal/platform/metrics"
	"pawhub/internal/ports/classifier"

	"golang.org/x/sync/errgroup"
)

const DefaultTimeout = 30 * time.Second

// Step identifica una sub-llamada al servicio de modelos.
type Step string

const (
	StepClassification Step = "classification"
	StepEmbedding      Step = "embedding"
)

// Result junta lo que se haya podido obtener. Cualquiera de los dos puede faltar.
type Result struct {
	Classification *classifier.Classification
	Embedding      []float64
	Degraded       []Step
	Errors         map[Step]error
}

// Available es false solo si ambas llamadas fallaron.
func (r Result) Available() bool {
	return r.Classification != nil || len(r.Embedding) > 0
}

func (r Result) DegradedStep(s Step) bool {
	for _, d := range r.Degraded {
		if d == s {
			return true
		}
	}
	return false
}

type Analyzer struct {
	clf     classifier.Classifier
	timeout time.Duration
	log     logger.Logger
}

func NewAnalyzer(clf classifier.Classifier, timeout time.Duration, log logger.Logger) *Analyzer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{clf: clf, timeout: timeout, log: log}
}

// Analyze lanza Classify y Embed en paralelo, cada una con su propio timeout.
// El fallo de una no cancela la otra; solo la cancelación de ctx corta ambas.
// Nunca devuelve error: los fallos quedan en Result.Degraded.
func (a *Analyzer) Analyze(ctx context.Context, img classifier.Image) Result {
	start := time.Now()
	defer func() {
		metrics.AnalysisDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	var (
		cls    classifier.Classification
		vec    []float64
		clsErr error
		vecErr error
	)

	if a == nil || a.clf == nil {
		clsErr = classifier.ErrClassificationUnavailable
		vecErr = classifier.ErrEmbeddingUnavailable
	} else {
		// Las goroutines devuelven nil siempre: errgroup solo se usa para el join.
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, a.timeout)
			defer cancel()
			cls, clsErr = a.clf.Classify(cctx, img)
			return nil
		})

		g.Go(func() error {
			ectx, cancel := context.WithTimeout(gctx, a.timeout)
			defer cancel()
			vec, vecErr = a.clf.Embed(ectx, img)
			return nil
		})

		_ = g.Wait()
	}

	res := Result{Errors: map[Step]error{}}

	if clsErr != nil {
		res.Degraded = append(res.Degraded, StepClassification)
		res.Errors[StepClassification] = clsErr
	} else {
		res.Classification = &cls
	}

	if vecErr != nil || len(vec) == 0 {
		if vecErr == nil {
			vecErr = classifier.ErrEmbeddingUnavailable
		}
		res.Degraded = append(res.Degraded, StepEmbedding)
		res.Errors[StepEmbedding] = vecErr
	} else {
		res.Embedding = vec
	}

	for _, s := range res.Degraded {
		metrics.DegradedStepsTotal.WithLabelValues(string(s)).Inc()
		a.logger().Warn("classifier step degraded", map[string]any{
			"step":  string(s),
			"error": res.Errors[s],
		})
	}

	return res
}

func (a *Analyzer) logger() logger.Logger {
	if a == nil || a.log == nil {
		return logger.Nop()
	}
	return a.log
}
