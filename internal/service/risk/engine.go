package risk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
	"github.com/davidleathers/auth-risk-engine/internal/infrastructure/config"
	"github.com/davidleathers/auth-risk-engine/internal/metrics"
)

// Engine orchestrates the detector list into a weighted additive score and
// classifies it into a risk level. Evaluation never fails: a panicking
// detector contributes zero and the rest of the evaluation continues.
type Engine struct {
	detectors []Detector
	deps      Deps

	mediumThreshold float64
	highThreshold   float64

	logger  *slog.Logger
	metrics *metrics.Registry
}

// NewEngine creates an engine over the given detectors and collaborators.
func NewEngine(cfg config.RiskConfig, detectors []Detector, deps Deps, logger *slog.Logger, m *metrics.Registry) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		detectors:       detectors,
		deps:            deps,
		mediumThreshold: cfg.MediumThreshold,
		highThreshold:   cfg.HighThreshold,
		logger:          logger,
		metrics:         m,
	}
}

// Evaluate runs all applicable detectors against the context and produces
// an immutable Assessment. Detectors whose required fields are absent are
// skipped; the score is the sum of triggered contributions, each counted
// once.
func (e *Engine) Evaluate(ctx context.Context, ac assessment.Context) *assessment.Assessment {
	var (
		score   float64
		factors []string
		details map[string]assessment.Finding
	)

	for _, d := range e.detectors {
		result := e.runDetector(ctx, d, &ac)
		if !result.Triggered {
			continue
		}
		score += result.Score
		factors = append(factors, d.Name())
		if details == nil {
			details = make(map[string]assessment.Finding)
		}
		details[d.Name()] = assessment.Finding{
			Detector: d.Name(),
			Score:    result.Score,
			Reason:   result.Reason,
			Evidence: result.Evidence,
		}
	}

	return assessment.New(ac.Sanitized(), score, e.Classify(score), factors, details)
}

// runDetector isolates one detector so a fault in it cannot abort the
// evaluation.
func (e *Engine) runDetector(ctx context.Context, d Detector, ac *assessment.Context) (result DetectorResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "detector failed, contribution skipped",
				"detector", d.Name(),
				"error", fmt.Sprint(r),
			)
			e.metrics.RecordDetectorFailure(ctx, d.Name())
			result = notApplicable()
		}
	}()
	return d.Evaluate(ac, e.deps)
}

// Classify maps a score onto the configured risk levels.
func (e *Engine) Classify(score float64) assessment.Level {
	switch {
	case score >= e.highThreshold:
		return assessment.LevelHigh
	case score >= e.mediumThreshold:
		return assessment.LevelMedium
	default:
		return assessment.LevelLow
	}
}
