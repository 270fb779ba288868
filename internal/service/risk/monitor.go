package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
	"github.com/davidleathers/auth-risk-engine/internal/domain/errors"
	"github.com/davidleathers/auth-risk-engine/internal/infrastructure/config"
	"github.com/davidleathers/auth-risk-engine/internal/infrastructure/memstore"
	"github.com/davidleathers/auth-risk-engine/internal/infrastructure/reputation"
	"github.com/davidleathers/auth-risk-engine/internal/metrics"
)

// Monitor is the façade of the risk engine: it builds the assessment
// context, consults the cache, runs the rule engine, records the outcome
// into the working-set stores and returns the assessment. Any internal
// fault is converted into the fail-safe fallback so the login path is
// never blocked and never bypassed.
type Monitor struct {
	cfg     config.RiskConfig
	logger  *slog.Logger
	metrics *metrics.Registry

	builder  *ContextBuilder
	profiles ProfileStore
	devices  DeviceRegistry
	cache    AssessmentCache
	sources  []reputation.Source

	initOnce sync.Once
	initErr  error
	engine   *Engine
}

var _ MonitorService = (*Monitor)(nil)

// NewMonitor wires the monitor with freshly constructed in-memory stores.
// Reputation sources are loaded later, in Initialize.
func NewMonitor(cfg config.RiskConfig, logger *slog.Logger, m *metrics.Registry, sources ...reputation.Source) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		builder:  NewContextBuilder(),
		profiles: memstore.NewProfileStore(cfg.LocationHistoryCap, cfg.TimeHistoryCap),
		devices:  memstore.NewDeviceRegistry(cfg.DeviceLocationCap),
		cache:    memstore.NewAssessmentCache(cfg.CacheTTL),
		sources:  sources,
	}
}

// Initialize validates the detector configuration and preloads reputation
// data into memory. Idempotent: repeated calls return the first outcome.
// A failed source load is fatal here rather than a silent empty deny list.
func (m *Monitor) Initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		if m.cfg.MediumThreshold >= m.cfg.HighThreshold || m.cfg.MediumThreshold <= 0 {
			m.initErr = errors.NewConfigurationError("INVALID_THRESHOLDS",
				fmt.Sprintf("medium threshold %.0f must be positive and below high threshold %.0f",
					m.cfg.MediumThreshold, m.cfg.HighThreshold))
			return
		}

		data := make([]reputation.Data, 0, len(m.sources))
		for _, src := range m.sources {
			d, err := src.Load(ctx)
			if err != nil {
				m.initErr = errors.Wrap(err, "loading reputation source")
				return
			}
			data = append(data, d)
		}
		store := reputation.NewStore(data...)
		m.metrics.SetDenyListSize(store.DenyListSize())

		deps := Deps{
			Profiles:   m.profiles,
			Devices:    m.devices,
			Reputation: store,
		}
		m.engine = NewEngine(m.cfg, DefaultDetectors(m.cfg), deps, m.logger, m.metrics)

		m.logger.InfoContext(ctx, "risk monitor initialized",
			"deny_list_size", store.DenyListSize(),
			"medium_threshold", m.cfg.MediumThreshold,
			"high_threshold", m.cfg.HighThreshold,
		)
	})
	return m.initErr
}

// AssessRisk evaluates one authentication attempt. The contract is
// "always returns an Assessment": faults anywhere in the pipeline yield
// the fallback medium-risk result instead of an error.
func (m *Monitor) AssessRisk(ctx context.Context, req Request, amb Ambient) (result *assessment.Assessment) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			m.logger.ErrorContext(ctx, "risk assessment failed, returning fallback",
				"error", fmt.Sprint(r),
				"user_id", req.UserID,
				"correlation_id", amb.CorrelationID,
			)
			m.metrics.RecordFallback(ctx)
			result = m.fallbackAssessment(req, amb)
		}
	}()

	if m.engine == nil {
		panic("monitor not initialized")
	}

	ac := m.builder.Build(req, amb)

	key := ac.CacheKey()
	if cached, ok := m.cache.Get(key); ok {
		// No side effects on a hit: profile and device stores are not
		// re-updated, which bounds the blast radius of client retries.
		m.metrics.RecordCacheLookup(ctx, true)
		m.metrics.RecordAssessment(ctx, elapsedMS(start), cached.Level.String(), true)
		m.logger.DebugContext(ctx, "assessment served from cache",
			"assessment_id", cached.ID,
			"level", cached.Level,
		)
		return cached
	}
	m.metrics.RecordCacheLookup(ctx, false)

	a := m.engine.Evaluate(ctx, ac)
	m.cache.Put(key, a)
	m.recordAssessment(ac, a)

	m.metrics.RecordAssessment(ctx, elapsedMS(start), a.Level.String(), false)
	m.metrics.SetWorkingSetSizes(m.profiles.Len(), m.devices.Len())

	if a.Level == assessment.LevelHigh {
		m.logger.WarnContext(ctx, "high risk authentication attempt",
			"assessment_id", a.ID,
			"score", a.Score,
			"factors", a.Factors,
			"user_id", req.UserID,
			"correlation_id", amb.CorrelationID,
		)
	} else {
		m.logger.DebugContext(ctx, "risk assessment completed",
			"assessment_id", a.ID,
			"score", a.Score,
			"level", a.Level,
		)
	}

	return a
}

// recordAssessment feeds the outcome back into the working-set stores.
// Behavior history always grows for an identified user; device trust is
// earned only on a low-risk outcome, never granted during a risky session.
func (m *Monitor) recordAssessment(ac assessment.Context, a *assessment.Assessment) {
	if ac.UserID == "" {
		return
	}

	if ac.Geo != nil {
		m.profiles.RecordLocation(ac.UserID, *ac.Geo, ac.Timestamp, a.ID)
	}
	m.profiles.RecordTimeSample(ac.UserID, ac.Timestamp, a.ID)

	if a.Level == assessment.LevelLow && ac.DeviceID != "" {
		m.devices.Record(ac.UserID, ac.DeviceID, ac.Device, ac.Geo, ac.Timestamp, a.ID)
	}
}

// fallbackAssessment is the fail-safe result: medium risk adds friction
// without failing open or closed.
func (m *Monitor) fallbackAssessment(req Request, amb Ambient) *assessment.Assessment {
	ac := m.builder.Build(req, amb)
	return assessment.New(ac.Sanitized(), FallbackScore, assessment.LevelMedium,
		[]string{FactorEvaluationError}, nil)
}

// ForgetUser erases a user's learned history: behavior profile and all
// earned device trust. Cached assessments for the user age out with the
// TTL; the next fresh evaluation sees a cold start.
func (m *Monitor) ForgetUser(ctx context.Context, userID string) {
	m.profiles.Reset(userID)
	m.devices.Forget(userID)
	m.metrics.SetWorkingSetSizes(m.profiles.Len(), m.devices.Len())
	m.logger.InfoContext(ctx, "user history erased", "user_id", userID)
}

// Shutdown releases in-memory state. It does not persist anything:
// assessment persistence for audit is an external collaborator's concern.
func (m *Monitor) Shutdown(ctx context.Context) error {
	m.profiles.Clear()
	m.devices.Clear()
	m.cache.Clear()
	m.metrics.SetWorkingSetSizes(0, 0)
	m.logger.InfoContext(ctx, "risk monitor shut down")
	return nil
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
