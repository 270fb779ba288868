package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
	domainerrors "github.com/davidleathers/auth-risk-engine/internal/domain/errors"
	"github.com/davidleathers/auth-risk-engine/internal/infrastructure/reputation"
)

// missCache never stores anything, forcing every assessment to be fresh.
type missCache struct{}

func (missCache) Get(string) (*assessment.Assessment, bool) { return nil, false }
func (missCache) Put(string, *assessment.Assessment)        {}
func (missCache) Clear()                                    {}

// faultyCache simulates an internal fault on the assessment path.
type faultyCache struct{}

func (faultyCache) Get(string) (*assessment.Assessment, bool) { panic("cache corrupted") }
func (faultyCache) Put(string, *assessment.Assessment)        {}
func (faultyCache) Clear()                                    {}

// failingSource simulates an unreachable reputation backend.
type failingSource struct{}

func (failingSource) Load(context.Context) (reputation.Data, error) {
	return reputation.Data{}, errors.New("backend unreachable")
}

func newTestMonitor(t *testing.T, sources ...reputation.Source) *Monitor {
	t.Helper()
	m := NewMonitor(testRiskConfig(), nil, nil, sources...)
	require.NoError(t, m.Initialize(context.Background()))
	return m
}

func TestMonitorInitialize(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		m := NewMonitor(testRiskConfig(), nil, nil)
		require.NoError(t, m.Initialize(context.Background()))
		require.NoError(t, m.Initialize(context.Background()))
	})

	t.Run("rejects misordered thresholds", func(t *testing.T) {
		cfg := testRiskConfig()
		cfg.MediumThreshold = 90
		cfg.HighThreshold = 60

		m := NewMonitor(cfg, nil, nil)
		err := m.Initialize(context.Background())

		require.Error(t, err)
		assert.True(t, domainerrors.IsType(err, domainerrors.ErrorTypeConfiguration))
	})

	t.Run("source load failure is fatal", func(t *testing.T) {
		m := NewMonitor(testRiskConfig(), nil, nil, failingSource{})
		require.Error(t, m.Initialize(context.Background()))
	})
}

func TestMonitorCacheIdempotence(t *testing.T) {
	m := newTestMonitor(t)
	ctx := context.Background()
	req := Request{UserID: "u1", IP: "203.0.113.1", DeviceID: "dev-1"}
	amb := Ambient{Timestamp: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)}

	first := m.AssessRisk(ctx, req, amb)
	second := m.AssessRisk(ctx, req, amb)

	// Same assessment object served from cache, down to its identity.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Score, second.Score)

	// A different context fingerprint gets a fresh assessment.
	third := m.AssessRisk(ctx, Request{UserID: "u2", IP: "203.0.113.1"}, amb)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestMonitorCacheHitHasNoSideEffects(t *testing.T) {
	m := newTestMonitor(t)
	ctx := context.Background()
	req := Request{
		UserID:      "u1",
		Geolocation: &assessment.Geolocation{Latitude: -8.83, Longitude: 13.23},
	}
	amb := Ambient{Timestamp: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)}

	m.AssessRisk(ctx, req, amb)
	profile, ok := m.profiles.Get("u1")
	require.True(t, ok)
	samplesAfterFirst := len(profile.TimeSamples)

	m.AssessRisk(ctx, req, amb)
	profile, _ = m.profiles.Get("u1")
	assert.Equal(t, samplesAfterFirst, len(profile.TimeSamples))
	assert.Len(t, profile.Locations, 1)
}

func TestMonitorLearnsBehaviorAcrossCalls(t *testing.T) {
	// First sight of a location and hour is unusual; once recorded, a
	// repeat attempt a week later at the same hour scores lower.
	m := newTestMonitor(t)
	m.cache = missCache{}
	ctx := context.Background()

	luanda := assessment.Geolocation{Latitude: -8.83, Longitude: 13.23}
	req := Request{UserID: "u1", Geolocation: &luanda}

	first := m.AssessRisk(ctx, req, Ambient{
		Timestamp: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
	})
	// unusual_location 50 + unusual_time 25.
	assert.Equal(t, 75.0, first.Score)
	assert.Equal(t, assessment.LevelMedium, first.Level)
	assert.ElementsMatch(t, []string{DetectorUnusualLocation, DetectorUnusualTime}, first.Factors)

	second := m.AssessRisk(ctx, req, Ambient{
		Timestamp: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
	})
	assert.Equal(t, 0.0, second.Score)
	assert.Equal(t, assessment.LevelLow, second.Level)
}

func TestMonitorDenyListedIPIsHighRisk(t *testing.T) {
	m := newTestMonitor(t, reputation.NewStaticSource(
		[]string{"203.0.113.66"}, nil, nil,
	))

	a := m.AssessRisk(context.Background(), Request{IP: "203.0.113.66"}, Ambient{
		Timestamp: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, assessment.LevelHigh, a.Level)
	assert.Contains(t, a.Factors, DetectorKnownBadIP)
	assert.GreaterOrEqual(t, a.Score, 90.0)
}

func TestMonitorDeviceTrustEarnedOnlyOnLowRisk(t *testing.T) {
	m := newTestMonitor(t)
	m.cache = missCache{}
	ctx := context.Background()
	ts := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	// First attempt: unknown device + no time history, medium risk.
	first := m.AssessRisk(ctx, Request{UserID: "u1", DeviceID: "d1"}, Ambient{Timestamp: ts})
	require.Equal(t, assessment.LevelMedium, first.Level)
	assert.False(t, m.devices.IsKnown("u1", "d1"))

	// Time history is now established; the repeat attempt is low risk
	// apart from the device, and still not low enough to earn trust.
	second := m.AssessRisk(ctx, Request{UserID: "u1", DeviceID: "d1"}, Ambient{
		Timestamp: ts.AddDate(0, 0, 7),
	})
	require.Equal(t, assessment.LevelLow, second.Level)
	assert.True(t, m.devices.IsKnown("u1", "d1"))

	// Known device contributes nothing on the next attempt.
	third := m.AssessRisk(ctx, Request{UserID: "u1", DeviceID: "d1"}, Ambient{
		Timestamp: ts.AddDate(0, 0, 14),
	})
	assert.NotContains(t, third.Factors, DetectorUnknownDevice)
}

func TestMonitorFallbackOnInternalFault(t *testing.T) {
	m := newTestMonitor(t)
	m.cache = faultyCache{}

	a := m.AssessRisk(context.Background(), Request{UserID: "u1"}, Ambient{CorrelationID: "c-1"})

	require.NotNil(t, a)
	assert.Equal(t, assessment.LevelMedium, a.Level)
	assert.Equal(t, FallbackScore, a.Score)
	assert.Equal(t, []string{FactorEvaluationError}, a.Factors)
	assert.Equal(t, "u1", a.Context.UserID)
}

func TestMonitorUninitializedReturnsFallback(t *testing.T) {
	m := NewMonitor(testRiskConfig(), nil, nil)

	a := m.AssessRisk(context.Background(), Request{UserID: "u1"}, Ambient{})

	require.NotNil(t, a)
	assert.Equal(t, []string{FactorEvaluationError}, a.Factors)
}

func TestMonitorForgetUser(t *testing.T) {
	m := newTestMonitor(t)
	ctx := context.Background()
	m.AssessRisk(ctx, Request{UserID: "u1", DeviceID: "d1"}, Ambient{})
	m.AssessRisk(ctx, Request{UserID: "u2"}, Ambient{})

	m.ForgetUser(ctx, "u1")

	_, ok := m.profiles.Get("u1")
	assert.False(t, ok)
	assert.False(t, m.devices.IsKnown("u1", "d1"))
	_, ok = m.profiles.Get("u2")
	assert.True(t, ok, "other users unaffected")
}

func TestMonitorShutdownClearsState(t *testing.T) {
	m := newTestMonitor(t)
	ctx := context.Background()
	m.AssessRisk(ctx, Request{UserID: "u1", DeviceID: "d1"}, Ambient{})
	require.NotZero(t, m.profiles.Len())

	require.NoError(t, m.Shutdown(ctx))

	assert.Zero(t, m.profiles.Len())
	assert.Zero(t, m.devices.Len())
}
