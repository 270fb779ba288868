package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
)

// panicDetector simulates a faulty detector.
type panicDetector struct{}

func (d *panicDetector) Name() string { return "faulty" }

func (d *panicDetector) Evaluate(*assessment.Context, Deps) DetectorResult {
	panic("detector bug")
}

// stubDetector contributes a fixed result.
type stubDetector struct {
	name   string
	result DetectorResult
}

func (d *stubDetector) Name() string { return d.name }

func (d *stubDetector) Evaluate(*assessment.Context, Deps) DetectorResult {
	return d.result
}

func newTestEngine(t *testing.T, detectors ...Detector) *Engine {
	t.Helper()
	cfg := testRiskConfig()
	if detectors == nil {
		detectors = DefaultDetectors(cfg)
	}
	return NewEngine(cfg, detectors, emptyDeps(), nil, nil)
}

func TestEngineClassify(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		score float64
		want  assessment.Level
	}{
		{0, assessment.LevelLow},
		{59, assessment.LevelLow},
		{60, assessment.LevelMedium},
		{89, assessment.LevelMedium},
		{90, assessment.LevelHigh},
		{250, assessment.LevelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Classify(tt.score), "score %v", tt.score)
	}
}

func TestEngineSumsTriggeredDetectors(t *testing.T) {
	e := newTestEngine(t,
		&stubDetector{name: "a", result: fired(40, "a fired", nil)},
		&stubDetector{name: "b", result: cleared()},
		&stubDetector{name: "c", result: fired(25, "c fired", nil)},
		&stubDetector{name: "d", result: notApplicable()},
	)

	a := e.Evaluate(context.Background(), assessment.Context{UserID: "u1"})

	assert.Equal(t, 65.0, a.Score)
	assert.Equal(t, assessment.LevelMedium, a.Level)
	assert.Equal(t, []string{"a", "c"}, a.Factors)
	require.Contains(t, a.Details, "a")
	assert.Equal(t, 40.0, a.Details["a"].Score)
	assert.Equal(t, "a fired", a.Details["a"].Reason)
}

func TestEngineDeterministic(t *testing.T) {
	e := newTestEngine(t)
	ac := assessment.Context{
		UserID:    "u1",
		IP:        "203.0.113.1",
		DeviceID:  "dev-1",
		Timestamp: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
	}

	first := e.Evaluate(context.Background(), ac)
	second := e.Evaluate(context.Background(), ac)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Level, second.Level)
	assert.Equal(t, first.Factors, second.Factors)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEngineMonotonicity(t *testing.T) {
	// Adding a risk signal never lowers the score.
	e := newTestEngine(t)
	ts := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	base := e.Evaluate(context.Background(), assessment.Context{
		UserID:    "u1",
		Timestamp: ts,
	})
	withDevice := e.Evaluate(context.Background(), assessment.Context{
		UserID:    "u1",
		DeviceID:  "never-seen",
		Timestamp: ts,
	})

	assert.GreaterOrEqual(t, withDevice.Score, base.Score)
}

func TestEngineSurvivesDetectorPanic(t *testing.T) {
	e := newTestEngine(t,
		&stubDetector{name: "a", result: fired(40, "a fired", nil)},
		&panicDetector{},
		&stubDetector{name: "c", result: fired(25, "c fired", nil)},
	)

	a := e.Evaluate(context.Background(), assessment.Context{UserID: "u1"})

	// The faulty detector contributes nothing; the rest still count.
	assert.Equal(t, 65.0, a.Score)
	assert.Equal(t, []string{"a", "c"}, a.Factors)
	assert.NotContains(t, a.Details, "faulty")
}

func TestEngineSanitizesContext(t *testing.T) {
	e := newTestEngine(t)

	a := e.Evaluate(context.Background(), assessment.Context{
		UserID: "u1",
		Attributes: map[string]string{
			"password":   "hunter2",
			"request_id": "r-1",
		},
	})

	assert.NotContains(t, a.Context.Attributes, "password")
	assert.Equal(t, "r-1", a.Context.Attributes["request_id"])
}

func TestEngineColdStartIsConservative(t *testing.T) {
	// A fully-populated request from a user with no history trips the
	// history-based detectors.
	e := newTestEngine(t)

	a := e.Evaluate(context.Background(), assessment.Context{
		UserID:    "new-user",
		DeviceID:  "new-device",
		Geo:       &assessment.Geolocation{Latitude: -8.83, Longitude: 13.23},
		Timestamp: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
	})

	assert.Contains(t, a.Factors, DetectorUnusualLocation)
	assert.Contains(t, a.Factors, DetectorUnknownDevice)
	assert.Contains(t, a.Factors, DetectorUnusualTime)
	// 50 + 40 + 25
	assert.Equal(t, 115.0, a.Score)
	assert.Equal(t, assessment.LevelHigh, a.Level)
}
