package risk

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
)

// Monitor is the public entry point of the risk engine.
type MonitorService interface {
	// Initialize wires detector configuration and preloads reputation data;
	// idempotent, callable once at process startup.
	Initialize(ctx context.Context) error
	// AssessRisk evaluates one authentication attempt. It always returns an
	// Assessment; internal faults produce the fail-safe fallback instead of
	// an error.
	AssessRisk(ctx context.Context, req Request, amb Ambient) *assessment.Assessment
	// Shutdown releases in-memory state. Best effort; persistence for audit
	// is an external collaborator's responsibility.
	Shutdown(ctx context.Context) error
}

// ProfileStore is the per-user behavioral history consumed and updated by
// the engine.
type ProfileStore interface {
	Get(userID string) (*assessment.BehaviorProfile, bool)
	RecordLocation(userID string, geo assessment.Geolocation, ts time.Time, assessmentID uuid.UUID)
	RecordTimeSample(userID string, ts time.Time, assessmentID uuid.UUID)
	Reset(userID string)
	Len() int
	Clear()
}

// DeviceRegistry tracks earned-trust (user, device) pairs.
type DeviceRegistry interface {
	IsKnown(userID, deviceID string) bool
	Record(userID, deviceID string, attrs *assessment.DeviceAttributes, geo *assessment.Geolocation, ts time.Time, assessmentID uuid.UUID)
	Forget(userID string)
	Len() int
	Clear()
}

// AssessmentCache memoizes assessments by composite context fingerprint.
type AssessmentCache interface {
	Get(key string) (*assessment.Assessment, bool)
	Put(key string, a *assessment.Assessment)
	Clear()
}

// ReputationChecker answers preloaded IP and country reputation lookups.
type ReputationChecker interface {
	IsDenied(ip string) bool
	IsAnonymizer(ip string) bool
	IsHighRiskCountry(countryCode string) bool
}

// Deps bundles the read-only collaborators handed to detectors.
type Deps struct {
	Profiles   ProfileStore
	Devices    DeviceRegistry
	Reputation ReputationChecker
}

// DetectorResult distinguishes "skipped" (required fields absent),
// "clear" (applicable but not triggered) and "fired" explicitly, so the
// engine never has to infer outcome from a bare score.
type DetectorResult struct {
	Applicable bool
	Triggered  bool
	Score      float64
	Reason     string
	Evidence   map[string]interface{}
}

// Detector is one independently callable risk check. Implementations are
// side-effect free: the engine alone mutates state after scoring.
type Detector interface {
	Name() string
	Evaluate(ctx *assessment.Context, deps Deps) DetectorResult
}

func notApplicable() DetectorResult {
	return DetectorResult{}
}

func cleared() DetectorResult {
	return DetectorResult{Applicable: true}
}

func fired(score float64, reason string, evidence map[string]interface{}) DetectorResult {
	return DetectorResult{
		Applicable: true,
		Triggered:  true,
		Score:      score,
		Reason:     reason,
		Evidence:   evidence,
	}
}
