package assessment

import (
	"time"

	"github.com/google/uuid"
)

// Level is the coarse risk classification derived from thresholding the score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

func (l Level) String() string {
	return string(l)
}

// Finding is the structured evidence attached to one triggered detector.
type Finding struct {
	Detector string                 `json:"detector"`
	Score    float64                `json:"score"`
	Reason   string                 `json:"reason"`
	Evidence map[string]interface{} `json:"evidence,omitempty"`
}

// Assessment is the immutable outcome of one risk evaluation. The score is
// the sum of independently triggered detector contributions; Factors lists
// the detectors that fired, in evaluation order.
type Assessment struct {
	ID        uuid.UUID          `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Score     float64            `json:"score"`
	Level     Level              `json:"level"`
	Factors   []string           `json:"factors"`
	Details   map[string]Finding `json:"details,omitempty"`
	Context   Context            `json:"context"`
}

// New creates an Assessment for the given sanitized context, score and level.
func New(ctx Context, score float64, level Level, factors []string, details map[string]Finding) *Assessment {
	return &Assessment{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Score:     score,
		Level:     level,
		Factors:   factors,
		Details:   details,
		Context:   ctx,
	}
}

// BehaviorProfile is the per-user rolling baseline used by the "unusual"
// detectors. Histories are bounded; the stores own eviction.
type BehaviorProfile struct {
	UserID      string           `json:"user_id"`
	Locations   []LocationSample `json:"locations"`
	TimeSamples []TimeSample     `json:"time_samples"`
	LastUpdated time.Time        `json:"last_updated"`
}

// LocationSample records one observed location for a user.
type LocationSample struct {
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Timestamp    time.Time `json:"timestamp"`
	AssessmentID uuid.UUID `json:"assessment_id"`
}

// TimeSample records one observed time-of-use for a user.
type TimeSample struct {
	Hour         int       `json:"hour"`
	DayOfWeek    int       `json:"day_of_week"` // 0 = Sunday
	Timestamp    time.Time `json:"timestamp"`
	AssessmentID uuid.UUID `json:"assessment_id"`
}

// KnownDevice is a (user, device) pair that earned trust through a low-risk
// outcome. Attributes merge last-write-wins; recent locations are bounded.
type KnownDevice struct {
	UserID          string           `json:"user_id"`
	DeviceID        string           `json:"device_id"`
	FirstSeen       time.Time        `json:"first_seen"`
	LastSeen        time.Time        `json:"last_seen"`
	Attributes      DeviceAttributes `json:"attributes"`
	RecentLocations []LocationSample `json:"recent_locations"`
}
