package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
)

// ProfileStore keeps per-user behavior profiles with bounded histories.
// Writes for one user serialize on that user's shard; different users on
// different shards proceed in parallel.
type ProfileStore struct {
	shards      [shardCount]*profileShard
	locationCap int
	timeCap     int
}

type profileShard struct {
	mu       sync.RWMutex
	profiles map[string]*assessment.BehaviorProfile
}

// NewProfileStore creates a store with the given history caps.
func NewProfileStore(locationCap, timeCap int) *ProfileStore {
	s := &ProfileStore{
		locationCap: locationCap,
		timeCap:     timeCap,
	}
	for i := range s.shards {
		s.shards[i] = &profileShard{
			profiles: make(map[string]*assessment.BehaviorProfile),
		}
	}
	return s
}

func (s *ProfileStore) shard(userID string) *profileShard {
	return s.shards[shardIndex(userID)]
}

// Get returns a snapshot of the user's profile, or false when no history
// exists. Absence is meaningful: several detectors treat "no history" as
// unusual by default. The returned copy is safe to read without holding
// any lock.
func (s *ProfileStore) Get(userID string) (*assessment.BehaviorProfile, bool) {
	sh := s.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	p, ok := sh.profiles[userID]
	if !ok {
		return nil, false
	}

	snapshot := &assessment.BehaviorProfile{
		UserID:      p.UserID,
		Locations:   append([]assessment.LocationSample(nil), p.Locations...),
		TimeSamples: append([]assessment.TimeSample(nil), p.TimeSamples...),
		LastUpdated: p.LastUpdated,
	}
	return snapshot, true
}

// RecordLocation appends a location sample, evicting the oldest beyond the
// cap. The profile is created lazily on first write.
func (s *ProfileStore) RecordLocation(userID string, geo assessment.Geolocation, ts time.Time, assessmentID uuid.UUID) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	p := sh.getOrCreate(userID)
	p.Locations = append(p.Locations, assessment.LocationSample{
		Latitude:     geo.Latitude,
		Longitude:    geo.Longitude,
		Timestamp:    ts,
		AssessmentID: assessmentID,
	})
	if len(p.Locations) > s.locationCap {
		p.Locations = p.Locations[len(p.Locations)-s.locationCap:]
	}
	p.LastUpdated = ts
}

// RecordTimeSample appends a time-of-use sample with the same cap semantics.
func (s *ProfileStore) RecordTimeSample(userID string, ts time.Time, assessmentID uuid.UUID) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	p := sh.getOrCreate(userID)
	p.TimeSamples = append(p.TimeSamples, assessment.TimeSample{
		Hour:         ts.Hour(),
		DayOfWeek:    int(ts.Weekday()),
		Timestamp:    ts,
		AssessmentID: assessmentID,
	})
	if len(p.TimeSamples) > s.timeCap {
		p.TimeSamples = p.TimeSamples[len(p.TimeSamples)-s.timeCap:]
	}
	p.LastUpdated = ts
}

// Reset drops the user's profile. Used by the account-recovery collaborator.
func (s *ProfileStore) Reset(userID string) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.profiles, userID)
}

// Len returns the number of tracked profiles.
func (s *ProfileStore) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.profiles)
		sh.mu.RUnlock()
	}
	return total
}

// Clear drops all profiles. Best-effort shutdown hook.
func (s *ProfileStore) Clear() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.profiles = make(map[string]*assessment.BehaviorProfile)
		sh.mu.Unlock()
	}
}

func (sh *profileShard) getOrCreate(userID string) *assessment.BehaviorProfile {
	p, ok := sh.profiles[userID]
	if !ok {
		p = &assessment.BehaviorProfile{UserID: userID}
		sh.profiles[userID] = p
	}
	return p
}
