package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
)

// DeviceRegistry tracks (user, device) pairs that earned trust through a
// low-risk outcome. Recording is best-effort bookkeeping: it never returns
// an error to the caller.
type DeviceRegistry struct {
	shards      [shardCount]*deviceShard
	locationCap int
}

type deviceShard struct {
	mu      sync.RWMutex
	devices map[deviceKey]*assessment.KnownDevice
}

type deviceKey struct {
	userID   string
	deviceID string
}

// NewDeviceRegistry creates a registry with the given recent-location cap.
func NewDeviceRegistry(locationCap int) *DeviceRegistry {
	r := &DeviceRegistry{locationCap: locationCap}
	for i := range r.shards {
		r.shards[i] = &deviceShard{
			devices: make(map[deviceKey]*assessment.KnownDevice),
		}
	}
	return r
}

func (r *DeviceRegistry) shard(userID string) *deviceShard {
	return r.shards[shardIndex(userID)]
}

// IsKnown reports whether the (user, device) pair has an earned-trust record.
func (r *DeviceRegistry) IsKnown(userID, deviceID string) bool {
	sh := r.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	_, ok := sh.devices[deviceKey{userID, deviceID}]
	return ok
}

// Record upserts a known device: attributes merge last-write-wins, and the
// location, when present, is appended with FIFO eviction at the cap.
func (r *DeviceRegistry) Record(userID, deviceID string, attrs *assessment.DeviceAttributes, geo *assessment.Geolocation, ts time.Time, assessmentID uuid.UUID) {
	sh := r.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	key := deviceKey{userID, deviceID}
	d, ok := sh.devices[key]
	if !ok {
		d = &assessment.KnownDevice{
			UserID:    userID,
			DeviceID:  deviceID,
			FirstSeen: ts,
		}
		sh.devices[key] = d
	}
	d.LastSeen = ts

	if attrs != nil {
		d.Attributes = *attrs
	}

	if geo != nil {
		d.RecentLocations = append(d.RecentLocations, assessment.LocationSample{
			Latitude:     geo.Latitude,
			Longitude:    geo.Longitude,
			Timestamp:    ts,
			AssessmentID: assessmentID,
		})
		if len(d.RecentLocations) > r.locationCap {
			d.RecentLocations = d.RecentLocations[len(d.RecentLocations)-r.locationCap:]
		}
	}
}

// Get returns a snapshot of a known device record.
func (r *DeviceRegistry) Get(userID, deviceID string) (*assessment.KnownDevice, bool) {
	sh := r.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	d, ok := sh.devices[deviceKey{userID, deviceID}]
	if !ok {
		return nil, false
	}
	snapshot := *d
	snapshot.RecentLocations = append([]assessment.LocationSample(nil), d.RecentLocations...)
	return &snapshot, true
}

// Forget drops every device record for the user. Companion to profile reset.
func (r *DeviceRegistry) Forget(userID string) {
	sh := r.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	for key := range sh.devices {
		if key.userID == userID {
			delete(sh.devices, key)
		}
	}
}

// Len returns the number of known devices across all users.
func (r *DeviceRegistry) Len() int {
	total := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		total += len(sh.devices)
		sh.mu.RUnlock()
	}
	return total
}

// Clear drops all device records. Best-effort shutdown hook.
func (r *DeviceRegistry) Clear() {
	for _, sh := range r.shards {
		sh.mu.Lock()
		sh.devices = make(map[deviceKey]*assessment.KnownDevice)
		sh.mu.Unlock()
	}
}
