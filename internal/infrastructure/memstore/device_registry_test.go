package memstore

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
)

func TestDeviceRegistry_IsKnown(t *testing.T) {
	reg := NewDeviceRegistry(5)
	now := time.Now()

	assert.False(t, reg.IsKnown("u1", "d1"))

	reg.Record("u1", "d1", nil, nil, now, uuid.New())

	assert.True(t, reg.IsKnown("u1", "d1"))
	assert.False(t, reg.IsKnown("u1", "d2"))
	assert.False(t, reg.IsKnown("u2", "d1"))
}

func TestDeviceRegistry_AttributeMergeLastWriteWins(t *testing.T) {
	reg := NewDeviceRegistry(5)
	now := time.Now()

	reg.Record("u1", "d1", &assessment.DeviceAttributes{Rooted: true}, nil, now, uuid.New())
	reg.Record("u1", "d1", &assessment.DeviceAttributes{DeveloperMode: true}, nil, now.Add(time.Minute), uuid.New())

	d, ok := reg.Get("u1", "d1")
	require.True(t, ok)
	assert.False(t, d.Attributes.Rooted)
	assert.True(t, d.Attributes.DeveloperMode)
	assert.Equal(t, now, d.FirstSeen)
	assert.Equal(t, now.Add(time.Minute), d.LastSeen)
}

func TestDeviceRegistry_NilAttributesKeepExisting(t *testing.T) {
	reg := NewDeviceRegistry(5)
	now := time.Now()

	reg.Record("u1", "d1", &assessment.DeviceAttributes{Emulated: true}, nil, now, uuid.New())
	reg.Record("u1", "d1", nil, nil, now.Add(time.Minute), uuid.New())

	d, ok := reg.Get("u1", "d1")
	require.True(t, ok)
	assert.True(t, d.Attributes.Emulated)
}

func TestDeviceRegistry_LocationCap(t *testing.T) {
	reg := NewDeviceRegistry(2)
	now := time.Now()

	for i := 0; i < 4; i++ {
		reg.Record("u1", "d1", nil, &assessment.Geolocation{Latitude: float64(i)}, now, uuid.New())
	}

	d, ok := reg.Get("u1", "d1")
	require.True(t, ok)
	require.Len(t, d.RecentLocations, 2)
	assert.Equal(t, 2.0, d.RecentLocations[0].Latitude)
	assert.Equal(t, 3.0, d.RecentLocations[1].Latitude)
}

func TestDeviceRegistry_Forget(t *testing.T) {
	reg := NewDeviceRegistry(5)
	now := time.Now()

	reg.Record("u1", "d1", nil, nil, now, uuid.New())
	reg.Record("u1", "d2", nil, nil, now, uuid.New())
	reg.Record("u2", "d1", nil, nil, now, uuid.New())

	reg.Forget("u1")

	assert.False(t, reg.IsKnown("u1", "d1"))
	assert.False(t, reg.IsKnown("u1", "d2"))
	assert.True(t, reg.IsKnown("u2", "d1"))
	assert.Equal(t, 1, reg.Len())
}
